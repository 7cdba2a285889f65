// Package testutil synthesises small audio and image files for tests.
package testutil

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// MPEG-1 Layer III, 128 kbit/s, 44.1 kHz, mono, no CRC, no padding
var mp3FrameHeader = []byte{0xFF, 0xFB, 0x90, 0xC4}

const (
	mp3FrameSize       = 417
	mp3SamplesPerFrame = 1152
	mp3SampleRate      = 44100
)

// Tags are the ID3v2.3 text frames written in front of a synthesised MP3.
// A nil field writes no frame; a pointer to "" writes an empty frame.
type Tags struct {
	Title  *string
	Artist *string
	Album  *string
	Genre  *string
	Year   *string

	// Composer is not read into records; tests use it to vary content
	Composer *string

	// Cover is written as a front-cover APIC frame when non-empty
	Cover     []byte
	CoverMIME string
}

// Str returns a pointer to s
func Str(s string) *string {
	return &s
}

// MP3 returns a silent MP3 stream lasting at least seconds, preceded by an
// ID3v2.3 tag when tags is non-nil
func MP3(seconds int, tags *Tags) []byte {
	var buf bytes.Buffer
	if tags != nil {
		buf.Write(id3v2(tags))
	}

	frames := (seconds*mp3SampleRate + mp3SamplesPerFrame - 1) / mp3SamplesPerFrame
	frame := make([]byte, mp3FrameSize)
	copy(frame, mp3FrameHeader)
	for i := 0; i < frames; i++ {
		buf.Write(frame)
	}
	return buf.Bytes()
}

// MP3WithSalt is MP3 with salt stored in a composer frame so that files
// with equal tags and length get distinct content
func MP3WithSalt(seconds int, tags *Tags, salt string) []byte {
	salted := Tags{}
	if tags != nil {
		salted = *tags
	}
	salted.Composer = Str(salt)
	return MP3(seconds, &salted)
}

func id3v2(tags *Tags) []byte {
	var frames bytes.Buffer
	for _, f := range []struct {
		id    string
		value *string
	}{
		{"TIT2", tags.Title},
		{"TPE1", tags.Artist},
		{"TALB", tags.Album},
		{"TCON", tags.Genre},
		{"TYER", tags.Year},
		{"TCOM", tags.Composer},
	} {
		if f.value == nil {
			continue
		}
		body := append([]byte{0x00}, []byte(*f.value)...)
		frames.WriteString(f.id)
		_ = binary.Write(&frames, binary.BigEndian, uint32(len(body)))
		frames.Write([]byte{0x00, 0x00})
		frames.Write(body)
	}

	if len(tags.Cover) > 0 {
		var body bytes.Buffer
		body.WriteByte(0x00)
		body.WriteString(tags.CoverMIME)
		body.WriteByte(0x00)
		body.WriteByte(0x03) // front cover
		body.WriteByte(0x00) // empty description
		body.Write(tags.Cover)

		frames.WriteString("APIC")
		_ = binary.Write(&frames, binary.BigEndian, uint32(body.Len()))
		frames.Write([]byte{0x00, 0x00})
		frames.Write(body.Bytes())
	}

	size := frames.Len()
	header := []byte{'I', 'D', '3', 0x03, 0x00, 0x00,
		byte(size>>21) & 0x7F,
		byte(size>>14) & 0x7F,
		byte(size>>7) & 0x7F,
		byte(size) & 0x7F,
	}
	return append(header, frames.Bytes()...)
}

// MalformedMP3 returns a single MPEG-2 Layer III frame whose side info
// selects mixed short blocks. go-mp3 reads the header fine but overruns its
// scale factor table while decoding the frame.
func MalformedMP3() []byte {
	// MPEG-2, Layer III, no CRC, 64 kbit/s, 22.05 kHz, mono
	header := []byte{0xFF, 0xF3, 0x80, 0xC0}
	// main_data_begin 0, window switching on, block type 2, mixed blocks
	sideInfo := []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0xA0, 0x00, 0x00}

	const frameSize = 208
	frame := make([]byte, frameSize)
	copy(frame, header)
	copy(frame[len(header):], sideInfo)
	return frame
}

// FLAC returns a FLAC stream made of a STREAMINFO block only, announcing
// samples 16-bit mono samples at sampleRate
func FLAC(sampleRate int, samples uint64) []byte {
	var buf bytes.Buffer
	buf.WriteString("fLaC")
	// last metadata block, type STREAMINFO, 34 bytes
	buf.Write([]byte{0x80, 0x00, 0x00, 34})
	_ = binary.Write(&buf, binary.BigEndian, uint16(4096)) // min block size
	_ = binary.Write(&buf, binary.BigEndian, uint16(4096)) // max block size
	buf.Write(make([]byte, 6))                             // min/max frame size unknown

	const (
		channels      = 1
		bitsPerSample = 16
	)
	packed := uint64(sampleRate)<<44 |
		uint64(channels-1)<<41 |
		uint64(bitsPerSample-1)<<36 |
		samples&(1<<36-1)
	_ = binary.Write(&buf, binary.BigEndian, packed)
	buf.Write(make([]byte, 16)) // MD5 of the audio, unset
	return buf.Bytes()
}

// WAV returns a silent 16-bit mono PCM WAV file of the given length
func WAV(seconds int) []byte {
	const (
		sampleRate    = 8000
		bitsPerSample = 16
		channels      = 1
	)
	blockAlign := channels * bitsPerSample / 8
	dataSize := seconds * sampleRate * blockAlign

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(channels))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*blockAlign))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(bitsPerSample))
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	buf.Write(make([]byte, dataSize))
	return buf.Bytes()
}

// PNG returns an encoded w x h image filled with c
func PNG(w, h int, c color.Color) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

// WriteFile writes data to dir/name, creating parent directories
func WriteFile(t testing.TB, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

// Placeholders writes the three placeholder images into dir, each a
// distinct colour, and returns their bytes by file name
func Placeholders(t testing.TB, dir string) map[string][]byte {
	t.Helper()
	files := map[string][]byte{
		"default_cover.png":          PNG(4, 4, color.RGBA{R: 255, A: 255}),
		"default_playlist_cover.png": PNG(4, 4, color.RGBA{G: 255, A: 255}),
		"liked_songs_cover.png":      PNG(4, 4, color.RGBA{B: 255, A: 255}),
	}
	for name, data := range files {
		WriteFile(t, dir, name, data)
	}
	return files
}
