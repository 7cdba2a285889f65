package services

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/mewkiz/flac"
)

// durationProbe reads the stream header of one container format and
// returns its length in whole seconds, truncated
type durationProbe func(r io.ReadSeeker) (int, error)

var durationProbes = map[string]durationProbe{
	".mp3":  mp3Duration,
	".flac": flacDuration,
	".wav":  wavDuration,
}

// SupportedExtension reports whether files with this extension are scanned
func SupportedExtension(path string) bool {
	_, ok := durationProbes[strings.ToLower(filepath.Ext(path))]
	return ok
}

// probeDuration dispatches on the file extension
func probeDuration(path string, r io.ReadSeeker) (int, error) {
	probe, ok := durationProbes[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return 0, fmt.Errorf("no decoder for %q", filepath.Ext(path))
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}
	return probe(r)
}

// mp3Duration decodes frame headers; go-mp3 reports the decoded PCM length
// in bytes of 16-bit stereo samples
func mp3Duration(r io.ReadSeeker) (int, error) {
	d, err := mp3.NewDecoder(r)
	if err != nil {
		return 0, err
	}
	length := d.Length()
	if length < 0 || d.SampleRate() <= 0 {
		return 0, errors.New("mp3 length unknown")
	}
	return int(length / 4 / int64(d.SampleRate())), nil
}

func flacDuration(r io.ReadSeeker) (int, error) {
	stream, err := flac.New(r)
	if err != nil {
		return 0, err
	}
	if stream.Info.SampleRate == 0 {
		return 0, errors.New("flac sample rate is zero")
	}
	return int(stream.Info.NSamples / uint64(stream.Info.SampleRate)), nil
}

func wavDuration(r io.ReadSeeker) (int, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return 0, errors.New("invalid wav container")
	}
	dur, err := d.Duration()
	if err != nil {
		return 0, err
	}
	return int(dur.Seconds()), nil
}
