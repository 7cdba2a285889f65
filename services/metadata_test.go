package services

import (
	"errors"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vibeify/testutil"
	"vibeify/types"
)

func TestExtractTags(t *testing.T) {
	tests := []struct {
		name        string
		file        string
		data        []byte
		wantName    string
		wantArtist  *string
		wantAlbum   *string
		wantGenre   *string
		wantYear    *string
		wantSeconds int
	}{
		{
			name:        "title and artist",
			file:        "track.mp3",
			data:        testutil.MP3(180, &testutil.Tags{Title: testutil.Str("Test"), Artist: testutil.Str("Artist")}),
			wantName:    "Test",
			wantArtist:  testutil.Str("Artist"),
			wantSeconds: 180,
		},
		{
			name:        "artist tag absent",
			file:        "untitled.mp3",
			data:        testutil.MP3(3, &testutil.Tags{Album: testutil.Str("Album")}),
			wantName:    "untitled",
			wantAlbum:   testutil.Str("Album"),
			wantSeconds: 3,
		},
		{
			name:        "artist tag empty",
			file:        "empty-artist.mp3",
			data:        testutil.MP3(3, &testutil.Tags{Title: testutil.Str("Song"), Artist: testutil.Str("")}),
			wantName:    "Song",
			wantArtist:  testutil.Str(""),
			wantSeconds: 3,
		},
		{
			name: "every field",
			file: "full.mp3",
			data: testutil.MP3(10, &testutil.Tags{
				Title:  testutil.Str("Full"),
				Artist: testutil.Str("Band"),
				Album:  testutil.Str("Record"),
				Genre:  testutil.Str("Jazz"),
				Year:   testutil.Str("1999"),
			}),
			wantName:    "Full",
			wantArtist:  testutil.Str("Band"),
			wantAlbum:   testutil.Str("Record"),
			wantGenre:   testutil.Str("Jazz"),
			wantYear:    testutil.Str("1999"),
			wantSeconds: 10,
		},
		{
			name:        "blank title falls back to file name",
			file:        "My Song.mp3",
			data:        testutil.MP3(1, &testutil.Tags{Title: testutil.Str("  ")}),
			wantName:    "My Song",
			wantSeconds: 1,
		},
		{
			name:        "no tags",
			file:        "bare.mp3",
			data:        testutil.MP3(5, nil),
			wantName:    "bare",
			wantSeconds: 5,
		},
		{
			name:        "wav without tags",
			file:        "clip.wav",
			data:        testutil.WAV(4),
			wantName:    "clip",
			wantSeconds: 4,
		},
	}

	extractor := NewExtractor("http://localhost:8000/")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := testutil.WriteFile(t, t.TempDir(), tt.file, tt.data)

			record, err := extractor.Extract(path, "id-1")
			require.NoError(t, err)
			assert.Equal(t, "id-1", record.Identity)
			assert.Equal(t, tt.wantName, record.DisplayName)
			assert.Equal(t, tt.wantArtist, record.Artist)
			assert.Equal(t, tt.wantAlbum, record.Album)
			assert.Equal(t, tt.wantGenre, record.Genre)
			assert.Equal(t, tt.wantYear, record.Year)
			assert.Equal(t, tt.wantSeconds, record.DurationSeconds)
		})
	}
}

func TestExtractLinks(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "a.mp3", testutil.MP3(1, nil))

	record, err := NewExtractor("https://media.example.com/").Extract(path, "a b/c")
	require.NoError(t, err)
	assert.Equal(t, "https://media.example.com/cover/a%20b%2Fc", record.CoverRef)
	assert.Equal(t, "https://media.example.com/stream/a%20b%2Fc", record.StreamRef)
}

func TestExtractFailures(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		data    []byte
		wantErr error
	}{
		{"garbage mp3", "broken.mp3", []byte("not an mp3"), types.ErrFormat},
		{"empty mp3", "empty.mp3", nil, types.ErrFormat},
		{"garbage wav", "broken.wav", []byte("RIFF nonsense"), types.ErrFormat},
		{"garbage flac", "broken.flac", []byte("fLaC but not really"), types.ErrFormat},
		{"mp3 decoder panic", "mixed-blocks.mp3", testutil.MalformedMP3(), types.ErrFormat},
	}

	extractor := NewExtractor("")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := testutil.WriteFile(t, t.TempDir(), tt.file, tt.data)
			_, err := extractor.Extract(path, "id")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), err.Error())
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := extractor.Extract(t.TempDir()+"/gone.mp3", "id")
		assert.True(t, errors.Is(err, types.ErrIO))
	})
}

func TestExtractFLAC(t *testing.T) {
	tests := []struct {
		name        string
		sampleRate  int
		samples     uint64
		wantSeconds int
	}{
		{"whole seconds", 44100, 44100 * 3, 3},
		{"truncated", 44100, 44100*3 + 22050, 3},
		{"under a second", 48000, 47999, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := testutil.WriteFile(t, t.TempDir(), "take.flac", testutil.FLAC(tt.sampleRate, tt.samples))

			record, err := NewExtractor("").Extract(path, "id")
			require.NoError(t, err)
			assert.Equal(t, tt.wantSeconds, record.DurationSeconds)
			assert.Equal(t, "take", record.DisplayName)
			assert.Nil(t, record.Artist)
		})
	}
}

func TestCoverEmbeddedArtwork(t *testing.T) {
	art := testutil.PNG(8, 8, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	path := testutil.WriteFile(t, t.TempDir(), "a.mp3", testutil.MP3(1, &testutil.Tags{
		Title:     testutil.Str("With Art"),
		Cover:     art,
		CoverMIME: "image/png",
	}))

	data, mimeType, err := NewExtractor("").Cover(path)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mimeType)
	assert.Equal(t, art, data)

	// The artwork frame does not disturb the rest of the tag
	record, err := NewExtractor("").Extract(path, "id")
	require.NoError(t, err)
	assert.Equal(t, "With Art", record.DisplayName)
}

func TestCoverWithoutArtwork(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "a.mp3", testutil.MP3(1, &testutil.Tags{Title: testutil.Str("x")}))

	_, _, err := NewExtractor("").Cover(path)
	assert.True(t, errors.Is(err, types.ErrNotFound))
}

func TestSupportedExtension(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"a.mp3", true},
		{"A.MP3", true},
		{"b.flac", true},
		{"c.wav", true},
		{"d.ogg", false},
		{"e.txt", false},
		{"mp3", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SupportedExtension(tt.path), tt.path)
	}
}

func TestAudioContentType(t *testing.T) {
	tests := map[string]string{
		"a.mp3":  "audio/mpeg",
		"b.FLAC": "audio/flac",
		"c.wav":  "audio/wav",
		"d.bin":  "application/octet-stream",
	}
	for path, want := range tests {
		assert.Equal(t, want, AudioContentType(path), path)
	}
}
