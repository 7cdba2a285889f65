package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"vibeify/types"
)

// AudioContentType returns the MIME type served for an audio file
func AudioContentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".flac":
		return "audio/flac"
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	default:
		return "application/octet-stream"
	}
}

// OpenMedia opens a file served by the gateway, an indexed track or a stored
// image. A file removed since it was recorded reports ErrNotFound.
func OpenMedia(path string) (*os.File, os.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: %s no longer exists", types.ErrNotFound, path)
		}
		return nil, nil, fmt.Errorf("%w: %v", types.ErrIO, err)
	}
	if info.IsDir() {
		return nil, nil, fmt.Errorf("%w: %s is a directory", types.ErrNotFound, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", types.ErrIO, err)
	}
	return f, info, nil
}
