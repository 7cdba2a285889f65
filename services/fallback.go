package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"vibeify/types"
)

// LikedSongsOwnerID is the reserved playlist owner id of the virtual
// "liked songs" playlist, matched case-insensitively
const LikedSongsOwnerID = "liked-songs"

// FallbackKind names a placeholder image
type FallbackKind string

const (
	FallbackSongCover     FallbackKind = "song_cover"
	FallbackPlaylistCover FallbackKind = "playlist_cover"
	FallbackLikedSongs    FallbackKind = "liked_songs_cover"
)

var fallbackFiles = map[FallbackKind]string{
	FallbackSongCover:     "default_cover.png",
	FallbackPlaylistCover: "default_playlist_cover.png",
	FallbackLikedSongs:    "liked_songs_cover.png",
}

// Fallbacks resolves placeholder images from the assets directory
type Fallbacks struct {
	dir string
}

// NewFallbacks creates a resolver for placeholders under dir
func NewFallbacks(dir string) *Fallbacks {
	return &Fallbacks{dir: dir}
}

// Path returns the placeholder file for kind. A missing placeholder is a
// deployment error.
func (f *Fallbacks) Path(kind FallbackKind) (string, error) {
	name, ok := fallbackFiles[kind]
	if !ok {
		return "", fmt.Errorf("%w: unknown fallback %q", types.ErrInternal, kind)
	}
	path := filepath.Join(f.dir, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("%w: fallback asset %s missing", types.ErrInternal, path)
	}
	return path, nil
}

// Check returns the kinds whose placeholder file is missing
func (f *Fallbacks) Check() []FallbackKind {
	var missing []FallbackKind
	for _, kind := range []FallbackKind{FallbackSongCover, FallbackPlaylistCover, FallbackLikedSongs} {
		if _, err := f.Path(kind); err != nil {
			missing = append(missing, kind)
		}
	}
	return missing
}

// PlaylistFallback picks the placeholder for a playlist owner
func PlaylistFallback(ownerID string) FallbackKind {
	if IsLikedSongs(ownerID) {
		return FallbackLikedSongs
	}
	return FallbackPlaylistCover
}

// IsLikedSongs reports whether ownerID is the reserved liked-songs id
func IsLikedSongs(ownerID string) bool {
	return strings.EqualFold(ownerID, LikedSongsOwnerID)
}
