package services

import (
	"bytes"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vibeify/logger"
	audio "vibeify/testutil"
	"vibeify/types"
)

func TestImageStoreSaveAndGet(t *testing.T) {
	dir := t.TempDir()
	store, err := NewImageStore(dir, 0, logger.Nop())
	require.NoError(t, err)

	_, err = store.Get("owner", types.ImageKindProfile)
	assert.True(t, errors.Is(err, types.ErrNotFound))

	asset, err := store.Save("owner", types.ImageKindProfile, "image/png", audio.PNG(4, 4, color.White))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "profile", "owner.png"), asset.LocalPath)
	assert.Equal(t, "image/png", asset.ContentType)
	assert.FileExists(t, asset.LocalPath)

	got, err := store.Get("owner", types.ImageKindProfile)
	require.NoError(t, err)
	assert.Equal(t, asset.LocalPath, got.LocalPath)

	// Kinds are independent
	_, err = store.Get("owner", types.ImageKindPlaylistCover)
	assert.True(t, errors.Is(err, types.ErrNotFound))
}

func TestImageStoreOverwrite(t *testing.T) {
	dir := t.TempDir()
	store, err := NewImageStore(dir, 0, logger.Nop())
	require.NoError(t, err)

	first, err := store.Save("owner", types.ImageKindPlaylistCover, "image/png", audio.PNG(4, 4, color.White))
	require.NoError(t, err)

	jpeg := encodeJPEG(t)
	second, err := store.Save("owner", types.ImageKindPlaylistCover, "image/jpeg", jpeg)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "playlistCover", "owner.jpg"), second.LocalPath)
	_, err = os.Stat(first.LocalPath)
	assert.True(t, os.IsNotExist(err), "previous format should be removed")

	got, err := store.Get("owner", types.ImageKindPlaylistCover)
	require.NoError(t, err)
	assert.Equal(t, second.LocalPath, got.LocalPath)
}

func TestImageStoreValidation(t *testing.T) {
	store, err := NewImageStore(t.TempDir(), 0, logger.Nop())
	require.NoError(t, err)
	png := audio.PNG(2, 2, color.Black)

	tests := []struct {
		name        string
		owner       string
		contentType string
		data        []byte
	}{
		{"non image type", "owner", "text/plain", []byte("hello")},
		{"unsupported image type", "owner", "image/svg+xml", []byte("<svg/>")},
		{"undecodable", "owner", "image/png", []byte("garbage")},
		{"empty owner", "", "image/png", png},
		{"path traversal", "../escape", "image/png", png},
		{"dot dot inside", "a..b", "image/png", png},
		{"slash", "a/b", "image/png", png},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Save(tt.owner, types.ImageKindProfile, tt.contentType, tt.data)
			require.Error(t, err)
			assert.True(t, errors.Is(err, types.ErrValidation), err.Error())
		})
	}
}

func TestImageStoreDownscales(t *testing.T) {
	store, err := NewImageStore(t.TempDir(), 16, logger.Nop())
	require.NoError(t, err)

	asset, err := store.Save("big", types.ImageKindProfile, "image/png; charset=binary", audio.PNG(64, 32, color.White))
	require.NoError(t, err)

	img, err := imaging.Open(asset.LocalPath)
	require.NoError(t, err)
	assert.Equal(t, 16, img.Bounds().Dx())
	assert.Equal(t, 8, img.Bounds().Dy())
}

func TestImageStoreReloadsFromDisk(t *testing.T) {
	dir := t.TempDir()
	store, err := NewImageStore(dir, 0, logger.Nop())
	require.NoError(t, err)
	_, err = store.Save("owner", types.ImageKindProfile, "image/png", audio.PNG(2, 2, color.White))
	require.NoError(t, err)

	reopened, err := NewImageStore(dir, 0, logger.Nop())
	require.NoError(t, err)
	asset, err := reopened.Get("owner", types.ImageKindProfile)
	require.NoError(t, err)
	assert.Equal(t, "image/png", asset.ContentType)
}

func encodeJPEG(t *testing.T) []byte {
	img, err := imaging.Decode(bytes.NewReader(audio.PNG(4, 4, color.White)))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "x.jpg")
	require.NoError(t, imaging.Save(img, path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}
