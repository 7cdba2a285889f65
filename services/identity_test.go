package services

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vibeify/testutil"
	"vibeify/types"
)

func TestIdentifyReader(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"empty", nil, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
		{"abc", []byte("abc"), "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := IdentifyReader(bytes.NewReader(tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIdentifyDeterminism(t *testing.T) {
	// Spans several read chunks
	data := bytes.Repeat([]byte("vibeify"), 3*identityChunkSize/7+11)
	dir := t.TempDir()
	a := testutil.WriteFile(t, dir, "a.mp3", data)
	b := testutil.WriteFile(t, dir, "nested/b.flac", data)

	idA, err := IdentifyFile(a)
	require.NoError(t, err)
	idB, err := IdentifyFile(b)
	require.NoError(t, err)
	inMemory, err := IdentifyReader(bytes.NewReader(data))
	require.NoError(t, err)

	assert.Len(t, idA, 64)
	assert.Equal(t, idA, idB, "identity must not depend on path or name")
	assert.Equal(t, idA, inMemory)

	changed := append([]byte(nil), data...)
	changed[len(changed)/2] ^= 0x01
	idChanged, err := IdentifyReader(bytes.NewReader(changed))
	require.NoError(t, err)
	assert.NotEqual(t, idA, idChanged)
}

func TestIdentifyMissingFile(t *testing.T) {
	_, err := IdentifyFile(filepath.Join(t.TempDir(), "missing.mp3"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrIO))

	identifier, err := NewIdentifier(8)
	require.NoError(t, err)
	_, err = identifier.Identify(filepath.Join(t.TempDir(), "missing.mp3"))
	assert.True(t, errors.Is(err, types.ErrIO))
}

func TestIdentifierCache(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "track.mp3", []byte("first"))
	stamp := time.Now().Add(-time.Hour).Truncate(time.Second)
	require.NoError(t, os.Chtimes(path, stamp, stamp))

	identifier, err := NewIdentifier(8)
	require.NoError(t, err)

	first, err := identifier.Identify(path)
	require.NoError(t, err)

	// Same size and modification time: the cached digest is reused
	require.NoError(t, os.WriteFile(path, []byte("other"), 0644))
	require.NoError(t, os.Chtimes(path, stamp, stamp))
	cached, err := identifier.Identify(path)
	require.NoError(t, err)
	assert.Equal(t, first, cached)

	// Revalidation re-reads the content and refreshes the cache
	fresh, err := identifier.Revalidate(path)
	require.NoError(t, err)
	assert.NotEqual(t, first, fresh)
	again, err := identifier.Identify(path)
	require.NoError(t, err)
	assert.Equal(t, fresh, again)

	// A visible change to the file misses the cache
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("x", 20)), 0644))
	changed, err := identifier.Identify(path)
	require.NoError(t, err)
	assert.NotEqual(t, fresh, changed)
}
