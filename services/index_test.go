package services

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vibeify/types"
)

func TestMediaIndexReadiness(t *testing.T) {
	ix := NewMediaIndex()
	ix.Put("abc", "/music/a.mp3")

	_, err := ix.Get("abc")
	assert.True(t, errors.Is(err, types.ErrNotReady))
	assert.False(t, ix.Ready())

	ix.MarkReady()
	path, err := ix.Get("abc")
	require.NoError(t, err)
	assert.Equal(t, "/music/a.mp3", path)

	_, err = ix.Get("missing")
	assert.True(t, errors.Is(err, types.ErrNotFound))
}

func TestMediaIndexOverwrite(t *testing.T) {
	ix := NewMediaIndex()
	ix.MarkReady()
	ix.Put("abc", "/old/a.mp3")
	ix.Put("abc", "/new/a.mp3")

	path, err := ix.Get("abc")
	require.NoError(t, err)
	assert.Equal(t, "/new/a.mp3", path)
	assert.Equal(t, 1, ix.Len())
}

func TestMediaIndexEntriesSorted(t *testing.T) {
	ix := NewMediaIndex()
	ix.Put("c", "/3")
	ix.Put("a", "/1")
	ix.Put("b", "/2")

	assert.Equal(t, []types.IndexEntry{
		{Identity: "a", LocalPath: "/1"},
		{Identity: "b", LocalPath: "/2"},
		{Identity: "c", LocalPath: "/3"},
	}, ix.Entries())
}

func TestMediaIndexConcurrentAccess(t *testing.T) {
	ix := NewMediaIndex()
	ix.MarkReady()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				id := fmt.Sprintf("%d-%d", w, i)
				ix.Put(id, "/"+id)
				_, _ = ix.Get(id)
			}
		}(w)
	}
	wg.Wait()
	assert.Equal(t, 800, ix.Len())
}
