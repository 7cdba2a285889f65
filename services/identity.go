package services

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"vibeify/types"
)

// identityChunkSize is the read buffer used while hashing
const identityChunkSize = 64 * 1024

// Identifier computes content identities for media files
type Identifier interface {
	Identify(path string) (string, error)
	// Revalidate hashes the file even if a cached identity exists
	Revalidate(path string) (string, error)
}

// fileStamp is the cache key: a file is assumed unchanged while its
// path, size and modification time are unchanged
type fileStamp struct {
	path    string
	size    int64
	modTime time.Time
}

// identifier implements Identifier with an LRU of known identities
type identifier struct {
	cache *lru.Cache[fileStamp, string]
}

// NewIdentifier creates an identifier caching up to cacheSize identities
func NewIdentifier(cacheSize int) (Identifier, error) {
	if cacheSize <= 0 {
		cacheSize = 4096
	}
	cache, err := lru.New[fileStamp, string](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create identity cache: %w", err)
	}
	return &identifier{cache: cache}, nil
}

// Identify returns the identity of the file at path, reusing a cached
// digest when the file has not changed since it was last hashed
func (id *identifier) Identify(path string) (string, error) {
	return id.identify(path, false)
}

// Revalidate always re-reads the file and refreshes the cache
func (id *identifier) Revalidate(path string) (string, error) {
	return id.identify(path, true)
}

func (id *identifier) identify(path string, revalidate bool) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", types.ErrIO, path, err)
	}
	stamp := fileStamp{path: path, size: info.Size(), modTime: info.ModTime()}

	if !revalidate {
		if digest, ok := id.cache.Get(stamp); ok {
			return digest, nil
		}
	}

	digest, err := IdentifyFile(path)
	if err != nil {
		return "", err
	}
	id.cache.Add(stamp, digest)
	return digest, nil
}

// IdentifyFile hashes a file without consulting any cache
func IdentifyFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", types.ErrIO, path, err)
	}
	defer file.Close()

	digest, err := IdentifyReader(file)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", types.ErrIO, path, err)
	}
	return digest, nil
}

// IdentifyReader returns the lowercase hex SHA-256 of everything read from r
func IdentifyReader(r io.Reader) (string, error) {
	hash := sha256.New()
	buf := make([]byte, identityChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			hash.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
