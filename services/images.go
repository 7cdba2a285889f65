package services

import (
	"bytes"
	"fmt"
	"image"
	"mime"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"vibeify/types"
)

var ownerIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-][A-Za-z0-9_.-]{0,127}$`)

// imageExtensions maps accepted upload MIME types to stored extensions
var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/gif":  ".gif",
	"image/bmp":  ".bmp",
	"image/tiff": ".tif",
}

type imageKey struct {
	owner string
	kind  types.ImageKind
}

// ImageStore keeps uploaded profile pictures and playlist covers on disk
// and tracks the current asset per owner and kind
type ImageStore struct {
	dir          string
	maxDimension int
	log          *zap.SugaredLogger

	mu     sync.RWMutex
	assets map[imageKey]types.ImageAsset
}

// NewImageStore creates the store under dir and registers assets already
// present on disk
func NewImageStore(dir string, maxDimension int, log *zap.SugaredLogger) (*ImageStore, error) {
	s := &ImageStore{
		dir:          dir,
		maxDimension: maxDimension,
		log:          log,
		assets:       make(map[imageKey]types.ImageAsset),
	}
	for _, kind := range []types.ImageKind{types.ImageKindProfile, types.ImageKindPlaylistCover} {
		if err := os.MkdirAll(filepath.Join(dir, string(kind)), 0755); err != nil {
			return nil, fmt.Errorf("%w: image dir: %v", types.ErrInternal, err)
		}
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// load registers every stored image file
func (s *ImageStore) load() error {
	for _, kind := range []types.ImageKind{types.ImageKindProfile, types.ImageKindPlaylistCover} {
		entries, err := os.ReadDir(filepath.Join(s.dir, string(kind)))
		if err != nil {
			return fmt.Errorf("%w: image dir: %v", types.ErrInternal, err)
		}
		for _, entry := range entries {
			if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			ext := filepath.Ext(entry.Name())
			owner := strings.TrimSuffix(entry.Name(), ext)
			s.assets[imageKey{owner, kind}] = types.ImageAsset{
				OwnerID:     owner,
				LocalPath:   filepath.Join(s.dir, string(kind), entry.Name()),
				Kind:        kind,
				ContentType: mime.TypeByExtension(ext),
				UpdatedAt:   info.ModTime(),
			}
		}
	}
	s.log.Debugw("image assets loaded", "count", len(s.assets))
	return nil
}

// Save validates and stores an uploaded image, replacing any previous
// asset of the same owner and kind
func (s *ImageStore) Save(ownerID string, kind types.ImageKind, contentType string, data []byte) (*types.ImageAsset, error) {
	if err := ValidateOwnerID(ownerID); err != nil {
		return nil, err
	}
	mediaType, _, _ := mime.ParseMediaType(contentType)
	ext, ok := imageExtensions[strings.ToLower(mediaType)]
	if !ok {
		return nil, fmt.Errorf("%w: content type %q is not a supported image", types.ErrValidation, contentType)
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: image could not be decoded: %v", types.ErrValidation, err)
	}
	if s.maxDimension > 0 && tooLarge(img, s.maxDimension) {
		if data, err = s.downscale(img, ext); err != nil {
			return nil, fmt.Errorf("%w: resize image: %v", types.ErrInternal, err)
		}
	}

	dir := filepath.Join(s.dir, string(kind))
	path := filepath.Join(dir, ownerID+ext)
	if err := writeFileAtomic(dir, path, data); err != nil {
		return nil, fmt.Errorf("%w: store image: %v", types.ErrInternal, err)
	}

	asset := types.ImageAsset{
		OwnerID:     ownerID,
		LocalPath:   path,
		Kind:        kind,
		ContentType: mime.TypeByExtension(ext),
		UpdatedAt:   time.Now(),
	}

	s.mu.Lock()
	prev, hadPrev := s.assets[imageKey{ownerID, kind}]
	s.assets[imageKey{ownerID, kind}] = asset
	s.mu.Unlock()

	// A previous upload in another format leaves a stale file behind
	if hadPrev && prev.LocalPath != path {
		if err := os.Remove(prev.LocalPath); err != nil && !os.IsNotExist(err) {
			s.log.Warnw("failed to remove replaced image", "path", prev.LocalPath, "error", err)
		}
	}
	s.log.Infow("image stored", "owner", ownerID, "kind", kind, "path", path)
	return &asset, nil
}

// Get returns the current asset for owner and kind
func (s *ImageStore) Get(ownerID string, kind types.ImageKind) (*types.ImageAsset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	asset, ok := s.assets[imageKey{ownerID, kind}]
	if !ok {
		return nil, fmt.Errorf("%w: no %s image for %s", types.ErrNotFound, kind, ownerID)
	}
	return &asset, nil
}

func (s *ImageStore) downscale(img image.Image, ext string) ([]byte, error) {
	format, err := imaging.FormatFromExtension(ext)
	if err != nil {
		return nil, err
	}
	resized := imaging.Fit(img, s.maxDimension, s.maxDimension, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ValidateOwnerID rejects ids that are empty or could escape the image
// directory
func ValidateOwnerID(ownerID string) error {
	if !ownerIDPattern.MatchString(ownerID) || strings.Contains(ownerID, "..") {
		return fmt.Errorf("%w: invalid owner id %q", types.ErrValidation, ownerID)
	}
	return nil
}

func tooLarge(img image.Image, limit int) bool {
	b := img.Bounds()
	return b.Dx() > limit || b.Dy() > limit
}

// writeFileAtomic writes data next to path and renames it into place
func writeFileAtomic(dir, path string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
