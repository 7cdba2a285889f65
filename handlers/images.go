package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"vibeify/services"
	"vibeify/types"
)

// maxUploadSize bounds a single image upload
const maxUploadSize = 10 << 20

// ImageHandler serves and stores profile pictures and playlist covers
type ImageHandler struct {
	store     *services.ImageStore
	fallbacks *services.Fallbacks
	metrics   *services.Metrics
	log       *zap.SugaredLogger
}

// NewImageHandler creates a new image handler
func NewImageHandler(store *services.ImageStore, fallbacks *services.Fallbacks, metrics *services.Metrics, log *zap.SugaredLogger) *ImageHandler {
	return &ImageHandler{
		store:     store,
		fallbacks: fallbacks,
		metrics:   metrics,
		log:       log,
	}
}

// GetPicture serves the profile picture of an owner, 404 when none has been
// uploaded
func (h *ImageHandler) GetPicture(c *gin.Context) {
	ownerID := c.Param("ownerId")
	asset, err := h.store.Get(ownerID, types.ImageKindProfile)
	if err == nil {
		err = h.checkAsset(asset)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	h.serveAsset(c, asset)
}

// GetPlaylistCover serves an uploaded playlist cover or the matching
// placeholder
func (h *ImageHandler) GetPlaylistCover(c *gin.Context) {
	ownerID := c.Param("ownerId")
	asset, err := h.store.Get(ownerID, types.ImageKindPlaylistCover)
	if err == nil {
		if err = h.checkAsset(asset); err == nil {
			h.serveAsset(c, asset)
			return
		}
	}
	serveFallback(c, h.fallbacks, h.metrics, h.log, services.PlaylistFallback(ownerID))
}

// UploadProfilePicture stores the multipart "file" as a profile picture
func (h *ImageHandler) UploadProfilePicture(c *gin.Context) {
	h.upload(c, types.ImageKindProfile)
}

// UploadPlaylistCover stores the multipart "file" as a playlist cover
func (h *ImageHandler) UploadPlaylistCover(c *gin.Context) {
	h.upload(c, types.ImageKindPlaylistCover)
}

func (h *ImageHandler) upload(c *gin.Context, kind types.ImageKind) {
	ownerID := c.Param("ownerId")
	if err := services.ValidateOwnerID(ownerID); err != nil {
		respondError(c, err)
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		respondError(c, fmt.Errorf("%w: multipart field \"file\" is required", types.ErrValidation))
		return
	}
	if header.Size > maxUploadSize {
		respondError(c, fmt.Errorf("%w: image exceeds %d bytes", types.ErrValidation, maxUploadSize))
		return
	}

	file, err := header.Open()
	if err != nil {
		respondError(c, fmt.Errorf("%w: open upload: %v", types.ErrIO, err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadSize))
	if err != nil {
		respondError(c, fmt.Errorf("%w: read upload: %v", types.ErrIO, err))
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	asset, err := h.store.Save(ownerID, kind, contentType, data)
	if err != nil {
		if !errors.Is(err, types.ErrValidation) {
			h.log.Errorw("failed to store image", "owner", ownerID, "kind", kind, "error", err)
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Image uploaded successfully",
		"asset":   asset,
	})
}

// checkAsset confirms the stored file behind asset can still be opened
func (h *ImageHandler) checkAsset(asset *types.ImageAsset) error {
	file, _, err := services.OpenMedia(asset.LocalPath)
	if err != nil {
		h.log.Warnw("stored image unreadable", "owner", asset.OwnerID, "kind", asset.Kind, "path", asset.LocalPath, "error", err)
		return err
	}
	return file.Close()
}

func (h *ImageHandler) serveAsset(c *gin.Context, asset *types.ImageAsset) {
	if asset.ContentType != "" {
		c.Header("Content-Type", asset.ContentType)
	}
	c.Header("Cache-Control", "no-cache")
	c.File(asset.LocalPath)
}
