package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"vibeify/services"
	"vibeify/types"
)

// MediaHandler serves audio streams and cover art by identity
type MediaHandler struct {
	index     *services.MediaIndex
	extractor services.Extractor
	fallbacks *services.Fallbacks
	metrics   *services.Metrics
	log       *zap.SugaredLogger
}

// NewMediaHandler creates a new media handler
func NewMediaHandler(index *services.MediaIndex, extractor services.Extractor, fallbacks *services.Fallbacks, metrics *services.Metrics, log *zap.SugaredLogger) *MediaHandler {
	return &MediaHandler{
		index:     index,
		extractor: extractor,
		fallbacks: fallbacks,
		metrics:   metrics,
		log:       log,
	}
}

// StreamFile streams an indexed audio file with support for range requests
func (h *MediaHandler) StreamFile(c *gin.Context) {
	identity := c.Param("identity")

	path, err := h.index.Get(identity)
	if err != nil {
		respondError(c, err)
		return
	}

	file, info, err := services.OpenMedia(path)
	if err != nil {
		if !errors.Is(err, types.ErrNotFound) {
			h.log.Errorw("failed to open media", "identity", identity, "path", path, "error", err)
		}
		respondError(c, err)
		return
	}
	defer file.Close()

	contentType := services.AudioContentType(path)
	c.Header("Accept-Ranges", "bytes")
	c.Header("Cache-Control", "public, max-age=3600")

	// Handle range requests for seeking
	if rangeHeader := c.GetHeader("Range"); rangeHeader != "" {
		h.handleRangeRequest(c, file, info.Size(), rangeHeader, contentType)
		return
	}

	c.Header("Content-Type", contentType)
	c.Header("Content-Length", strconv.FormatInt(info.Size(), 10))
	c.Status(http.StatusOK)
	if c.Request.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(c.Writer, file); err != nil {
		h.log.Debugw("stream interrupted", "identity", identity, "error", err)
	}
}

// parseRange resolves a single "bytes=" range against size. It returns
// ok=false when the header is malformed or unsatisfiable.
func parseRange(header string, size int64) (start, end int64, ok bool) {
	if !strings.HasPrefix(header, "bytes=") {
		return 0, 0, false
	}
	rng := strings.TrimPrefix(header, "bytes=")
	if strings.Contains(rng, ",") {
		return 0, 0, false
	}
	from, to, found := strings.Cut(rng, "-")
	if !found {
		return 0, 0, false
	}
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)

	// Suffix range: last N bytes
	if from == "" {
		n, err := strconv.ParseInt(to, 10, 64)
		if err != nil || n <= 0 {
			return 0, 0, false
		}
		if n > size {
			n = size
		}
		return size - n, size - 1, size > 0
	}

	start, err := strconv.ParseInt(from, 10, 64)
	if err != nil || start < 0 || start >= size {
		return 0, 0, false
	}
	end = size - 1
	if to != "" {
		end, err = strconv.ParseInt(to, 10, 64)
		if err != nil || end < start {
			return 0, 0, false
		}
		if end >= size {
			end = size - 1
		}
	}
	return start, end, true
}

// handleRangeRequest handles HTTP range requests for efficient seeking
func (h *MediaHandler) handleRangeRequest(c *gin.Context, file *os.File, fileSize int64, rangeHeader, contentType string) {
	start, end, ok := parseRange(rangeHeader, fileSize)
	if !ok {
		c.Header("Content-Range", fmt.Sprintf("bytes */%d", fileSize))
		c.Status(http.StatusRequestedRangeNotSatisfiable)
		return
	}
	contentLength := end - start + 1

	if _, err := file.Seek(start, io.SeekStart); err != nil {
		respondError(c, fmt.Errorf("%w: seek: %v", types.ErrIO, err))
		return
	}

	c.Header("Content-Type", contentType)
	c.Header("Content-Length", strconv.FormatInt(contentLength, 10))
	c.Header("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, fileSize))
	c.Status(http.StatusPartialContent)
	if c.Request.Method == http.MethodHead {
		return
	}

	// Copy only the requested range
	if _, err := io.CopyN(c.Writer, file, contentLength); err != nil {
		h.log.Debugw("range stream interrupted", "start", start, "end", end, "error", err)
	}
}

// Cover serves the embedded artwork of an indexed file, or the generic song
// cover when the identity is unknown or carries no artwork
func (h *MediaHandler) Cover(c *gin.Context) {
	identity := c.Param("identity")

	path, err := h.index.Get(identity)
	if errors.Is(err, types.ErrNotReady) {
		respondError(c, err)
		return
	}
	if err == nil {
		data, contentType, coverErr := h.extractor.Cover(path)
		if coverErr == nil {
			c.Header("Cache-Control", "public, max-age=3600")
			c.Data(http.StatusOK, contentType, data)
			return
		}
		if !errors.Is(coverErr, types.ErrNotFound) {
			h.log.Warnw("failed to read cover art", "identity", identity, "path", path, "error", coverErr)
		}
	}

	serveFallback(c, h.fallbacks, h.metrics, h.log, services.FallbackSongCover)
}

// serveFallback writes the placeholder image for kind
func serveFallback(c *gin.Context, fallbacks *services.Fallbacks, metrics *services.Metrics, log *zap.SugaredLogger, kind services.FallbackKind) {
	path, err := fallbacks.Path(kind)
	if err != nil {
		log.Errorw("placeholder image unavailable", "kind", kind, "error", err)
		respondError(c, err)
		return
	}
	metrics.FallbackServed(string(kind))
	c.File(path)
}
