package services

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dhowden/tag"

	"vibeify/types"
)

// rawKeys lists the raw tag names per field across the formats dhowden/tag
// reads: ID3v2.2, ID3v2.3/2.4, Vorbis comments and MP4 atoms
var rawKeys = map[string][]string{
	"artist": {"TP1", "TPE1", "artist", "\xa9ART"},
	"album":  {"TAL", "TALB", "album", "\xa9alb"},
	"genre":  {"TCO", "TCON", "genre", "\xa9gen", "gnre"},
	"year":   {"TYE", "TYER", "TDRC", "date", "year", "\xa9day"},
}

// Extractor reads embedded tags and stream headers into MediaRecords
type Extractor interface {
	Extract(path, identity string) (*types.MediaRecord, error)
	Cover(path string) (data []byte, mimeType string, err error)
}

// extractor implements Extractor
type extractor struct {
	baseURL string
}

// NewExtractor creates an extractor whose generated links point at baseURL
func NewExtractor(baseURL string) Extractor {
	return &extractor{baseURL: strings.TrimRight(baseURL, "/")}
}

// Extract builds the catalog record for the audio file at path
func (e *extractor) Extract(path, identity string) (record *types.MediaRecord, err error) {
	// Decoders index into headers they trust; a malformed file must only
	// fail itself
	defer func() {
		if v := recover(); v != nil {
			record = nil
			err = fmt.Errorf("%w: %s: decoder panic: %v", types.ErrFormat, path, v)
		}
	}()

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrIO, path, err)
	}
	defer file.Close()

	// Duration comes from the stream header; failing here means the
	// container is not decodable at all
	duration, err := probeDuration(path, file)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrFormat, path, err)
	}

	record = &types.MediaRecord{
		Identity:        identity,
		DisplayName:     baseName(path),
		DurationSeconds: duration,
		CoverRef:        e.link("cover", identity),
		StreamRef:       e.link("stream", identity),
	}

	if _, err := file.Seek(0, 0); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrIO, path, err)
	}
	meta, err := tag.ReadFrom(file)
	switch {
	case errors.Is(err, tag.ErrNoTagsFound):
		return record, nil
	case err != nil:
		return nil, fmt.Errorf("%w: %s: reading tags: %v", types.ErrFormat, path, err)
	}

	applyTags(record, meta)
	return record, nil
}

// Cover returns the embedded cover art of the file at path
func (e *extractor) Cover(path string) (data []byte, mimeType string, err error) {
	defer func() {
		if v := recover(); v != nil {
			data, mimeType = nil, ""
			err = fmt.Errorf("%w: %s: decoder panic: %v", types.ErrFormat, path, v)
		}
	}()

	file, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s: %v", types.ErrIO, path, err)
	}
	defer file.Close()

	meta, err := tag.ReadFrom(file)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s: %v", types.ErrNotFound, path, err)
	}
	pic := meta.Picture()
	if pic == nil || len(pic.Data) == 0 {
		return nil, "", fmt.Errorf("%w: no embedded cover in %s", types.ErrNotFound, path)
	}

	mimeType = pic.MIMEType
	if mimeType == "" || !strings.Contains(mimeType, "/") {
		mimeType = "image/" + strings.ToLower(strings.TrimPrefix(pic.Ext, "."))
	}
	return pic.Data, mimeType, nil
}

// link synthesizes a gateway URL for the given endpoint and identity
func (e *extractor) link(endpoint, identity string) string {
	return e.baseURL + "/" + endpoint + "/" + url.PathEscape(identity)
}

// applyTags copies tag values into the record, keeping absent fields nil
func applyTags(record *types.MediaRecord, meta tag.Metadata) {
	if title := strings.TrimSpace(meta.Title()); title != "" {
		record.DisplayName = title
	}

	raw := meta.Raw()
	if hasRaw(raw, "artist") {
		record.Artist = types.StringPtr(meta.Artist())
	}
	if hasRaw(raw, "album") {
		record.Album = types.StringPtr(meta.Album())
	}
	if hasRaw(raw, "genre") {
		record.Genre = types.StringPtr(meta.Genre())
	}
	if hasRaw(raw, "year") {
		year := ""
		if y := meta.Year(); y > 0 {
			year = strconv.Itoa(y)
		}
		record.Year = types.StringPtr(year)
	}

	// ID3v1 has fixed-width fields and cannot express "absent"
	if meta.Format() == tag.ID3v1 {
		record.Artist = nonEmpty(meta.Artist())
		record.Album = nonEmpty(meta.Album())
		record.Genre = nonEmpty(meta.Genre())
		record.Year = nil
		if y := meta.Year(); y > 0 {
			record.Year = types.StringPtr(strconv.Itoa(y))
		}
	}
}

func hasRaw(raw map[string]interface{}, field string) bool {
	for _, key := range rawKeys[field] {
		if _, ok := raw[key]; ok {
			return true
		}
	}
	return false
}

func nonEmpty(v string) *string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return types.StringPtr(v)
}

// baseName returns the file name without directory or extension
func baseName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}
