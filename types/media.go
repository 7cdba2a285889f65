package types

import "time"

// MediaRecord represents the catalog metadata of one audio file.
// Optional tag fields are pointers: nil means the tag is absent,
// an empty string means the tag exists but is empty.
type MediaRecord struct {
	Identity        string  `json:"identity" bson:"_id"`
	DisplayName     string  `json:"displayName" bson:"displayName"`
	Artist          *string `json:"artist,omitempty" bson:"artist,omitempty"`
	Album           *string `json:"album,omitempty" bson:"album,omitempty"`
	Genre           *string `json:"genre,omitempty" bson:"genre,omitempty"`
	Year            *string `json:"year,omitempty" bson:"year,omitempty"`
	DurationSeconds int     `json:"durationSeconds" bson:"durationSeconds"`
	CoverRef        string  `json:"coverRef" bson:"coverRef"`
	StreamRef       string  `json:"streamRef" bson:"streamRef"`
}

// IndexEntry maps a content identity to the local file that holds it
type IndexEntry struct {
	Identity  string `json:"identity"`
	LocalPath string `json:"localPath"`
}

// ImageKind distinguishes the uploaded image slots
type ImageKind string

const (
	ImageKindProfile       ImageKind = "profile"
	ImageKindPlaylistCover ImageKind = "playlistCover"
)

// ImageAsset represents an uploaded image owned by a user or playlist
type ImageAsset struct {
	OwnerID     string    `json:"ownerId"`
	LocalPath   string    `json:"localPath"`
	Kind        ImageKind `json:"kind"`
	ContentType string    `json:"contentType"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ScanOutcome is the terminal state of one file in a scan
type ScanOutcome string

const (
	OutcomeUploadedNew     ScanOutcome = "uploaded-new"
	OutcomeSkippedExisting ScanOutcome = "skipped-existing"
	OutcomeForceUpdated    ScanOutcome = "force-updated"
	OutcomeError           ScanOutcome = "error"
)

// ScanFileError records why a single file ended in the error outcome
type ScanFileError struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// ScanSummary aggregates the outcomes of one synchronizer pass
type ScanSummary struct {
	ID         string              `json:"id"`
	Force      bool                `json:"force"`
	Degraded   bool                `json:"degraded"`
	StartedAt  time.Time           `json:"startedAt"`
	FinishedAt time.Time           `json:"finishedAt"`
	FilesSeen  int                 `json:"filesSeen"`
	Indexed    int                 `json:"indexed"`
	Outcomes   map[ScanOutcome]int `json:"outcomes"`
	Errors     []ScanFileError     `json:"errors,omitempty"`
}

// NewScanSummary returns a summary with every outcome counter present
func NewScanSummary(id string, force bool) *ScanSummary {
	return &ScanSummary{
		ID:        id,
		Force:     force,
		StartedAt: time.Now(),
		Outcomes: map[ScanOutcome]int{
			OutcomeUploadedNew:     0,
			OutcomeSkippedExisting: 0,
			OutcomeForceUpdated:    0,
			OutcomeError:           0,
		},
	}
}

// Record counts one file outcome
func (s *ScanSummary) Record(path string, outcome ScanOutcome, err error) {
	s.Outcomes[outcome]++
	if err != nil {
		s.Errors = append(s.Errors, ScanFileError{Path: path, Error: err.Error()})
	}
}

// StringPtr returns a pointer to v
func StringPtr(v string) *string {
	return &v
}
