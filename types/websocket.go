package types

import "time"

// ProgressMessage represents a WebSocket scan progress update message
type ProgressMessage struct {
	ScanID      string    `json:"scanId"`
	Type        string    `json:"type"`                  // "start", "progress", "complete"
	Progress    float64   `json:"progress"`              // 0-100 percentage
	Processed   int       `json:"processed"`             // files handled so far
	Total       int       `json:"total"`                 // files found by the walk
	CurrentFile string    `json:"currentFile,omitempty"` // path of the file just handled
	Outcome     string    `json:"outcome,omitempty"`     // outcome of CurrentFile
	Message     string    `json:"message,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}
