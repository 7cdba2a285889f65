package types

import "errors"

var (
	// ErrIO means a file could not be read
	ErrIO = errors.New("file unreadable")
	// ErrFormat means a file is not a decodable audio container
	ErrFormat = errors.New("unsupported or corrupt audio")
	// ErrNotFound means an identity or asset is unknown
	ErrNotFound = errors.New("not found")
	// ErrInternal means a server-side configuration or dependency failure
	ErrInternal = errors.New("internal error")
	// ErrValidation means the request content was rejected
	ErrValidation = errors.New("validation failed")
	// ErrNotReady means the index has not finished its startup scan
	ErrNotReady = errors.New("index not ready")
	// ErrScanInProgress means another scan holds the scan lock
	ErrScanInProgress = errors.New("scan already in progress")
)
