package common

import "errors"

// Callers should use errors.Is to match these values.
var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors.
	ErrorInternal      = errors.New("internal error")
	ErrorUnauthorized  = errors.New("unauthorized")
	ErrVersionConflict = errors.New("version conflict")
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrStorageQuotaExceeded is returned when a new object does not fit in
	// the owner's remaining storage.
	ErrStorageQuotaExceeded = errors.New("storage quota exceeded")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Upload pipeline errors.
	ErrUploadCancelled     = errors.New("upload cancelled")
	ErrFileTooLarge        = errors.New("file too large")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrMissingETag         = errors.New("missing etag in upload response")
	ErrDuplicateUploadURL  = errors.New("duplicate upload url")
	ErrChunkCountMismatch  = errors.New("chunk count mismatch")
)
