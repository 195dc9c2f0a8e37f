package upload

import (
	"context"
	"errors"

	"github.com/SecurityWorks/ente/internal/client/models"
	"github.com/SecurityWorks/ente/internal/common"
)

// Status is the terminal outcome of one asset.
type Status string

const (
	StatusUploaded                    Status = "uploaded"
	StatusUploadedWithStaticThumbnail Status = "uploadedWithStaticThumbnail"
	StatusAlreadyUploaded             Status = "alreadyUploaded"
	StatusAddedSymlink                Status = "addedSymlink"
	StatusUnsupported                 Status = "unsupported"
	StatusTooLarge                    Status = "tooLarge"
	StatusBlocked                     Status = "blocked"
	StatusLargerThanAvailableStorage  Status = "largerThanAvailableStorage"
	StatusCancelled                   Status = "cancelled"
	StatusFailed                      Status = "failed"
)

// Succeeded reports whether the asset ended up in the target collection.
func (s Status) Succeeded() bool {
	switch s {
	case StatusUploaded, StatusUploadedWithStaticThumbnail, StatusAlreadyUploaded, StatusAddedSymlink:
		return true
	}
	return false
}

// Job is one queued asset and the collection it goes to.
type Job struct {
	Item         models.UploadItem
	CollectionID int64
}

// Result reports what happened to a Job. File is set for every successful
// status; Err for every other one.
type Result struct {
	Job    Job
	Status Status
	File   *models.File
	Err    error
}

// classify maps a pipeline error onto the result taxonomy.
func classify(ctx context.Context, err error) Status {
	switch {
	case errors.Is(err, common.ErrUploadCancelled),
		errors.Is(err, context.Canceled),
		ctx.Err() != nil:
		return StatusCancelled
	case errors.Is(err, common.ErrUnsupportedFileType):
		return StatusUnsupported
	case errors.Is(err, common.ErrFileTooLarge):
		return StatusTooLarge
	case errors.Is(err, common.ErrMissingETag):
		return StatusBlocked
	case errors.Is(err, common.ErrStorageQuotaExceeded):
		return StatusLargerThanAvailableStorage
	default:
		return StatusFailed
	}
}
