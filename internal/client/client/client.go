package client

import (
	"context"

	"github.com/SecurityWorks/ente/internal/client/models"
	"github.com/SecurityWorks/ente/internal/rpc"
)

// Client is the backend API used by the uploader.
type Client interface {
	Close() error
	Ping(ctx context.Context) error

	GetUploadURLs(ctx context.Context, count int) ([]models.UploadURL, error)
	GetMultipartUploadURLs(ctx context.Context, partCount int) (*models.MultipartUploadURLs, error)

	CreateFile(ctx context.Context, req *rpc.CreateFileRequest) (*rpc.FileRecord, error)
	AddToCollection(ctx context.Context, req *rpc.AddToCollectionRequest) (*rpc.FileRecord, error)
	UpdateMagicMetadata(ctx context.Context, tier models.MagicTier, entries []models.UpdateMagicMetadataEntry) error
	ListFiles(ctx context.Context, collectionID, sinceTime int64) ([]rpc.FileRecord, bool, error)
}
