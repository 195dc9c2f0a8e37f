package files

import (
	"context"

	"github.com/SecurityWorks/ente/internal/client/models"
)

type Repository interface {
	// Upsert stores f without its magic tiers.
	Upsert(ctx context.Context, f *models.File) error

	// Get returns common.ErrorNotFound when the file is not cached for
	// collectionID.
	Get(ctx context.Context, id, collectionID int64) (*models.File, error)

	// ListByCollection returns the files of a collection ordered by creation
	// time, newest first.
	ListByCollection(ctx context.Context, collectionID int64) ([]*models.File, error)

	// FindByHash returns every cached row whose content identity is hash.
	FindByHash(ctx context.Context, hash string) ([]*models.File, error)

	GetMagic(ctx context.Context, fileID int64, tier models.MagicTier) (*models.MagicMetadata, error)
	PutMagic(ctx context.Context, fileID int64, tier models.MagicTier, m *models.MagicMetadata) error
}
