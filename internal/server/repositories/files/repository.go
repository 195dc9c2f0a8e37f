// Package files stores file records and their collection links.
package files

import (
	"context"

	"github.com/SecurityWorks/ente/internal/server/models"
)

type Repository interface {
	// Create inserts a file and links it into f.CollectionID. It sets f.ID.
	Create(ctx context.Context, f *models.File) error
	// Link adds (or re-keys) fileID in collectionID.
	Link(ctx context.Context, fileID, collectionID int64, encryptedKey, keyNonce []byte, now int64) error
	Get(ctx context.Context, ownerID string, fileID, collectionID int64) (*models.File, error)
	// Owns returns common.ErrorNotFound unless ownerID owns fileID.
	Owns(ctx context.Context, ownerID string, fileID int64) error
	// List returns files of collectionID changed after since, oldest change
	// first.
	List(ctx context.Context, ownerID string, collectionID, since int64, limit int) ([]*models.File, error)
	// UpdateMagic replaces one tier if the stored version equals
	// u.Magic.Version, else it returns common.ErrVersionConflict.
	UpdateMagic(ctx context.Context, ownerID string, tier models.MagicTier, u models.MagicUpdate, now int64) error
	// Usage is the number of object bytes ownerID stores.
	Usage(ctx context.Context, ownerID string) (int64, error)
}
