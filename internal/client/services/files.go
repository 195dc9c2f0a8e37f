package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/SecurityWorks/ente/internal/client/magic"
	"github.com/SecurityWorks/ente/internal/client/models"
	"github.com/SecurityWorks/ente/internal/client/repositories/files"
	"github.com/SecurityWorks/ente/internal/cryptox"
)

// FileService reads cached files and edits their mutable tiers. Edits fail
// with common.ErrVersionConflict when the backend moved on; a Sync followed
// by the same edit is the recovery.
type FileService interface {
	List(ctx context.Context, collectionID int64) ([]*models.File, error)
	Get(ctx context.Context, id, collectionID int64) (*models.File, error)

	SetVisibility(ctx context.Context, id, collectionID int64, v models.Visibility) (*models.MagicMetadata, error)
	SetCaption(ctx context.Context, id, collectionID int64, caption string) (*models.MagicMetadata, error)
	Rename(ctx context.Context, id, collectionID int64, name string) (*models.MagicMetadata, error)
	SetDate(ctx context.Context, id, collectionID int64, t time.Time) (*models.MagicMetadata, error)
}

type fileService struct {
	db    *sql.DB
	magic *magic.Store
	keys  *cryptox.KeyRing
}

func NewFileService(db *sql.DB, store *magic.Store, keys *cryptox.KeyRing) FileService {
	return &fileService{db: db, magic: store, keys: keys}
}

func (s *fileService) getFilesRepo() files.Repository {
	return files.NewSQLiteRepository(s.db)
}

func (s *fileService) List(ctx context.Context, collectionID int64) ([]*models.File, error) {
	return s.getFilesRepo().ListByCollection(ctx, collectionID)
}

// Get returns the cached file with its key unwrapped.
func (s *fileService) Get(ctx context.Context, id, collectionID int64) (*models.File, error) {
	f, err := s.getFilesRepo().Get(ctx, id, collectionID)
	if err != nil {
		return nil, err
	}
	if f.Key, err = s.keys.UnwrapFileKey(f.CollectionID, f.EncryptedKey, f.KeyNonce); err != nil {
		return nil, fmt.Errorf("file %d: %w", id, err)
	}
	return f, nil
}

func (s *fileService) SetVisibility(ctx context.Context, id, collectionID int64, v models.Visibility) (*models.MagicMetadata, error) {
	f, err := s.Get(ctx, id, collectionID)
	if err != nil {
		return nil, err
	}
	return s.magic.SetVisibility(ctx, f, v)
}

func (s *fileService) SetCaption(ctx context.Context, id, collectionID int64, caption string) (*models.MagicMetadata, error) {
	f, err := s.Get(ctx, id, collectionID)
	if err != nil {
		return nil, err
	}
	return s.magic.SetCaption(ctx, f, caption)
}

func (s *fileService) Rename(ctx context.Context, id, collectionID int64, name string) (*models.MagicMetadata, error) {
	f, err := s.Get(ctx, id, collectionID)
	if err != nil {
		return nil, err
	}
	return s.magic.SetEditedName(ctx, f, name)
}

func (s *fileService) SetDate(ctx context.Context, id, collectionID int64, t time.Time) (*models.MagicMetadata, error) {
	f, err := s.Get(ctx, id, collectionID)
	if err != nil {
		return nil, err
	}
	return s.magic.SetEditedDate(ctx, f, t)
}
