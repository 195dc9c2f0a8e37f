// Package services holds the backend use cases behind the gRPC handlers.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SecurityWorks/ente/internal/common"
	"github.com/SecurityWorks/ente/internal/dbx"
	"github.com/SecurityWorks/ente/internal/logging"
	"github.com/SecurityWorks/ente/internal/server/models"
	"github.com/SecurityWorks/ente/internal/server/repositories/repomanager"
	"github.com/SecurityWorks/ente/internal/server/storage"
	"github.com/google/uuid"
)

const (
	// MaxURLCount bounds the URLs handed out by one call.
	MaxURLCount = 100
	// MaxPartCount is the S3 limit on parts of one upload.
	MaxPartCount = 10000

	DefaultListLimit = 500
	MaxListLimit     = 2500
)

type UploadTarget struct {
	ObjectKey string
	URL       string
}

type MultipartTarget struct {
	ObjectKey   string
	PartURLs    []string
	CompleteURL string
}

// FileService defines the file operations of one authenticated user.
//
// Contract:
//   - UploadURLs / MultipartUploadURLs: mint fresh object keys under the
//     user's prefix with their upload targets.
//   - CreateFile: check that both objects were uploaded and fit in the quota,
//     then store the record and link it into its collection.
//   - AddToCollection: link an owned file into another collection.
//   - UpdateMagic: replace one tier of every listed file, all or nothing.
//     A stale version fails with common.ErrVersionConflict.
//   - ListFiles: files of a collection changed after since, oldest first.
type FileService interface {
	UploadURLs(ctx context.Context, userID string, count int) ([]UploadTarget, error)
	MultipartUploadURLs(ctx context.Context, userID string, count, partCount int) ([]MultipartTarget, error)
	CreateFile(ctx context.Context, userID string, f *models.File) (*models.File, error)
	AddToCollection(ctx context.Context, userID string, fileID, collectionID int64, encryptedKey, keyNonce []byte) (*models.File, error)
	UpdateMagic(ctx context.Context, userID string, tier models.MagicTier, updates []models.MagicUpdate) error
	ListFiles(ctx context.Context, userID string, collectionID, since int64, limit int) ([]*models.File, bool, error)
}

type fileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       storage.ObjectStore
	signer      *storage.Signer
	quota       int64
	clock       *stampClock
	log         logging.Logger
}

// NewFileService wires the service. quota is the per-user byte limit; zero
// disables it.
func NewFileService(db *sql.DB, m repomanager.RepositoryManager, store storage.ObjectStore, signer *storage.Signer, quota int64, log logging.Logger) FileService {
	return &fileService{
		db:          db,
		repomanager: m,
		store:       store,
		signer:      signer,
		quota:       quota,
		clock:       newStampClock(time.Now),
		log:         log.With("module", "file_service"),
	}
}

func newObjectKey(userID string) string {
	return userID + "/" + uuid.NewString()
}

func checkCount(count int) error {
	if count < 1 || count > MaxURLCount {
		return fmt.Errorf("%w: count must be within 1..%d", common.ErrInvalidArgument, MaxURLCount)
	}
	return nil
}

func (s *fileService) UploadURLs(ctx context.Context, userID string, count int) ([]UploadTarget, error) {
	if err := checkCount(count); err != nil {
		return nil, err
	}

	targets := make([]UploadTarget, 0, count)
	for range count {
		key := newObjectKey(userID)
		u, err := s.store.PutURL(ctx, key)
		if err != nil {
			return nil, err
		}
		targets = append(targets, UploadTarget{ObjectKey: key, URL: u})
	}
	return targets, nil
}

func (s *fileService) MultipartUploadURLs(ctx context.Context, userID string, count, partCount int) ([]MultipartTarget, error) {
	if err := checkCount(count); err != nil {
		return nil, err
	}
	if partCount < 1 || partCount > MaxPartCount {
		return nil, fmt.Errorf("%w: part count must be within 1..%d", common.ErrInvalidArgument, MaxPartCount)
	}

	targets := make([]MultipartTarget, 0, count)
	for range count {
		key := newObjectKey(userID)
		m, err := s.store.StartMultipart(ctx, key, partCount)
		if err != nil {
			return nil, err
		}
		complete, err := s.signer.CompleteURL(key, m.UploadID)
		if err != nil {
			return nil, err
		}
		targets = append(targets, MultipartTarget{ObjectKey: key, PartURLs: m.PartURLs, CompleteURL: complete})
	}
	return targets, nil
}

func validateFile(userID string, f *models.File) error {
	var errs []error
	if f.CollectionID <= 0 {
		errs = append(errs, errors.New("collection id is required"))
	}
	if len(f.EncryptedKey) == 0 || len(f.KeyNonce) == 0 {
		errs = append(errs, errors.New("encrypted key and nonce are required"))
	}
	if f.MetadataData == "" || f.MetadataHeader == "" {
		errs = append(errs, errors.New("metadata is required"))
	}
	for _, o := range []models.Object{f.File, f.Thumbnail} {
		if !strings.HasPrefix(o.Key, userID+"/") {
			errs = append(errs, fmt.Errorf("object %q is not owned by the caller", o.Key))
		}
		if len(o.Header) == 0 {
			errs = append(errs, fmt.Errorf("object %q has no decryption header", o.Key))
		}
	}
	if f.File.Key == f.Thumbnail.Key {
		errs = append(errs, errors.New("file and thumbnail share an object"))
	}
	if f.PublicMagic != nil && f.PublicMagic.Version < 0 {
		errs = append(errs, errors.New("negative magic metadata version"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidArgument, err)
	}
	return nil
}

// objectSize returns the stored size of o, which must match a declared
// non-zero size.
func (s *fileService) objectSize(ctx context.Context, o models.Object) (int64, error) {
	size, err := s.store.Size(ctx, o.Key)
	if errors.Is(err, common.ErrorNotFound) {
		return 0, fmt.Errorf("%w: object %s was not uploaded", common.ErrInvalidArgument, o.Key)
	}
	if err != nil {
		return 0, err
	}
	if o.Size != 0 && o.Size != size {
		return 0, fmt.Errorf("%w: object %s holds %d bytes, %d declared", common.ErrInvalidArgument, o.Key, size, o.Size)
	}
	return size, nil
}

func (s *fileService) CreateFile(ctx context.Context, userID string, f *models.File) (*models.File, error) {
	if err := validateFile(userID, f); err != nil {
		return nil, err
	}

	var err error
	if f.File.Size, err = s.objectSize(ctx, f.File); err != nil {
		return nil, err
	}
	if f.Thumbnail.Size, err = s.objectSize(ctx, f.Thumbnail); err != nil {
		return nil, err
	}

	f.OwnerID = userID
	f.Magic = nil

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Files(tx)

		if s.quota > 0 {
			used, err := repo.Usage(ctx, userID)
			if err != nil {
				return err
			}
			if used+f.File.Size+f.Thumbnail.Size > s.quota {
				return common.ErrStorageQuotaExceeded
			}
		}

		f.UpdatedAt = s.clock.Next()
		return repo.Create(ctx, f)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "file created", "user_id", userID, "file_id", f.ID, "collection_id", f.CollectionID, "size", f.File.Size)
	return f, nil
}

func (s *fileService) AddToCollection(ctx context.Context, userID string, fileID, collectionID int64, encryptedKey, keyNonce []byte) (*models.File, error) {
	if fileID <= 0 || collectionID <= 0 || len(encryptedKey) == 0 || len(keyNonce) == 0 {
		return nil, fmt.Errorf("%w: file, collection, key and nonce are required", common.ErrInvalidArgument)
	}

	var f *models.File
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Files(tx)
		if err := repo.Owns(ctx, userID, fileID); err != nil {
			return err
		}
		if err := repo.Link(ctx, fileID, collectionID, encryptedKey, keyNonce, s.clock.Next()); err != nil {
			return err
		}
		var err error
		f, err = repo.Get(ctx, userID, fileID, collectionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (s *fileService) UpdateMagic(ctx context.Context, userID string, tier models.MagicTier, updates []models.MagicUpdate) error {
	if len(updates) == 0 {
		return fmt.Errorf("%w: empty metadata list", common.ErrInvalidArgument)
	}
	for _, u := range updates {
		if u.FileID <= 0 || u.Magic.Data == "" || u.Magic.Header == "" || u.Magic.Version < 0 {
			return fmt.Errorf("%w: malformed entry for file %d", common.ErrInvalidArgument, u.FileID)
		}
	}

	now := s.clock.Next()
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Files(tx)
		for _, u := range updates {
			if err := repo.UpdateMagic(ctx, userID, tier, u, now); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, common.ErrVersionConflict) {
		s.log.Warn(ctx, "magic metadata version conflict", "user_id", userID, "files", len(updates))
	}
	return err
}

func (s *fileService) ListFiles(ctx context.Context, userID string, collectionID, since int64, limit int) ([]*models.File, bool, error) {
	if collectionID <= 0 || since < 0 {
		return nil, false, fmt.Errorf("%w: collection id and since time", common.ErrInvalidArgument)
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)

	list, err := s.repomanager.Files(s.db).List(ctx, userID, collectionID, since, limit+1)
	if err != nil {
		return nil, false, err
	}
	if len(list) > limit {
		return list[:limit], true, nil
	}
	return list, false, nil
}
