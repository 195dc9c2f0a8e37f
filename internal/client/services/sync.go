package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/SecurityWorks/ente/internal/client/magic"
	"github.com/SecurityWorks/ente/internal/client/models"
	"github.com/SecurityWorks/ente/internal/client/records"
	"github.com/SecurityWorks/ente/internal/client/repositories/files"
	"github.com/SecurityWorks/ente/internal/client/repositories/metadata"
	"github.com/SecurityWorks/ente/internal/cryptox"
	"github.com/SecurityWorks/ente/internal/dbx"
	"github.com/SecurityWorks/ente/internal/logging"
	"github.com/SecurityWorks/ente/internal/rpc"
)

// FileLister pages through the changes of a collection.
type FileLister interface {
	ListFiles(ctx context.Context, collectionID, sinceTime int64) ([]rpc.FileRecord, bool, error)
}

// SyncService pulls the authoritative state of a collection into the local
// cache. Pulled magic tiers replace cached ones wholesale, which is how
// provisional values written by the update path get confirmed or dropped.
type SyncService interface {
	// Sync returns the number of records applied.
	Sync(ctx context.Context, collectionID int64) (int, error)
}

type syncService struct {
	api   FileLister
	db    *sql.DB
	magic *magic.Store
	keys  *cryptox.KeyRing
	log   logging.Logger
}

func NewSyncService(api FileLister, db *sql.DB, store *magic.Store, keys *cryptox.KeyRing, log logging.Logger) SyncService {
	return &syncService{api: api, db: db, magic: store, keys: keys, log: log.With("module", "sync")}
}

func (s *syncService) Sync(ctx context.Context, collectionID int64) (int, error) {
	meta := metadata.NewSQLiteRepository(s.db)
	cursorKey := metadata.LastSyncKey(collectionID)

	since, err := meta.GetInt64(ctx, cursorKey)
	if err != nil {
		return 0, err
	}

	applied := 0
	for {
		recs, hasMore, err := s.api.ListFiles(ctx, collectionID, since)
		if err != nil {
			return applied, fmt.Errorf("list files since %d: %w", since, err)
		}

		batch := make([]*models.File, 0, len(recs))
		next := since
		for i := range recs {
			next = max(next, recs[i].UpdationTime)

			f, err := records.Decrypt(&recs[i], s.keys)
			if err != nil {
				s.log.Warn(ctx, "skipping undecryptable file", "file_id", recs[i].ID, "error", err)
				continue
			}
			batch = append(batch, f)
		}

		if err := s.apply(ctx, batch); err != nil {
			return applied, err
		}
		if err := meta.SetInt64(ctx, cursorKey, next); err != nil {
			return applied, err
		}
		applied += len(batch)

		s.log.Debug(ctx, "sync page applied", "collection_id", collectionID, "files", len(batch), "cursor", next)
		if !hasMore || next == since {
			break
		}
		since = next
	}

	s.log.Info(ctx, "collection synced", "collection_id", collectionID, "files", applied)
	return applied, nil
}

// apply writes the file rows in one transaction, then hands the tiers to the
// magic store.
func (s *syncService) apply(ctx context.Context, batch []*models.File) error {
	if len(batch) == 0 {
		return nil
	}
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := files.NewSQLiteRepository(tx)
		for _, f := range batch {
			if err := repo.Upsert(ctx, f); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return s.magic.Reconcile(ctx, batch)
}
