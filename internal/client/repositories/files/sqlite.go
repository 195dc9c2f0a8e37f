package files

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/SecurityWorks/ente/internal/client/models"
	"github.com/SecurityWorks/ente/internal/common"
	"github.com/SecurityWorks/ente/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const fileColumns = `id, collection_id, owner_id, encrypted_key, key_nonce,
	file_object_key, file_header, file_size,
	thumb_object_key, thumb_header, thumb_size,
	metadata, updated_at`

func (r *SQLiteRepository) Upsert(ctx context.Context, f *models.File) error {
	md, err := json.Marshal(f.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	query := `INSERT INTO files (` + fileColumns + `, hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, collection_id) DO UPDATE SET
			owner_id = excluded.owner_id,
			encrypted_key = excluded.encrypted_key,
			key_nonce = excluded.key_nonce,
			file_object_key = excluded.file_object_key,
			file_header = excluded.file_header,
			file_size = excluded.file_size,
			thumb_object_key = excluded.thumb_object_key,
			thumb_header = excluded.thumb_header,
			thumb_size = excluded.thumb_size,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at,
			hash = excluded.hash`

	_, err = r.db.ExecContext(ctx, query,
		f.ID, f.CollectionID, f.OwnerID, f.EncryptedKey, f.KeyNonce,
		f.File.ObjectKey, f.File.DecryptionHeader, f.File.Size,
		f.Thumbnail.ObjectKey, f.Thumbnail.DecryptionHeader, f.Thumbnail.Size,
		string(md), f.UpdatedAt, f.Metadata.ContentIdentity(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert file %d: %w", f.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id, collectionID int64) (*models.File, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+fileColumns+` FROM files WHERE id = ? AND collection_id = ?`, id, collectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get file %d: %w", id, err)
	}
	files, err := r.scanFiles(ctx, rows)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, common.ErrorNotFound
	}
	return files[0], nil
}

func (r *SQLiteRepository) ListByCollection(ctx context.Context, collectionID int64) ([]*models.File, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+fileColumns+` FROM files WHERE collection_id = ?`, collectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	files, err := r.scanFiles(ctx, rows)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(files, func(i, j int) bool {
		return files[i].Metadata.CreationTime > files[j].Metadata.CreationTime
	})
	return files, nil
}

func (r *SQLiteRepository) FindByHash(ctx context.Context, hash string) ([]*models.File, error) {
	if hash == "" {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+fileColumns+` FROM files WHERE hash = ?`, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to find files by hash: %w", err)
	}
	return r.scanFiles(ctx, rows)
}

func (r *SQLiteRepository) scanFiles(ctx context.Context, rows *sql.Rows) ([]*models.File, error) {
	var out []*models.File
	for rows.Next() {
		f := &models.File{}
		var md string
		if err := rows.Scan(&f.ID, &f.CollectionID, &f.OwnerID, &f.EncryptedKey, &f.KeyNonce,
			&f.File.ObjectKey, &f.File.DecryptionHeader, &f.File.Size,
			&f.Thumbnail.ObjectKey, &f.Thumbnail.DecryptionHeader, &f.Thumbnail.Size,
			&md, &f.UpdatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan file row: %w", err)
		}
		if err := json.Unmarshal([]byte(md), &f.Metadata); err != nil {
			rows.Close()
			return nil, fmt.Errorf("decode metadata of file %d: %w", f.ID, err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to iterate file rows: %w", err)
	}
	rows.Close()

	// Tiers are loaded after the cursor is closed; a single-connection
	// sqlite pool cannot serve a second query while rows are open.
	for _, f := range out {
		var err error
		if f.PrivateMagic, err = r.GetMagic(ctx, f.ID, models.TierPrivate); err != nil {
			return nil, err
		}
		if f.PublicMagic, err = r.GetMagic(ctx, f.ID, models.TierPublic); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// GetMagic returns nil, nil when the tier is not cached.
func (r *SQLiteRepository) GetMagic(ctx context.Context, fileID int64, tier models.MagicTier) (*models.MagicMetadata, error) {
	var (
		m    models.MagicMetadata
		data string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT version, data, provisional FROM magic_metadata WHERE file_id = ? AND tier = ?`,
		fileID, int(tier)).Scan(&m.Version, &data, &m.Provisional)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s tier of file %d: %w", tier, fileID, err)
	}

	if err := json.Unmarshal([]byte(data), &m.Data); err != nil {
		return nil, fmt.Errorf("decode %s tier of file %d: %w", tier, fileID, err)
	}
	if m.Data == nil {
		m.Data = map[string]any{}
	}
	return &m, nil
}

// PutMagic replaces the cached tier.
func (r *SQLiteRepository) PutMagic(ctx context.Context, fileID int64, tier models.MagicTier, m *models.MagicMetadata) error {
	data, err := json.Marshal(m.Data)
	if err != nil {
		return fmt.Errorf("marshal %s tier: %w", tier, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO magic_metadata (file_id, tier, version, data, provisional) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(file_id, tier) DO UPDATE SET
			version = excluded.version,
			data = excluded.data,
			provisional = excluded.provisional`,
		fileID, int(tier), m.Version, string(data), m.Provisional)
	if err != nil {
		return fmt.Errorf("failed to put %s tier of file %d: %w", tier, fileID, err)
	}
	return nil
}
