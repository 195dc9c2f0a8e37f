package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/SecurityWorks/ente/internal/common"
	"github.com/SecurityWorks/ente/internal/dbx"
	"github.com/SecurityWorks/ente/internal/server/models"
)

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const fileColumns = `
	f.id, f.owner_id, cf.collection_id, cf.encrypted_key, cf.key_nonce,
	f.file_object_key, f.file_header, f.file_size,
	f.thumb_object_key, f.thumb_header, f.thumb_size,
	f.metadata_data, f.metadata_header,
	f.magic_version, f.magic_count, f.magic_data, f.magic_header,
	f.pub_version, f.pub_count, f.pub_data, f.pub_header,
	GREATEST(f.updated_at, cf.updated_at) AS changed`

func (r *PostgresRepository) Create(ctx context.Context, f *models.File) error {
	query := `
		INSERT INTO files (owner_id, file_object_key, file_header, file_size,
			thumb_object_key, thumb_header, thumb_size, metadata_data, metadata_header,
			pub_version, pub_count, pub_data, pub_header, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id`

	pub := magicArgs(f.PublicMagic)
	err := r.db.QueryRowContext(ctx, query,
		f.OwnerID, f.File.Key, f.File.Header, f.File.Size,
		f.Thumbnail.Key, f.Thumbnail.Header, f.Thumbnail.Size,
		f.MetadataData, f.MetadataHeader,
		pub.version, pub.count, pub.data, pub.header, f.UpdatedAt,
	).Scan(&f.ID)
	if err != nil {
		return fmt.Errorf("insert file: %w", err)
	}

	return r.Link(ctx, f.ID, f.CollectionID, f.EncryptedKey, f.KeyNonce, f.UpdatedAt)
}

func (r *PostgresRepository) Link(ctx context.Context, fileID, collectionID int64, encryptedKey, keyNonce []byte, now int64) error {
	query := `
		INSERT INTO collection_files (collection_id, file_id, encrypted_key, key_nonce, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (collection_id, file_id)
		DO UPDATE SET
			encrypted_key = EXCLUDED.encrypted_key,
			key_nonce = EXCLUDED.key_nonce,
			updated_at = EXCLUDED.updated_at`

	if _, err := r.db.ExecContext(ctx, query, collectionID, fileID, encryptedKey, keyNonce, now); err != nil {
		return fmt.Errorf("link file %d into collection %d: %w", fileID, collectionID, err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, ownerID string, fileID, collectionID int64) (*models.File, error) {
	query := `SELECT ` + fileColumns + `
		FROM collection_files cf JOIN files f ON f.id = cf.file_id
		WHERE f.owner_id = $1 AND f.id = $2 AND cf.collection_id = $3`

	rows, err := r.db.QueryContext(ctx, query, ownerID, fileID, collectionID)
	if err != nil {
		return nil, fmt.Errorf("select file: %w", err)
	}
	list, err := scanFiles(rows)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, common.ErrorNotFound
	}
	return list[0], nil
}

func (r *PostgresRepository) Owns(ctx context.Context, ownerID string, fileID int64) error {
	var id int64
	err := r.db.QueryRowContext(ctx, `SELECT id FROM files WHERE owner_id = $1 AND id = $2`, ownerID, fileID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrorNotFound
	}
	if err != nil {
		return fmt.Errorf("select file owner: %w", err)
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context, ownerID string, collectionID, since int64, limit int) ([]*models.File, error) {
	query := `SELECT ` + fileColumns + `
		FROM collection_files cf JOIN files f ON f.id = cf.file_id
		WHERE cf.collection_id = $1 AND f.owner_id = $2
			AND GREATEST(f.updated_at, cf.updated_at) > $3
		ORDER BY changed, f.id
		LIMIT $4`

	rows, err := r.db.QueryContext(ctx, query, collectionID, ownerID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return scanFiles(rows)
}

func (r *PostgresRepository) UpdateMagic(ctx context.Context, ownerID string, tier models.MagicTier, u models.MagicUpdate, now int64) error {
	prefix := "magic"
	if tier == models.TierPublic {
		prefix = "pub"
	}
	query := fmt.Sprintf(`
		UPDATE files SET
			%[1]s_version = %[1]s_version + 1,
			%[1]s_count = $1, %[1]s_data = $2, %[1]s_header = $3,
			updated_at = $4
		WHERE id = $5 AND owner_id = $6 AND %[1]s_version = $7`, prefix)

	res, err := r.db.ExecContext(ctx, query,
		u.Magic.Count, u.Magic.Data, u.Magic.Header, now, u.FileID, ownerID, u.Magic.Version)
	if err != nil {
		return fmt.Errorf("update magic of file %d: %w", u.FileID, err)
	}
	if err := dbx.ExactlyOne(res, common.ErrVersionConflict); err != nil {
		if errors.Is(err, common.ErrVersionConflict) {
			// a missing file is not a conflict
			if ownErr := r.Owns(ctx, ownerID, u.FileID); ownErr != nil {
				return ownErr
			}
		}
		return err
	}
	return nil
}

func (r *PostgresRepository) Usage(ctx context.Context, ownerID string) (int64, error) {
	var n int64
	query := `SELECT COALESCE(SUM(file_size + thumb_size), 0) FROM files WHERE owner_id = $1`
	if err := r.db.QueryRowContext(ctx, query, ownerID).Scan(&n); err != nil {
		return 0, fmt.Errorf("usage: %w", err)
	}
	return n, nil
}

type magicColumns struct {
	version int64
	count   int
	data    sql.NullString
	header  sql.NullString
}

func magicArgs(m *models.Magic) magicColumns {
	if m == nil {
		return magicColumns{}
	}
	return magicColumns{
		version: m.Version,
		count:   m.Count,
		data:    sql.NullString{String: m.Data, Valid: true},
		header:  sql.NullString{String: m.Header, Valid: true},
	}
}

func (c magicColumns) model() *models.Magic {
	if !c.data.Valid {
		return nil
	}
	return &models.Magic{Version: c.version, Count: c.count, Data: c.data.String, Header: c.header.String}
}

func scanFiles(rows *sql.Rows) ([]*models.File, error) {
	defer rows.Close()

	var result []*models.File
	for rows.Next() {
		var f models.File
		var priv, pub magicColumns
		if err := rows.Scan(
			&f.ID, &f.OwnerID, &f.CollectionID, &f.EncryptedKey, &f.KeyNonce,
			&f.File.Key, &f.File.Header, &f.File.Size,
			&f.Thumbnail.Key, &f.Thumbnail.Header, &f.Thumbnail.Size,
			&f.MetadataData, &f.MetadataHeader,
			&priv.version, &priv.count, &priv.data, &priv.header,
			&pub.version, &pub.count, &pub.data, &pub.header,
			&f.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		f.Magic = priv.model()
		f.PublicMagic = pub.model()
		result = append(result, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
