package files

import (
	"context"
	"database/sql"
	"testing"

	"github.com/SecurityWorks/ente/internal/client/client"
	"github.com/SecurityWorks/ente/internal/client/magic"
	"github.com/SecurityWorks/ente/internal/client/models"
	"github.com/SecurityWorks/ente/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ magic.Cache = (*SQLiteRepository)(nil)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func sampleFile(id, collectionID int64, hash string, created int64) *models.File {
	lat, lng := 52.37, 4.89
	return &models.File{
		ID:           id,
		OwnerID:      "u1",
		CollectionID: collectionID,
		EncryptedKey: []byte("sealed"),
		KeyNonce:     []byte("nonce"),
		File:         models.ObjectAttributes{ObjectKey: "obj", DecryptionHeader: []byte{1, 2}, Size: 1000},
		Thumbnail:    models.ObjectAttributes{ObjectKey: "thumb", DecryptionHeader: []byte{3}, Size: 10},
		Metadata: models.Metadata{
			FileType:     models.FileTypeImage,
			Title:        "IMG_0001.jpg",
			CreationTime: created,
			Latitude:     &lat,
			Longitude:    &lng,
			Hash:         hash,
		},
		UpdatedAt: 77,
	}
}

func TestUpsertAndGet(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	f := sampleFile(1, 10, "h1", 100)
	require.NoError(t, r.Upsert(ctx, f))

	got, err := r.Get(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, f, got)

	f.Metadata.Title = "renamed.jpg"
	f.UpdatedAt = 78
	require.NoError(t, r.Upsert(ctx, f))
	got, err = r.Get(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, "renamed.jpg", got.Metadata.Title)
	assert.EqualValues(t, 78, got.UpdatedAt)

	_, err = r.Get(ctx, 1, 11)
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestListByCollection_NewestFirst(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Upsert(ctx, sampleFile(1, 10, "h1", 100)))
	require.NoError(t, r.Upsert(ctx, sampleFile(2, 10, "h2", 300)))
	require.NoError(t, r.Upsert(ctx, sampleFile(3, 20, "h3", 200)))

	files, err := r.ListByCollection(ctx, 10)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.EqualValues(t, 2, files[0].ID)
	assert.EqualValues(t, 1, files[1].ID)
}

func TestFindByHash_AcrossCollections(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Upsert(ctx, sampleFile(1, 10, "same", 100)))
	require.NoError(t, r.Upsert(ctx, sampleFile(1, 20, "same", 100)))
	require.NoError(t, r.Upsert(ctx, sampleFile(2, 10, "other", 100)))

	files, err := r.FindByHash(ctx, "same")
	require.NoError(t, err)
	assert.Len(t, files, 2)

	files, err = r.FindByHash(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, files, "an absent hash never matches")
}

func TestMagicTiers(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	m, err := r.GetMagic(ctx, 1, models.TierPublic)
	require.NoError(t, err)
	assert.Nil(t, m)

	require.NoError(t, r.PutMagic(ctx, 1, models.TierPublic, &models.MagicMetadata{
		Version:     3,
		Data:        map[string]any{models.KeyCaption: "hi", models.KeyWidth: 640},
		Provisional: true,
	}))
	require.NoError(t, r.PutMagic(ctx, 1, models.TierPrivate, &models.MagicMetadata{
		Version: 1,
		Data:    map[string]any{models.KeyVisibility: 2},
	}))

	m, err = r.GetMagic(ctx, 1, models.TierPublic)
	require.NoError(t, err)
	assert.EqualValues(t, 3, m.Version)
	assert.True(t, m.Provisional)
	caption, _ := m.GetString(models.KeyCaption)
	assert.Equal(t, "hi", caption)
	w, ok := m.GetInt(models.KeyWidth)
	require.True(t, ok)
	assert.EqualValues(t, 640, w)

	require.NoError(t, r.PutMagic(ctx, 1, models.TierPublic, &models.MagicMetadata{Version: 4, Data: map[string]any{}}))
	m, err = r.GetMagic(ctx, 1, models.TierPublic)
	require.NoError(t, err)
	assert.False(t, m.Provisional)
	assert.Empty(t, m.Data, "replace, not merge")

	require.NoError(t, r.Upsert(ctx, sampleFile(1, 10, "h", 1)))
	f, err := r.Get(ctx, 1, 10)
	require.NoError(t, err)
	require.NotNil(t, f.PrivateMagic)
	assert.Equal(t, models.VisibilityHidden, f.DisplayMetadata().Visibility)
}
