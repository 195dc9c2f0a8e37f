package grpc

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/SecurityWorks/ente/internal/common"
	"github.com/SecurityWorks/ente/internal/logging"
	"github.com/SecurityWorks/ente/internal/rpc"
	"github.com/SecurityWorks/ente/internal/server/auth"
	"github.com/SecurityWorks/ente/internal/server/models"
	"github.com/SecurityWorks/ente/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
)

const testSecret = "secret"

// ---- fakes ----

type fakeFiles struct {
	userID  string
	tier    models.MagicTier
	updates []models.MagicUpdate
	created *models.File
	since   int64
	err     error
	panic   bool
}

func (f *fakeFiles) UploadURLs(ctx context.Context, userID string, count int) ([]services.UploadTarget, error) {
	f.userID = userID
	if f.panic {
		panic("boom")
	}
	out := make([]services.UploadTarget, count)
	for i := range out {
		out[i] = services.UploadTarget{ObjectKey: userID + "/k", URL: "https://u"}
	}
	return out, f.err
}

func (f *fakeFiles) MultipartUploadURLs(ctx context.Context, userID string, count, partCount int) ([]services.MultipartTarget, error) {
	f.userID = userID
	return []services.MultipartTarget{{ObjectKey: "k", PartURLs: make([]string, partCount), CompleteURL: "https://c"}}, f.err
}

func (f *fakeFiles) CreateFile(ctx context.Context, userID string, file *models.File) (*models.File, error) {
	f.userID = userID
	f.created = file
	if f.err != nil {
		return nil, f.err
	}
	file.ID = 11
	file.OwnerID = userID
	file.UpdatedAt = 123
	return file, nil
}

func (f *fakeFiles) AddToCollection(ctx context.Context, userID string, fileID, collectionID int64, encryptedKey, keyNonce []byte) (*models.File, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.File{ID: fileID, CollectionID: collectionID, EncryptedKey: encryptedKey}, nil
}

func (f *fakeFiles) UpdateMagic(ctx context.Context, userID string, tier models.MagicTier, updates []models.MagicUpdate) error {
	f.tier = tier
	f.updates = updates
	return f.err
}

func (f *fakeFiles) ListFiles(ctx context.Context, userID string, collectionID, since int64, limit int) ([]*models.File, bool, error) {
	f.since = since
	if f.err != nil {
		return nil, false, f.err
	}
	return []*models.File{{ID: 1, CollectionID: collectionID, PublicMagic: &models.Magic{Version: 3}}}, true, nil
}

// ---- helpers ----

// dial starts the server on an in-memory listener and returns a client.
func dial(t *testing.T, files services.FileService) *rpc.FileServiceClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := NewGRPCServer("bufnet", logging.Discard(), files, testSecret)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("server did not stop")
		}
	})
	return rpc.NewFileServiceClient(conn)
}

func authed(t *testing.T, userID string) context.Context {
	t.Helper()
	tok, err := auth.GenerateToken(userID, []byte(testSecret), time.Hour)
	require.NoError(t, err)
	return metadata.AppendToOutgoingContext(context.Background(), common.AccessTokenHeaderName, tok)
}

// ---- tests ----

func TestPing_NeedsNoToken(t *testing.T) {
	c := dial(t, &fakeFiles{})
	resp, err := c.Ping(context.Background(), &emptypb.Empty{})
	require.NoError(t, err)
	assert.Equal(t, "OK", resp.GetValue())
}

func TestAccessToken(t *testing.T) {
	c := dial(t, &fakeFiles{})

	_, err := c.GetUploadURLs(context.Background(), &rpc.GetUploadURLsRequest{Count: 1})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	bad := metadata.AppendToOutgoingContext(context.Background(), common.AccessTokenHeaderName, "garbage")
	_, err = c.GetUploadURLs(bad, &rpc.GetUploadURLsRequest{Count: 1})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	expired, err := auth.GenerateToken("u1", []byte(testSecret), -time.Minute)
	require.NoError(t, err)
	_, err = c.GetUploadURLs(metadata.AppendToOutgoingContext(context.Background(), common.AccessTokenHeaderName, expired), &rpc.GetUploadURLsRequest{Count: 1})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestUploadURLs_RoundTrip(t *testing.T) {
	files := &fakeFiles{}
	c := dial(t, files)

	resp, err := c.GetUploadURLs(authed(t, "u1"), &rpc.GetUploadURLsRequest{Count: 2})
	require.NoError(t, err)
	assert.Len(t, resp.URLs, 2)
	assert.Equal(t, "u1", files.userID)
	assert.Equal(t, "u1/k", resp.URLs[0].ObjectKey)

	mp, err := c.GetMultipartUploadURLs(authed(t, "u1"), &rpc.GetMultipartUploadURLsRequest{Count: 1, PartCount: 3})
	require.NoError(t, err)
	require.Len(t, mp.URLs, 1)
	assert.Len(t, mp.URLs[0].PartURLs, 3)
	assert.Equal(t, "https://c", mp.URLs[0].CompleteURL)
}

func TestCreateFile_RoundTrip(t *testing.T) {
	files := &fakeFiles{}
	c := dial(t, files)

	rec, err := c.CreateFile(authed(t, "u1"), &rpc.CreateFileRequest{
		CollectionID:       5,
		EncryptedKey:       []byte("ek"),
		KeyDecryptionNonce: []byte("n"),
		File:               rpc.ObjectAttributes{ObjectKey: "u1/f", DecryptionHeader: []byte("h"), Size: 9},
		Thumbnail:          rpc.ObjectAttributes{ObjectKey: "u1/t", DecryptionHeader: []byte("th")},
		Metadata:           rpc.MetadataAttributes{EncryptedData: "md", DecryptionHeader: "mh"},
		PubMagicMetadata:   &rpc.MagicMetadata{Count: 1, Data: "pd", Header: "ph"},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 11, rec.ID)
	assert.Equal(t, "u1", rec.OwnerID)
	assert.EqualValues(t, 123, rec.UpdationTime)
	assert.Equal(t, []byte("h"), rec.File.DecryptionHeader)
	require.NotNil(t, rec.PubMagicMetadata)
	assert.Equal(t, "pd", rec.PubMagicMetadata.Data)
	assert.Nil(t, rec.MagicMetadata)

	require.NotNil(t, files.created)
	assert.Equal(t, []byte("n"), files.created.KeyNonce)
	assert.Equal(t, "mh", files.created.MetadataHeader)
}

func TestUpdateMagic_SelectsTier(t *testing.T) {
	files := &fakeFiles{}
	c := dial(t, files)
	req := &rpc.UpdateMagicMetadataRequest{MetadataList: []rpc.UpdateMagicMetadataEntry{
		{ID: 7, MagicMetadata: rpc.MagicMetadata{Version: 2, Count: 1, Data: "d", Header: "h"}},
	}}

	_, err := c.UpdatePublicMagicMetadata(authed(t, "u1"), req)
	require.NoError(t, err)
	assert.Equal(t, models.TierPublic, files.tier)
	require.Len(t, files.updates, 1)
	assert.EqualValues(t, 2, files.updates[0].Magic.Version)

	_, err = c.UpdateMagicMetadata(authed(t, "u1"), req)
	require.NoError(t, err)
	assert.Equal(t, models.TierPrivate, files.tier)
}

func TestListFiles_RoundTrip(t *testing.T) {
	files := &fakeFiles{}
	c := dial(t, files)

	resp, err := c.ListFiles(authed(t, "u1"), &rpc.ListFilesRequest{CollectionID: 5, SinceTime: 99})
	require.NoError(t, err)
	assert.True(t, resp.HasMore)
	require.Len(t, resp.Files, 1)
	assert.EqualValues(t, 5, resp.Files[0].CollectionID)
	assert.EqualValues(t, 3, resp.Files[0].PubMagicMetadata.Version)
	assert.EqualValues(t, 99, files.since)
}

func TestErrorCodes(t *testing.T) {
	tests := []struct {
		err  error
		code codes.Code
	}{
		{common.ErrVersionConflict, codes.Aborted},
		{common.ErrStorageQuotaExceeded, codes.ResourceExhausted},
		{common.ErrorNotFound, codes.NotFound},
		{common.ErrInvalidArgument, codes.InvalidArgument},
		{common.ErrorUnauthorized, codes.PermissionDenied},
		{errors.New("db down"), codes.Internal},
	}

	files := &fakeFiles{}
	c := dial(t, files)
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			files.err = tt.err
			_, err := c.AddToCollection(authed(t, "u1"), &rpc.AddToCollectionRequest{FileID: 1, CollectionID: 2})
			assert.Equal(t, tt.code, status.Code(err))
		})
	}
}

func TestRecoversFromPanic(t *testing.T) {
	c := dial(t, &fakeFiles{panic: true})
	_, err := c.GetUploadURLs(authed(t, "u1"), &rpc.GetUploadURLsRequest{Count: 1})
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestRun_ReturnsErrorOnBadAddress(t *testing.T) {
	srv := NewGRPCServer("127.0.0.1:99999", logging.Discard(), &fakeFiles{}, testSecret)
	require.Error(t, srv.Run(context.Background()))
}
