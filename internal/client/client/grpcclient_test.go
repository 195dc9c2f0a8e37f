package client

import (
	"context"
	"errors"
	"testing"

	"github.com/SecurityWorks/ente/internal/client/models"
	"github.com/SecurityWorks/ente/internal/common"
	"github.com/SecurityWorks/ente/internal/rpc"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

/*************
 * Fake file service
 *************/

type fakeRPC struct {
	// inputs captured
	lastUploadURLsReq    *rpc.GetUploadURLsRequest
	lastMultipartReq     *rpc.GetMultipartUploadURLsRequest
	lastCreateReq        *rpc.CreateFileRequest
	lastAddReq           *rpc.AddToCollectionRequest
	lastPrivateUpdateReq *rpc.UpdateMagicMetadataRequest
	lastPublicUpdateReq  *rpc.UpdateMagicMetadataRequest
	lastListReq          *rpc.ListFilesRequest

	// outputs preset
	pingResp *wrapperspb.StringValue
	pingErr  error

	uploadURLsResp *rpc.UploadURLsResponse
	multipartResp  *rpc.MultipartUploadURLsResponse
	createResp     *rpc.FileRecord
	listResp       *rpc.ListFilesResponse

	err error
}

func (f *fakeRPC) Ping(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	return f.pingResp, f.pingErr
}
func (f *fakeRPC) GetUploadURLs(ctx context.Context, in *rpc.GetUploadURLsRequest, opts ...grpc.CallOption) (*rpc.UploadURLsResponse, error) {
	f.lastUploadURLsReq = in
	return f.uploadURLsResp, f.err
}
func (f *fakeRPC) GetMultipartUploadURLs(ctx context.Context, in *rpc.GetMultipartUploadURLsRequest, opts ...grpc.CallOption) (*rpc.MultipartUploadURLsResponse, error) {
	f.lastMultipartReq = in
	return f.multipartResp, f.err
}
func (f *fakeRPC) CreateFile(ctx context.Context, in *rpc.CreateFileRequest, opts ...grpc.CallOption) (*rpc.FileRecord, error) {
	f.lastCreateReq = in
	return f.createResp, f.err
}
func (f *fakeRPC) AddToCollection(ctx context.Context, in *rpc.AddToCollectionRequest, opts ...grpc.CallOption) (*rpc.FileRecord, error) {
	f.lastAddReq = in
	return f.createResp, f.err
}
func (f *fakeRPC) UpdateMagicMetadata(ctx context.Context, in *rpc.UpdateMagicMetadataRequest, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	f.lastPrivateUpdateReq = in
	return &emptypb.Empty{}, f.err
}
func (f *fakeRPC) UpdatePublicMagicMetadata(ctx context.Context, in *rpc.UpdateMagicMetadataRequest, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	f.lastPublicUpdateReq = in
	return &emptypb.Empty{}, f.err
}
func (f *fakeRPC) ListFiles(ctx context.Context, in *rpc.ListFilesRequest, opts ...grpc.CallOption) (*rpc.ListFilesResponse, error) {
	f.lastListReq = in
	return f.listResp, f.err
}

/*************
 * accessTokenInterceptor tests
 *************/

func TestInterceptor_AttachesAccessToken(t *testing.T) {
	c := &GRPCClient{accessToken: "A1"}

	invoker := func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		md, _ := metadata.FromOutgoingContext(ctx)
		require.Equal(t, []string{"A1"}, md.Get(common.AccessTokenHeaderName))
		require.Equal(t, []string{"v"}, md.Get("other"))
		return nil
	}

	ctx := metadata.AppendToOutgoingContext(context.Background(), "other", "v", common.AccessTokenHeaderName, "stale")
	require.NoError(t, c.accessTokenInterceptor(ctx, rpc.PingMethod, nil, nil, nil, invoker))
}

func TestInterceptor_NoTokenConfigured(t *testing.T) {
	c := &GRPCClient{}

	invoker := func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		md, _ := metadata.FromOutgoingContext(ctx)
		require.Empty(t, md.Get(common.AccessTokenHeaderName))
		return status.Error(codes.Internal, "boom")
	}
	require.Error(t, c.accessTokenInterceptor(context.Background(), rpc.PingMethod, nil, nil, nil, invoker))
}

/*************
 * mapError tests
 *************/

func TestMapError(t *testing.T) {
	c := &GRPCClient{}

	require.NoError(t, c.mapError(nil))
	require.Equal(t, common.ErrorUnauthorized, c.mapError(status.Error(codes.Unauthenticated, "x")))
	require.Equal(t, common.ErrorUnauthorized, c.mapError(status.Error(codes.PermissionDenied, "x")))
	require.Equal(t, ErrUnavailable, c.mapError(status.Error(codes.Unavailable, "x")))
	require.Equal(t, ErrUnavailable, c.mapError(status.Error(codes.DeadlineExceeded, "x")))
	require.Equal(t, common.ErrVersionConflict, c.mapError(status.Error(codes.Aborted, "x")))
	require.Equal(t, common.ErrStorageQuotaExceeded, c.mapError(status.Error(codes.ResourceExhausted, "x")))
	require.Equal(t, common.ErrorNotFound, c.mapError(status.Error(codes.NotFound, "x")))
	require.ErrorIs(t, c.mapError(status.Error(codes.InvalidArgument, "bad size")), common.ErrInvalidArgument)
	require.ErrorContains(t, c.mapError(errors.New("plain")), "rpc error:")
}

/*************
 * call tests
 *************/

func TestPing(t *testing.T) {
	c := &GRPCClient{client: &fakeRPC{pingResp: wrapperspb.String("OK")}}
	require.NoError(t, c.Ping(context.Background()))

	c = &GRPCClient{client: &fakeRPC{pingResp: wrapperspb.String("DEGRADED")}}
	require.ErrorIs(t, c.Ping(context.Background()), ErrUnavailable)

	c = &GRPCClient{client: &fakeRPC{pingErr: status.Error(codes.Unavailable, "down")}}
	require.ErrorIs(t, c.Ping(context.Background()), ErrUnavailable)
}

func TestGetUploadURLs(t *testing.T) {
	f := &fakeRPC{uploadURLsResp: &rpc.UploadURLsResponse{URLs: []rpc.UploadURL{
		{ObjectKey: "a", URL: "https://s/a"},
		{ObjectKey: "b", URL: "https://s/b"},
	}}}
	c := &GRPCClient{client: f}

	urls, err := c.GetUploadURLs(context.Background(), 2)
	require.NoError(t, err)
	require.Equal(t, 2, f.lastUploadURLsReq.Count)
	require.Equal(t, []models.UploadURL{{ObjectKey: "a", URL: "https://s/a"}, {ObjectKey: "b", URL: "https://s/b"}}, urls)
}

func TestGetMultipartUploadURLs(t *testing.T) {
	f := &fakeRPC{multipartResp: &rpc.MultipartUploadURLsResponse{URLs: []rpc.MultipartUploadURLs{
		{ObjectKey: "mp", PartURLs: []string{"p1", "p2", "p3"}, CompleteURL: "done"},
	}}}
	c := &GRPCClient{client: f}

	set, err := c.GetMultipartUploadURLs(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, 3, f.lastMultipartReq.PartCount)
	require.Equal(t, 1, f.lastMultipartReq.Count)
	require.Equal(t, &models.MultipartUploadURLs{ObjectKey: "mp", PartURLs: []string{"p1", "p2", "p3"}, CompleteURL: "done"}, set)

	f.multipartResp = &rpc.MultipartUploadURLsResponse{}
	_, err = c.GetMultipartUploadURLs(context.Background(), 3)
	require.Error(t, err)
}

func TestCreateFile_QuotaExceeded(t *testing.T) {
	f := &fakeRPC{err: status.Error(codes.ResourceExhausted, "quota")}
	c := &GRPCClient{client: f}

	_, err := c.CreateFile(context.Background(), &rpc.CreateFileRequest{CollectionID: 3})
	require.ErrorIs(t, err, common.ErrStorageQuotaExceeded)
	require.EqualValues(t, 3, f.lastCreateReq.CollectionID)
}

func TestUpdateMagicMetadata_RoutesByTier(t *testing.T) {
	f := &fakeRPC{}
	c := &GRPCClient{client: f}
	entries := []models.UpdateMagicMetadataEntry{{
		ID:            9,
		MagicMetadata: models.MagicMetadataEnvelope{Version: 2, Count: 1, Data: "d", Header: "h"},
	}}

	require.NoError(t, c.UpdateMagicMetadata(context.Background(), models.TierPublic, entries))
	require.Nil(t, f.lastPrivateUpdateReq)
	require.Equal(t, []rpc.UpdateMagicMetadataEntry{{
		ID:            9,
		MagicMetadata: rpc.MagicMetadata{Version: 2, Count: 1, Data: "d", Header: "h"},
	}}, f.lastPublicUpdateReq.MetadataList)

	require.NoError(t, c.UpdateMagicMetadata(context.Background(), models.TierPrivate, entries))
	require.NotNil(t, f.lastPrivateUpdateReq)

	f.err = status.Error(codes.Aborted, "version mismatch")
	err := c.UpdateMagicMetadata(context.Background(), models.TierPrivate, entries)
	require.ErrorIs(t, err, common.ErrVersionConflict)
}

func TestListFiles(t *testing.T) {
	f := &fakeRPC{listResp: &rpc.ListFilesResponse{Files: []rpc.FileRecord{{ID: 1}}, HasMore: true}}
	c := &GRPCClient{client: f}

	files, more, err := c.ListFiles(context.Background(), 4, 100)
	require.NoError(t, err)
	require.True(t, more)
	require.Len(t, files, 1)
	require.Equal(t, &rpc.ListFilesRequest{CollectionID: 4, SinceTime: 100}, f.lastListReq)
}

func TestEnvelopeConversion(t *testing.T) {
	require.Nil(t, EnvelopeFromRPC(nil))

	in := models.MagicMetadataEnvelope{Version: 1, Count: 2, Data: "d", Header: "h"}
	out := EnvelopeFromRPC(&rpc.MagicMetadata{Version: 1, Count: 2, Data: "d", Header: "h"})
	require.Equal(t, &in, out)
	require.Equal(t, in, *EnvelopeFromRPC(func() *rpc.MagicMetadata { m := EnvelopeToRPC(in); return &m }()))
}
