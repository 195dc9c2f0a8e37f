package client

import (
	"context"
	"fmt"
	"time"

	"github.com/SecurityWorks/ente/internal/client/models"
	"github.com/SecurityWorks/ente/internal/common"
	"github.com/SecurityWorks/ente/internal/rpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type fileService interface {
	Ping(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	GetUploadURLs(ctx context.Context, in *rpc.GetUploadURLsRequest, opts ...grpc.CallOption) (*rpc.UploadURLsResponse, error)
	GetMultipartUploadURLs(ctx context.Context, in *rpc.GetMultipartUploadURLsRequest, opts ...grpc.CallOption) (*rpc.MultipartUploadURLsResponse, error)
	CreateFile(ctx context.Context, in *rpc.CreateFileRequest, opts ...grpc.CallOption) (*rpc.FileRecord, error)
	AddToCollection(ctx context.Context, in *rpc.AddToCollectionRequest, opts ...grpc.CallOption) (*rpc.FileRecord, error)
	UpdateMagicMetadata(ctx context.Context, in *rpc.UpdateMagicMetadataRequest, opts ...grpc.CallOption) (*emptypb.Empty, error)
	UpdatePublicMagicMetadata(ctx context.Context, in *rpc.UpdateMagicMetadataRequest, opts ...grpc.CallOption) (*emptypb.Empty, error)
	ListFiles(ctx context.Context, in *rpc.ListFilesRequest, opts ...grpc.CallOption) (*rpc.ListFilesResponse, error)
}

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      fileService
	accessToken string
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if s.accessToken != "" {
		ctx = withAccessToken(ctx, s.accessToken)
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

func NewGRPCClient(endpointURL, accessToken string) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, accessToken: accessToken}
	if err := c.InitGRPCClient(); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient() error {
	conn, err := grpc.NewClient(s.endpointURL,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor),
	)
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = rpc.NewFileServiceClient(conn)
	return nil
}

func (s *GRPCClient) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	resp, err := s.client.Ping(ctx, &emptypb.Empty{})
	if err != nil {
		return s.mapError(err)
	}
	if resp.GetValue() != "OK" {
		return ErrUnavailable
	}
	return nil
}

func (s *GRPCClient) GetUploadURLs(ctx context.Context, count int) ([]models.UploadURL, error) {
	resp, err := s.client.GetUploadURLs(ctx, &rpc.GetUploadURLsRequest{Count: count})
	if err != nil {
		return nil, s.mapError(err)
	}

	out := make([]models.UploadURL, 0, len(resp.URLs))
	for _, u := range resp.URLs {
		out = append(out, models.UploadURL{ObjectKey: u.ObjectKey, URL: u.URL})
	}
	return out, nil
}

func (s *GRPCClient) GetMultipartUploadURLs(ctx context.Context, partCount int) (*models.MultipartUploadURLs, error) {
	resp, err := s.client.GetMultipartUploadURLs(ctx, &rpc.GetMultipartUploadURLsRequest{Count: 1, PartCount: partCount})
	if err != nil {
		return nil, s.mapError(err)
	}
	if len(resp.URLs) != 1 {
		return nil, fmt.Errorf("expected one multipart url set, got %d", len(resp.URLs))
	}

	u := resp.URLs[0]
	return &models.MultipartUploadURLs{ObjectKey: u.ObjectKey, PartURLs: u.PartURLs, CompleteURL: u.CompleteURL}, nil
}

func (s *GRPCClient) CreateFile(ctx context.Context, req *rpc.CreateFileRequest) (*rpc.FileRecord, error) {
	resp, err := s.client.CreateFile(ctx, req)
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) AddToCollection(ctx context.Context, req *rpc.AddToCollectionRequest) (*rpc.FileRecord, error) {
	resp, err := s.client.AddToCollection(ctx, req)
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

// UpdateMagicMetadata replaces one tier of the listed files. A stale version
// yields common.ErrVersionConflict.
func (s *GRPCClient) UpdateMagicMetadata(ctx context.Context, tier models.MagicTier, entries []models.UpdateMagicMetadataEntry) error {
	req := &rpc.UpdateMagicMetadataRequest{MetadataList: make([]rpc.UpdateMagicMetadataEntry, 0, len(entries))}
	for _, e := range entries {
		req.MetadataList = append(req.MetadataList, rpc.UpdateMagicMetadataEntry{
			ID:            e.ID,
			MagicMetadata: EnvelopeToRPC(e.MagicMetadata),
		})
	}

	var err error
	if tier == models.TierPublic {
		_, err = s.client.UpdatePublicMagicMetadata(ctx, req)
	} else {
		_, err = s.client.UpdateMagicMetadata(ctx, req)
	}
	return s.mapError(err)
}

func (s *GRPCClient) ListFiles(ctx context.Context, collectionID, sinceTime int64) ([]rpc.FileRecord, bool, error) {
	resp, err := s.client.ListFiles(ctx, &rpc.ListFilesRequest{CollectionID: collectionID, SinceTime: sinceTime})
	if err != nil {
		return nil, false, s.mapError(err)
	}
	return resp.Files, resp.HasMore, nil
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return common.ErrorUnauthorized
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	case codes.Aborted:
		return common.ErrVersionConflict
	case codes.ResourceExhausted:
		return common.ErrStorageQuotaExceeded
	case codes.NotFound:
		return common.ErrorNotFound
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", common.ErrInvalidArgument, st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}

func EnvelopeToRPC(e models.MagicMetadataEnvelope) rpc.MagicMetadata {
	return rpc.MagicMetadata{Version: e.Version, Count: e.Count, Data: e.Data, Header: e.Header}
}

func EnvelopeFromRPC(m *rpc.MagicMetadata) *models.MagicMetadataEnvelope {
	if m == nil {
		return nil
	}
	return &models.MagicMetadataEnvelope{Version: m.Version, Count: m.Count, Data: m.Data, Header: m.Header}
}
