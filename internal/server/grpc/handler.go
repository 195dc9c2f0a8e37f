package grpc

import (
	"context"
	"errors"

	"github.com/SecurityWorks/ente/internal/common"
	"github.com/SecurityWorks/ente/internal/rpc"
	"github.com/SecurityWorks/ente/internal/server/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// toStatus maps service errors onto the codes the client understands.
func (s *GRPCServer) toStatus(ctx context.Context, method string, err error) error {
	switch {
	case errors.Is(err, common.ErrInvalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, common.ErrVersionConflict):
		return status.Error(codes.Aborted, "version conflict")
	case errors.Is(err, common.ErrStorageQuotaExceeded):
		return status.Error(codes.ResourceExhausted, "storage quota exceeded")
	case errors.Is(err, common.ErrorUnauthorized):
		return status.Error(codes.PermissionDenied, "unauthorized")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	s.logger.Error(ctx, "request failed", "method", method, "error", err)
	return status.Error(codes.Internal, "internal error")
}

func (s *GRPCServer) Ping(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.StringValue, error) {
	return wrapperspb.String("OK"), nil
}

func (s *GRPCServer) GetUploadURLs(ctx context.Context, req *rpc.GetUploadURLsRequest) (*rpc.UploadURLsResponse, error) {
	userID, err := userIDFrom(ctx)
	if err != nil {
		return nil, err
	}

	targets, err := s.files.UploadURLs(ctx, userID, req.Count)
	if err != nil {
		return nil, s.toStatus(ctx, "GetUploadURLs", err)
	}

	resp := &rpc.UploadURLsResponse{URLs: make([]rpc.UploadURL, 0, len(targets))}
	for _, t := range targets {
		resp.URLs = append(resp.URLs, rpc.UploadURL{ObjectKey: t.ObjectKey, URL: t.URL})
	}
	return resp, nil
}

func (s *GRPCServer) GetMultipartUploadURLs(ctx context.Context, req *rpc.GetMultipartUploadURLsRequest) (*rpc.MultipartUploadURLsResponse, error) {
	userID, err := userIDFrom(ctx)
	if err != nil {
		return nil, err
	}

	targets, err := s.files.MultipartUploadURLs(ctx, userID, req.Count, req.PartCount)
	if err != nil {
		return nil, s.toStatus(ctx, "GetMultipartUploadURLs", err)
	}

	resp := &rpc.MultipartUploadURLsResponse{URLs: make([]rpc.MultipartUploadURLs, 0, len(targets))}
	for _, t := range targets {
		resp.URLs = append(resp.URLs, rpc.MultipartUploadURLs{ObjectKey: t.ObjectKey, PartURLs: t.PartURLs, CompleteURL: t.CompleteURL})
	}
	return resp, nil
}

func (s *GRPCServer) CreateFile(ctx context.Context, req *rpc.CreateFileRequest) (*rpc.FileRecord, error) {
	userID, err := userIDFrom(ctx)
	if err != nil {
		return nil, err
	}

	f, err := s.files.CreateFile(ctx, userID, fileFromRPC(req))
	if err != nil {
		return nil, s.toStatus(ctx, "CreateFile", err)
	}
	return fileToRPC(f), nil
}

func (s *GRPCServer) AddToCollection(ctx context.Context, req *rpc.AddToCollectionRequest) (*rpc.FileRecord, error) {
	userID, err := userIDFrom(ctx)
	if err != nil {
		return nil, err
	}

	f, err := s.files.AddToCollection(ctx, userID, req.FileID, req.CollectionID, req.EncryptedKey, req.KeyDecryptionNonce)
	if err != nil {
		return nil, s.toStatus(ctx, "AddToCollection", err)
	}
	return fileToRPC(f), nil
}

func (s *GRPCServer) UpdateMagicMetadata(ctx context.Context, req *rpc.UpdateMagicMetadataRequest) (*emptypb.Empty, error) {
	return s.updateMagic(ctx, "UpdateMagicMetadata", models.TierPrivate, req)
}

func (s *GRPCServer) UpdatePublicMagicMetadata(ctx context.Context, req *rpc.UpdateMagicMetadataRequest) (*emptypb.Empty, error) {
	return s.updateMagic(ctx, "UpdatePublicMagicMetadata", models.TierPublic, req)
}

func (s *GRPCServer) updateMagic(ctx context.Context, method string, tier models.MagicTier, req *rpc.UpdateMagicMetadataRequest) (*emptypb.Empty, error) {
	userID, err := userIDFrom(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.files.UpdateMagic(ctx, userID, tier, updatesFromRPC(req)); err != nil {
		return nil, s.toStatus(ctx, method, err)
	}
	return &emptypb.Empty{}, nil
}

func (s *GRPCServer) ListFiles(ctx context.Context, req *rpc.ListFilesRequest) (*rpc.ListFilesResponse, error) {
	userID, err := userIDFrom(ctx)
	if err != nil {
		return nil, err
	}

	list, more, err := s.files.ListFiles(ctx, userID, req.CollectionID, req.SinceTime, req.Limit)
	if err != nil {
		return nil, s.toStatus(ctx, "ListFiles", err)
	}

	resp := &rpc.ListFilesResponse{Files: make([]rpc.FileRecord, 0, len(list)), HasMore: more}
	for _, f := range list {
		resp.Files = append(resp.Files, *fileToRPC(f))
	}
	return resp, nil
}
