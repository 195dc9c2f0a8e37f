package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const ServiceName = "ente.files.FileService"

const (
	PingMethod                      = "/" + ServiceName + "/Ping"
	GetUploadURLsMethod             = "/" + ServiceName + "/GetUploadURLs"
	GetMultipartUploadURLsMethod    = "/" + ServiceName + "/GetMultipartUploadURLs"
	CreateFileMethod                = "/" + ServiceName + "/CreateFile"
	AddToCollectionMethod           = "/" + ServiceName + "/AddToCollection"
	UpdateMagicMetadataMethod       = "/" + ServiceName + "/UpdateMagicMetadata"
	UpdatePublicMagicMetadataMethod = "/" + ServiceName + "/UpdatePublicMagicMetadata"
	ListFilesMethod                 = "/" + ServiceName + "/ListFiles"
)

// FileServiceServer is implemented by the backend.
type FileServiceServer interface {
	Ping(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error)
	GetUploadURLs(context.Context, *GetUploadURLsRequest) (*UploadURLsResponse, error)
	GetMultipartUploadURLs(context.Context, *GetMultipartUploadURLsRequest) (*MultipartUploadURLsResponse, error)
	CreateFile(context.Context, *CreateFileRequest) (*FileRecord, error)
	AddToCollection(context.Context, *AddToCollectionRequest) (*FileRecord, error)
	UpdateMagicMetadata(context.Context, *UpdateMagicMetadataRequest) (*emptypb.Empty, error)
	UpdatePublicMagicMetadata(context.Context, *UpdateMagicMetadataRequest) (*emptypb.Empty, error)
	ListFiles(context.Context, *ListFilesRequest) (*ListFilesResponse, error)
}

// UnimplementedFileServiceServer answers every call with Unimplemented.
type UnimplementedFileServiceServer struct{}

func (UnimplementedFileServiceServer) Ping(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Ping not implemented")
}
func (UnimplementedFileServiceServer) GetUploadURLs(context.Context, *GetUploadURLsRequest) (*UploadURLsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetUploadURLs not implemented")
}
func (UnimplementedFileServiceServer) GetMultipartUploadURLs(context.Context, *GetMultipartUploadURLsRequest) (*MultipartUploadURLsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetMultipartUploadURLs not implemented")
}
func (UnimplementedFileServiceServer) CreateFile(context.Context, *CreateFileRequest) (*FileRecord, error) {
	return nil, status.Error(codes.Unimplemented, "method CreateFile not implemented")
}
func (UnimplementedFileServiceServer) AddToCollection(context.Context, *AddToCollectionRequest) (*FileRecord, error) {
	return nil, status.Error(codes.Unimplemented, "method AddToCollection not implemented")
}
func (UnimplementedFileServiceServer) UpdateMagicMetadata(context.Context, *UpdateMagicMetadataRequest) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method UpdateMagicMetadata not implemented")
}
func (UnimplementedFileServiceServer) UpdatePublicMagicMetadata(context.Context, *UpdateMagicMetadataRequest) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method UpdatePublicMagicMetadata not implemented")
}
func (UnimplementedFileServiceServer) ListFiles(context.Context, *ListFilesRequest) (*ListFilesResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListFiles not implemented")
}

func handler[Req, Resp any](method string, call func(FileServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(FileServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(srv.(FileServiceServer), ctx, req.(*Req))
		})
	}
}

var FileServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*FileServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Ping", Handler: handler(PingMethod, FileServiceServer.Ping)},
		{MethodName: "GetUploadURLs", Handler: handler(GetUploadURLsMethod, FileServiceServer.GetUploadURLs)},
		{MethodName: "GetMultipartUploadURLs", Handler: handler(GetMultipartUploadURLsMethod, FileServiceServer.GetMultipartUploadURLs)},
		{MethodName: "CreateFile", Handler: handler(CreateFileMethod, FileServiceServer.CreateFile)},
		{MethodName: "AddToCollection", Handler: handler(AddToCollectionMethod, FileServiceServer.AddToCollection)},
		{MethodName: "UpdateMagicMetadata", Handler: handler(UpdateMagicMetadataMethod, FileServiceServer.UpdateMagicMetadata)},
		{MethodName: "UpdatePublicMagicMetadata", Handler: handler(UpdatePublicMagicMetadataMethod, FileServiceServer.UpdatePublicMagicMetadata)},
		{MethodName: "ListFiles", Handler: handler(ListFilesMethod, FileServiceServer.ListFiles)},
	},
	Metadata: "ente/files.json",
}

func RegisterFileServiceServer(s grpc.ServiceRegistrar, srv FileServiceServer) {
	s.RegisterService(&FileServiceDesc, srv)
}

// FileServiceClient calls the file service with the JSON codec.
type FileServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewFileServiceClient(cc grpc.ClientConnInterface) *FileServiceClient {
	return &FileServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *FileServiceClient) Ping(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	return invoke[wrapperspb.StringValue](ctx, c.cc, PingMethod, in, opts)
}

func (c *FileServiceClient) GetUploadURLs(ctx context.Context, in *GetUploadURLsRequest, opts ...grpc.CallOption) (*UploadURLsResponse, error) {
	return invoke[UploadURLsResponse](ctx, c.cc, GetUploadURLsMethod, in, opts)
}

func (c *FileServiceClient) GetMultipartUploadURLs(ctx context.Context, in *GetMultipartUploadURLsRequest, opts ...grpc.CallOption) (*MultipartUploadURLsResponse, error) {
	return invoke[MultipartUploadURLsResponse](ctx, c.cc, GetMultipartUploadURLsMethod, in, opts)
}

func (c *FileServiceClient) CreateFile(ctx context.Context, in *CreateFileRequest, opts ...grpc.CallOption) (*FileRecord, error) {
	return invoke[FileRecord](ctx, c.cc, CreateFileMethod, in, opts)
}

func (c *FileServiceClient) AddToCollection(ctx context.Context, in *AddToCollectionRequest, opts ...grpc.CallOption) (*FileRecord, error) {
	return invoke[FileRecord](ctx, c.cc, AddToCollectionMethod, in, opts)
}

func (c *FileServiceClient) UpdateMagicMetadata(ctx context.Context, in *UpdateMagicMetadataRequest, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	return invoke[emptypb.Empty](ctx, c.cc, UpdateMagicMetadataMethod, in, opts)
}

func (c *FileServiceClient) UpdatePublicMagicMetadata(ctx context.Context, in *UpdateMagicMetadataRequest, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	return invoke[emptypb.Empty](ctx, c.cc, UpdatePublicMagicMetadataMethod, in, opts)
}

func (c *FileServiceClient) ListFiles(ctx context.Context, in *ListFilesRequest, opts ...grpc.CallOption) (*ListFilesResponse, error) {
	return invoke[ListFilesResponse](ctx, c.cc, ListFilesMethod, in, opts)
}
