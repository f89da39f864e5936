package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName = "lotwise.v1.TaxReportService"

	ProcessTaxReportMethod    = "/" + ServiceName + "/ProcessTaxReport"
	SubmitTaxReportMethod     = "/" + ServiceName + "/SubmitTaxReport"
	GetSubmissionStatusMethod = "/" + ServiceName + "/GetSubmissionStatus"
	WatchSubmissionMethod     = "/" + ServiceName + "/WatchSubmission"
)

// TaxReportServiceServer is the server API for lotwise.v1.TaxReportService.
// Every message is a google.protobuf.Struct.
type TaxReportServiceServer interface {
	ProcessTaxReport(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SubmitTaxReport(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetSubmissionStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
	WatchSubmission(*structpb.Struct, grpc.ServerStream) error
}

// RegisterTaxReportServiceServer registers srv on s
func RegisterTaxReportServiceServer(s grpc.ServiceRegistrar, srv TaxReportServiceServer) {
	s.RegisterService(&TaxReportService_ServiceDesc, srv)
}

func unaryHandler(
	method string,
	call func(TaxReportServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error),
) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(TaxReportServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: method,
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(TaxReportServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func watchSubmissionHandler(srv interface{}, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(TaxReportServiceServer).WatchSubmission(in, stream)
}

// TaxReportService_ServiceDesc describes lotwise.v1.TaxReportService for grpc.ServiceRegistrar
var TaxReportService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TaxReportServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ProcessTaxReport",
			Handler:    unaryHandler(ProcessTaxReportMethod, TaxReportServiceServer.ProcessTaxReport),
		},
		{
			MethodName: "SubmitTaxReport",
			Handler:    unaryHandler(SubmitTaxReportMethod, TaxReportServiceServer.SubmitTaxReport),
		},
		{
			MethodName: "GetSubmissionStatus",
			Handler:    unaryHandler(GetSubmissionStatusMethod, TaxReportServiceServer.GetSubmissionStatus),
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchSubmission",
			Handler:       watchSubmissionHandler,
			ServerStreams: true,
		},
	},
	Metadata: "lotwise/v1/tax_report.proto",
}

// TaxReportClient calls lotwise.v1.TaxReportService over an existing connection
type TaxReportClient struct {
	cc grpc.ClientConnInterface
}

// NewTaxReportClient creates a new TaxReportClient
func NewTaxReportClient(cc grpc.ClientConnInterface) *TaxReportClient {
	return &TaxReportClient{cc: cc}
}

func (c *TaxReportClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ProcessTaxReport calls the ProcessTaxReport RPC
func (c *TaxReportClient) ProcessTaxReport(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ProcessTaxReportMethod, in, opts...)
}

// SubmitTaxReport calls the SubmitTaxReport RPC
func (c *TaxReportClient) SubmitTaxReport(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, SubmitTaxReportMethod, in, opts...)
}

// GetSubmissionStatus calls the GetSubmissionStatus RPC
func (c *TaxReportClient) GetSubmissionStatus(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, GetSubmissionStatusMethod, in, opts...)
}

// SubmissionWatcher receives state snapshots from WatchSubmission
type SubmissionWatcher struct {
	stream grpc.ClientStream
}

// Recv returns the next snapshot, or io.EOF once the server closed the stream
func (w *SubmissionWatcher) Recv() (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := w.stream.RecvMsg(out); err != nil {
		return nil, err
	}
	return out, nil
}

// WatchSubmission opens the WatchSubmission stream
func (c *TaxReportClient) WatchSubmission(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*SubmissionWatcher, error) {
	stream, err := c.cc.NewStream(ctx, &TaxReportService_ServiceDesc.Streams[0], WatchSubmissionMethod, opts...)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &SubmissionWatcher{stream: stream}, nil
}
