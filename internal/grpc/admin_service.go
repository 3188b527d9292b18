package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified name of the admin service.
const ServiceName = "catsurvey.v1.SurveyAdmin"

// SurveyAdminServer is the server API for the admin service. Messages are
// protobuf well-known types so no generated code is needed.
type SurveyAdminServer interface {
	RunNow(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetLastRun(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetCategoryConfig(context.Context, *wrapperspb.Int64Value) (*structpb.Struct, error)
	ListCategoryConfigs(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	UpdateCategoryConfig(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func RegisterSurveyAdminServer(s grpc.ServiceRegistrar, srv SurveyAdminServer) {
	s.RegisterService(&SurveyAdminServiceDesc, srv)
}

var SurveyAdminServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SurveyAdminServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RunNow", Handler: unaryHandler("RunNow", SurveyAdminServer.RunNow)},
		{MethodName: "GetLastRun", Handler: unaryHandler("GetLastRun", SurveyAdminServer.GetLastRun)},
		{MethodName: "GetCategoryConfig", Handler: unaryHandler("GetCategoryConfig", SurveyAdminServer.GetCategoryConfig)},
		{MethodName: "ListCategoryConfigs", Handler: unaryHandler("ListCategoryConfigs", SurveyAdminServer.ListCategoryConfigs)},
		{MethodName: "UpdateCategoryConfig", Handler: unaryHandler("UpdateCategoryConfig", SurveyAdminServer.UpdateCategoryConfig)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "catsurvey/v1/admin.proto",
}

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

func unaryHandler[Req any, Resp any](
	method string,
	call func(SurveyAdminServer, context.Context, *Req) (Resp, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(SurveyAdminServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(SurveyAdminServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// SurveyAdminClient calls the admin service.
type SurveyAdminClient struct {
	cc grpc.ClientConnInterface
}

func NewSurveyAdminClient(cc grpc.ClientConnInterface) *SurveyAdminClient {
	return &SurveyAdminClient{cc: cc}
}

func (c *SurveyAdminClient) RunNow(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	err := c.cc.Invoke(ctx, fullMethod("RunNow"), &emptypb.Empty{}, out, opts...)
	return out, err
}

func (c *SurveyAdminClient) GetLastRun(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	err := c.cc.Invoke(ctx, fullMethod("GetLastRun"), &emptypb.Empty{}, out, opts...)
	return out, err
}

func (c *SurveyAdminClient) GetCategoryConfig(ctx context.Context, categoryID int64, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	err := c.cc.Invoke(ctx, fullMethod("GetCategoryConfig"), wrapperspb.Int64(categoryID), out, opts...)
	return out, err
}

func (c *SurveyAdminClient) ListCategoryConfigs(ctx context.Context, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	out := new(structpb.ListValue)
	err := c.cc.Invoke(ctx, fullMethod("ListCategoryConfigs"), &emptypb.Empty{}, out, opts...)
	return out, err
}

func (c *SurveyAdminClient) UpdateCategoryConfig(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	err := c.cc.Invoke(ctx, fullMethod("UpdateCategoryConfig"), in, out, opts...)
	return out, err
}
