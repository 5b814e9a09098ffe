package prop

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "ghosthost.v1.PropService"

// Full method names.
const (
	TriggerMethod     = "/" + ServiceName + "/Trigger"
	ForceStopMethod   = "/" + ServiceName + "/ForceStop"
	EndCooldownMethod = "/" + ServiceName + "/EndCooldown"
	GetStatusMethod   = "/" + ServiceName + "/GetStatus"
)

// PropServiceServer is the server side of the control API.
type PropServiceServer interface {
	Trigger(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ForceStop(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	EndCooldown(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	GetStatus(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
}

// ServiceDesc describes the control API for grpc.Server.RegisterService.
//
//nolint:gochecknoglobals // Service descriptors are package-level by convention.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PropServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Trigger", Handler: triggerHandler},
		{MethodName: "ForceStop", Handler: forceStopHandler},
		{MethodName: "EndCooldown", Handler: endCooldownHandler},
		{MethodName: "GetStatus", Handler: getStatusHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ghosthost/v1/prop.proto",
}

// RegisterPropServiceServer registers srv on s.
func RegisterPropServiceServer(s grpc.ServiceRegistrar, srv PropServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// unary dispatches one decoded request through the optional interceptor.
func unary[Req any](
	ctx context.Context,
	srv any,
	in Req,
	method string,
	interceptor grpc.UnaryServerInterceptor,
	call func(PropServiceServer, context.Context, Req) (*structpb.Struct, error),
) (any, error) {
	server, _ := srv.(PropServiceServer)

	if interceptor == nil {
		return call(server, ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: method,
	}

	handler := func(ctx context.Context, req any) (any, error) {
		typed, _ := req.(Req)

		return call(server, ctx, typed)
	}

	return interceptor(ctx, in, info, handler)
}

func triggerHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) { //nolint:revive // Signature fixed by grpc.MethodHandler.
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}

	return unary(ctx, srv, in, TriggerMethod, interceptor, PropServiceServer.Trigger)
}

func forceStopHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) { //nolint:revive // Signature fixed by grpc.MethodHandler.
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}

	return unary(ctx, srv, in, ForceStopMethod, interceptor, PropServiceServer.ForceStop)
}

func endCooldownHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) { //nolint:revive // Signature fixed by grpc.MethodHandler.
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}

	return unary(ctx, srv, in, EndCooldownMethod, interceptor, PropServiceServer.EndCooldown)
}

func getStatusHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) { //nolint:revive // Signature fixed by grpc.MethodHandler.
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}

	return unary(ctx, srv, in, GetStatusMethod, interceptor, PropServiceServer.GetStatus)
}

// PropServiceClient is the client side of the control API.
type PropServiceClient interface {
	Trigger(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	ForceStop(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	EndCooldown(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetStatus(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
}

// propServiceClient invokes methods over a client connection.
type propServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewPropServiceClient creates a client over cc.
func NewPropServiceClient(cc grpc.ClientConnInterface) PropServiceClient {
	return &propServiceClient{cc: cc}
}

func (c *propServiceClient) invoke(ctx context.Context, method string, in any, opts []grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *propServiceClient) Trigger(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, TriggerMethod, in, opts)
}

func (c *propServiceClient) ForceStop(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ForceStopMethod, in, opts)
}

func (c *propServiceClient) EndCooldown(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, EndCooldownMethod, in, opts)
}

func (c *propServiceClient) GetStatus(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, GetStatusMethod, in, opts)
}
