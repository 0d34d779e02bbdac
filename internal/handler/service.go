package handler

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "booking.v1.BookingService"

// FullMethod returns the gRPC path of a BookingService method.
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// BookingServer is the gRPC surface. Every message is a
// google.protobuf.Struct, so clients need no generated stubs.
type BookingServer interface {
	SignUp(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Login(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RequireAuthenticated(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListDoctors(context.Context, *structpb.Struct) (*structpb.Struct, error)
	IsBookableDate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListTimeSlots(context.Context, *structpb.Struct) (*structpb.Struct, error)
	BookSlot(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetAppointment(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(BookingServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func method(name string, call unaryCall) grpc.MethodDesc {
	full := FullMethod(name)
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(BookingServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: full}
			next := func(ctx context.Context, req any) (any, error) {
				return call(srv.(BookingServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, next)
		},
	}
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BookingServer)(nil),
	Methods: []grpc.MethodDesc{
		method("SignUp", BookingServer.SignUp),
		method("Login", BookingServer.Login),
		method("RequireAuthenticated", BookingServer.RequireAuthenticated),
		method("ListDoctors", BookingServer.ListDoctors),
		method("IsBookableDate", BookingServer.IsBookableDate),
		method("ListTimeSlots", BookingServer.ListTimeSlots),
		method("BookSlot", BookingServer.BookSlot),
		method("GetAppointment", BookingServer.GetAppointment),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "booking/v1/booking.proto",
}

func Register(s grpc.ServiceRegistrar, srv BookingServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Client calls BookingService over an existing connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) Call(ctx context.Context, name string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if in == nil {
		in = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(name), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
