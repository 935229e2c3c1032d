package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "petcare.v1.PetCare"

// Method names of petcare.v1.PetCare.
const (
	MethodAdopt      = "Adopt"
	MethodList       = "List"
	MethodStatus     = "Status"
	MethodFeed       = "Feed"
	MethodPlay       = "Play"
	MethodBathe      = "Bathe"
	MethodNap        = "Nap"
	MethodHeal       = "Heal"
	MethodCuddle     = "Cuddle"
	MethodStartSleep = "StartSleep"
	MethodWake       = "Wake"
	MethodHistory    = "History"
)

// FullMethod returns "/petcare.v1.PetCare/<name>".
func FullMethod(name string) string { return "/" + ServiceName + "/" + name }

// PetCareServer is the server API for petcare.v1.PetCare. Requests and replies
// are google.protobuf.Struct documents; see package convert for their shapes.
type PetCareServer interface {
	Adopt(context.Context, *structpb.Struct) (*structpb.Struct, error)
	List(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Status(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Feed(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Play(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Bathe(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Nap(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Heal(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Cuddle(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StartSleep(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Wake(context.Context, *structpb.Struct) (*structpb.Struct, error)
	History(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type structCall func(PetCareServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(name string, call structCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(PetCareServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(PetCareServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes petcare.v1.PetCare for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PetCareServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodAdopt, PetCareServer.Adopt),
		unary(MethodList, PetCareServer.List),
		unary(MethodStatus, PetCareServer.Status),
		unary(MethodFeed, PetCareServer.Feed),
		unary(MethodPlay, PetCareServer.Play),
		unary(MethodBathe, PetCareServer.Bathe),
		unary(MethodNap, PetCareServer.Nap),
		unary(MethodHeal, PetCareServer.Heal),
		unary(MethodCuddle, PetCareServer.Cuddle),
		unary(MethodStartSleep, PetCareServer.StartSleep),
		unary(MethodWake, PetCareServer.Wake),
		unary(MethodHistory, PetCareServer.History),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "petcare/v1/petcare.proto",
}

// RegisterPetCareServer registers srv on s.
func RegisterPetCareServer(s grpc.ServiceRegistrar, srv PetCareServer) {
	s.RegisterService(&ServiceDesc, srv)
}
