package grpc

import (
	"context"
	"strconv"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/GriffinCanCode/SceneOS/backend/internal/ipc"
	"github.com/GriffinCanCode/SceneOS/backend/internal/shared/types"
)

const (
	// ServiceName is the fully qualified gRPC service
	ServiceName = "scene.SceneSessionManager"
	// TransactMethod carries one parcel transaction
	TransactMethod = "/" + ServiceName + "/Transact"

	// codeKey holds the ipc.MessageCode of a request
	codeKey = "x-scene-code"
	// errorKey holds the WSError of a rejected transaction in the trailer
	errorKey = "x-scene-error"
)

// TransactServer handles parcel transactions
type TransactServer interface {
	Transact(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
}

// ServiceDesc describes the scene session manager service. Parcels travel as
// BytesValue payloads so no generated code is needed.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TransactServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Transact",
			Handler:    transactHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "scene/session_manager.proto",
}

func transactHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TransactServer).Transact(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: TransactMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TransactServer).Transact(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

// Register attaches srv to s
func Register(s grpc.ServiceRegistrar, srv TransactServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func codeFromMetadata(md metadata.MD) (ipc.MessageCode, bool) {
	vals := md.Get(codeKey)
	if len(vals) == 0 {
		return 0, false
	}
	v, err := strconv.ParseUint(vals[0], 10, 32)
	if err != nil {
		return 0, false
	}
	return ipc.MessageCode(v), true
}

func errorFromMetadata(md metadata.MD) (types.WSError, bool) {
	vals := md.Get(errorKey)
	if len(vals) == 0 {
		return 0, false
	}
	v, err := strconv.ParseInt(vals[0], 10, 32)
	if err != nil {
		return 0, false
	}
	return types.WSError(v), true
}
