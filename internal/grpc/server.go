package grpc

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/GriffinCanCode/SceneOS/backend/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/SceneOS/backend/internal/ipc"
	"github.com/GriffinCanCode/SceneOS/backend/internal/shared/types"
)

const maxMessageSize = 10 * 1024 * 1024

// Server hands incoming parcels to an ipc.Stub
type Server struct {
	stub   *ipc.Stub
	logger *zap.Logger
}

// NewServer creates a transaction server for stub
func NewServer(stub *ipc.Stub, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{stub: stub, logger: logger.Named("grpc.server")}
}

// Transact implements TransactServer. A stub rejection is returned as an
// Aborted status with the WSError code in the trailer.
func (s *Server) Transact(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	code, ok := codeFromMetadata(md)
	if !ok {
		s.logger.Error("transaction without message code")
		return nil, status.Error(codes.InvalidArgument, "missing "+codeKey)
	}

	reply := ipc.NewParcel()
	if err := s.stub.OnRemoteRequest(ctx, code, ipc.ParcelFrom(in.GetValue()), reply); err != nil {
		wsErr := types.Code(err)
		if trailerErr := grpc.SetTrailer(ctx, metadata.Pairs(errorKey, strconv.Itoa(int(wsErr)))); trailerErr != nil {
			s.logger.Warn("set trailer failed", zap.Error(trailerErr))
		}
		return nil, status.Error(codes.Aborted, err.Error())
	}
	return wrapperspb.Bytes(reply.Bytes()), nil
}

// NewGRPCServer builds a grpc.Server with keepalive limits, tracing and srv registered
func NewGRPCServer(srv TransactServer, tracer *tracing.Tracer) *grpc.Server {
	opts := []grpc.ServerOption{
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             30 * time.Second,
			PermitWithoutStream: false,
		}),
		grpc.MaxRecvMsgSize(maxMessageSize),
		grpc.MaxSendMsgSize(maxMessageSize),
	}
	if tracer != nil {
		opts = append(opts, grpc.UnaryInterceptor(tracing.GRPCUnaryInterceptor(tracer)))
	}

	s := grpc.NewServer(opts...)
	Register(s, srv)
	return s
}
