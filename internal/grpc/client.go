package grpc

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/GriffinCanCode/SceneOS/backend/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/SceneOS/backend/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/SceneOS/backend/internal/ipc"
	"github.com/GriffinCanCode/SceneOS/backend/internal/shared/types"
)

const defaultCallTimeout = 5 * time.Second

var _ ipc.Remote = (*Client)(nil)

// Client sends parcels to a remote scene session manager. It implements ipc.Remote.
type Client struct {
	conn    *grpc.ClientConn
	owned   bool
	breaker *resilience.Breaker
	logger  *zap.Logger
	timeout time.Duration
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithCallTimeout bounds each transaction
func WithCallTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithBreaker replaces the default circuit breaker
func WithBreaker(b *resilience.Breaker) ClientOption {
	return func(c *Client) { c.breaker = b }
}

// Dial connects to addr. The connection is closed by Close.
func Dial(addr string, logger *zap.Logger, tracer *tracing.Tracer, opts ...ClientOption) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                60 * time.Second,
			Timeout:             20 * time.Second,
			PermitWithoutStream: false,
		}),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(maxMessageSize),
			grpc.MaxCallSendMsgSize(maxMessageSize),
		),
	}
	if tracer != nil {
		dialOpts = append(dialOpts, grpc.WithUnaryInterceptor(tracing.GRPCClientInterceptor(tracer)))
	}

	conn, err := grpc.NewClient(addr, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to dial scene manager: %w", err)
	}
	c := NewClient(conn, logger, opts...)
	c.owned = true
	return c, nil
}

// NewClient wraps an existing connection. The caller keeps ownership of conn.
func NewClient(conn *grpc.ClientConn, logger *zap.Logger, opts ...ClientOption) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		conn:    conn,
		logger:  logger.Named("grpc.client"),
		timeout: defaultCallTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.breaker == nil {
		c.breaker = resilience.New("scene-ipc", resilience.Settings{
			Policy: resilience.Policy{
				Threshold:    5,
				FailureRatio: 0.5,
				MinRequests:  10,
				IsFailure:    transportFailure,
			},
			TrialCalls: 3,
			Window:     30 * time.Second,
			Cooldown:   10 * time.Second,
			OnStateChange: func(name string, from, to resilience.State) {
				c.logger.Warn("circuit breaker state changed",
					zap.String("breaker", name),
					zap.Stringer("from", from),
					zap.Stringer("to", to),
				)
			},
		})
	}
	return c
}

// transportFailure reports whether err means the manager could not be reached.
// A request the server answered and rejected says nothing about its health.
func transportFailure(err error) bool {
	switch status.Code(err) {
	case codes.Aborted, codes.InvalidArgument:
		return false
	default:
		return true
	}
}

// Close closes a connection opened by Dial
func (c *Client) Close() error {
	if c.owned && c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// SendRequest implements ipc.Remote
func (c *Client) SendRequest(ctx context.Context, code ipc.MessageCode, data *ipc.Parcel) (*ipc.Parcel, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	ctx = metadata.AppendToOutgoingContext(ctx, codeKey, strconv.FormatUint(uint64(code), 10))

	var (
		out     = new(wrapperspb.BytesValue)
		trailer metadata.MD
	)
	err := c.breaker.Execute(func() error {
		return c.conn.Invoke(ctx, TransactMethod, wrapperspb.Bytes(data.Bytes()), out, grpc.Trailer(&trailer))
	})
	if err != nil {
		if errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, resilience.ErrTooManyRequests) {
			return nil, fmt.Errorf("%s: %w", code, errors.Join(types.WSErrorIPCFailed, err))
		}
		if wsErr, ok := errorFromMetadata(trailer); ok {
			return nil, fmt.Errorf("%s rejected: %w", code, errors.Join(wsErr, err))
		}
		return nil, fmt.Errorf("%s transport: %w", code, errors.Join(types.WSErrorIPCFailed, err))
	}
	return ipc.ParcelFrom(out.GetValue()), nil
}
