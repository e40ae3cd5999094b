package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/GriffinCanCode/SceneOS/backend/internal/domain/directory"
	"github.com/GriffinCanCode/SceneOS/backend/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/SceneOS/backend/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/SceneOS/backend/internal/ipc"
	"github.com/GriffinCanCode/SceneOS/backend/internal/shared/types"
)

const bufSize = 1024 * 1024

type harness struct {
	dir  *directory.Manager
	conn *grpc.ClientConn
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	tracer := tracing.New("scene-test", nil)
	dir := directory.NewManager()
	stub := ipc.NewStub(dir, ipc.WithTracer(tracer))
	srv := NewGRPCServer(NewServer(stub, nil), tracer)

	lis := bufconn.Listen(bufSize)
	go func() { _ = srv.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		conn.Close()
		srv.Stop()
		tracer.Close()
	})
	return &harness{dir: dir, conn: conn}
}

func TestProxyOverGRPC(t *testing.T) {
	h := newHarness(t)
	client := NewClient(h.conn, nil)
	proxy := ipc.NewProxy(client, nil)
	ctx := context.Background()

	snap, err := proxy.RequestSession(ctx, types.SessionInfo{BundleName: "com.example.camera"})
	require.NoError(t, err)
	assert.Equal(t, 1, h.dir.SessionCount())

	require.NoError(t, proxy.Connect(ctx, snap.PersistentID))
	require.NoError(t, proxy.Activate(ctx, snap.PersistentID))

	got, err := h.dir.GetSession(snap.PersistentID)
	require.NoError(t, err)
	assert.Equal(t, types.StateActive, got.State())

	require.NoError(t, proxy.Destroy(ctx, snap.PersistentID))
	assert.ErrorIs(t, proxy.Destroy(ctx, snap.PersistentID), types.WSErrorDoNothing)
}

func TestTokenMismatchTravelsInTrailer(t *testing.T) {
	h := newHarness(t)
	client := NewClient(h.conn, nil)

	data := ipc.NewParcel()
	data.WriteInterfaceToken("OHOS.IWrong")
	data.WriteInt32(1)

	_, err := client.SendRequest(context.Background(), ipc.TransActivate, data)
	require.Error(t, err)
	assert.Equal(t, types.WSErrorIPCFailed, types.Code(err))
	assert.Equal(t, codes.Aborted, status.Code(err))
}

func TestUnknownCodeTravelsInTrailer(t *testing.T) {
	h := newHarness(t)
	client := NewClient(h.conn, nil)

	data := ipc.NewParcel()
	data.WriteInterfaceToken(ipc.Descriptor)

	_, err := client.SendRequest(context.Background(), ipc.MessageCode(500), data)
	assert.Equal(t, types.WSErrorInvalidOperation, types.Code(err))
}

func TestMissingCodeIsInvalidArgument(t *testing.T) {
	h := newHarness(t)

	out := new(wrapperspb.BytesValue)
	err := h.conn.Invoke(context.Background(), TransactMethod, wrapperspb.Bytes(nil), out)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestBreakerOpensOnTransportFailure(t *testing.T) {
	lis := bufconn.Listen(bufSize)
	lis.Close()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	defer conn.Close()

	breaker := resilience.New("test", resilience.Settings{
		Policy:   resilience.Policy{Threshold: 2, IsFailure: transportFailure},
		Cooldown: time.Minute,
	})
	client := NewClient(conn, nil, WithBreaker(breaker), WithCallTimeout(200*time.Millisecond))

	data := ipc.NewParcel()
	data.WriteInterfaceToken(ipc.Descriptor)

	for i := 0; i < 2; i++ {
		_, err := client.SendRequest(context.Background(), ipc.TransGetSessionInfos, ipc.ParcelFrom(data.Bytes()))
		assert.Equal(t, types.WSErrorIPCFailed, types.Code(err))
	}
	assert.Equal(t, resilience.StateOpen, breaker.State())

	_, err = client.SendRequest(context.Background(), ipc.TransGetSessionInfos, data)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, types.WSErrorIPCFailed, types.Code(err))
}

func TestRejectionsDoNotTripBreaker(t *testing.T) {
	h := newHarness(t)
	client := NewClient(h.conn, nil)

	for i := 0; i < 8; i++ {
		data := ipc.NewParcel()
		data.WriteInterfaceToken("OHOS.IWrong")
		_, err := client.SendRequest(context.Background(), ipc.TransGetSessionInfos, data)
		require.Error(t, err)
	}

	assert.Equal(t, resilience.StateClosed, client.breaker.State())
	counts := client.breaker.Counts()
	assert.Zero(t, counts.TotalFailures)
	assert.Equal(t, uint32(8), counts.TotalSuccesses)
}
