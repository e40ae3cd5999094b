package ipc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/SceneOS/backend/internal/domain/session"
	"github.com/GriffinCanCode/SceneOS/backend/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/SceneOS/backend/internal/shared/types"
)

var (
	// ErrTokenMismatch is returned when a request does not lead with Descriptor
	ErrTokenMismatch = fmt.Errorf("interface token mismatch: %w", types.WSErrorIPCFailed)
	// ErrUnknownCode is returned for a message code with no handler
	ErrUnknownCode = fmt.Errorf("unknown message code: %w", types.WSErrorInvalidOperation)
)

// Directory is the part of the session directory reachable over IPC
type Directory interface {
	RequestSession(info types.SessionInfo) *session.Session
	GetSession(id int32) (*session.Session, error)
	GetValidSession(id int32) (*session.Session, error)
	ValidSessions() []types.SessionSnapshot
	RequestActivation(s *session.Session) error
	RequestForeground(s *session.Session) error
	RequestBackground(s *session.Session) error
	RequestDeactivation(s *session.Session, notifyContent bool) error
	RequestLayout(s *session.Session, rect types.Rect) (types.Rect, error)
	WaitRotation(s *session.Session) (types.Rotation, error)
	RequestDestructionByID(id int32) error
}

// FoldStatusSource reports the current fold status
type FoldStatusSource interface {
	CurrentStatus() types.FoldStatus
}

// Dumper renders a diagnostic dump for the given arguments
type Dumper interface {
	Dump(w io.Writer, args []string) error
}

// Recorder receives per-transaction metrics
type Recorder interface {
	RecordIPCCall(message string, err error, duration time.Duration)
	RecordIPCError(message, reason string)
}

type handlerFunc func(ctx context.Context, data, reply *Parcel) error

// Stub decodes requests and dispatches them to the directory. Every request
// must carry Descriptor as its interface token before any argument.
type Stub struct {
	dir    Directory
	fold   FoldStatusSource
	dumper Dumper

	logger   *zap.Logger
	tracer   *tracing.Tracer
	recorder Recorder

	handlers map[MessageCode]handlerFunc
}

// StubOption configures a Stub
type StubOption func(*Stub)

// WithStubLogger sets the logger
func WithStubLogger(logger *zap.Logger) StubOption {
	return func(s *Stub) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTracer wraps each transaction in a span
func WithTracer(t *tracing.Tracer) StubOption {
	return func(s *Stub) { s.tracer = t }
}

// WithRecorder reports transaction metrics
func WithRecorder(r Recorder) StubOption {
	return func(s *Stub) { s.recorder = r }
}

// WithFoldSource answers fold status queries
func WithFoldSource(f FoldStatusSource) StubOption {
	return func(s *Stub) { s.fold = f }
}

// WithDumper answers dump requests
func WithDumper(d Dumper) StubOption {
	return func(s *Stub) { s.dumper = d }
}

// NewStub creates a stub serving dir
func NewStub(dir Directory, opts ...StubOption) *Stub {
	s := &Stub{
		dir:    dir,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("ipc.stub")

	s.handlers = map[MessageCode]handlerFunc{
		TransRequestSession:  s.handleRequestSession,
		TransConnect:         s.sessionOp((*session.Session).Connect),
		TransActivate:        s.sessionOp(dir.RequestActivation),
		TransForeground:      s.sessionOp(dir.RequestForeground),
		TransBackground:      s.sessionOp(dir.RequestBackground),
		TransDestroy:         s.handleDestroy,
		TransGetSessionInfo:  s.handleGetSessionInfo,
		TransGetSessionInfos: s.handleGetSessionInfos,
		TransGetFoldStatus:   s.handleGetFoldStatus,
		TransDump:            s.handleDump,
	}
	return s
}

// OnRemoteRequest handles one transaction. The returned error reports a
// transport failure; the directory's own result travels as the first int32
// of reply.
func (s *Stub) OnRemoteRequest(ctx context.Context, code MessageCode, data, reply *Parcel) error {
	start := time.Now()
	s.logger.Debug("remote request", zap.Stringer("code", code))

	token, err := data.ReadInterfaceToken()
	if err != nil || token != Descriptor {
		s.logger.Error("failed to check interface token",
			zap.Stringer("code", code),
			zap.String("token", token),
		)
		s.recordError(code, "token")
		return ErrTokenMismatch
	}

	handler, ok := s.handlers[code]
	if !ok {
		s.logger.Error("failed to find function handler", zap.Stringer("code", code))
		s.recordError(code, "unknown_code")
		return fmt.Errorf("%w %d", ErrUnknownCode, uint32(code))
	}

	run := func(ctx context.Context) error { return handler(ctx, data, reply) }
	if s.tracer != nil {
		err = s.tracer.Trace(ctx, "ipc."+code.String(), run)
	} else {
		err = run(ctx)
	}

	if err != nil {
		s.recordError(code, "decode")
		return err
	}
	if s.recorder != nil {
		s.recorder.RecordIPCCall(code.String(), s.lastResult(reply), time.Since(start))
	}
	return nil
}

func (s *Stub) recordError(code MessageCode, reason string) {
	if s.recorder != nil {
		s.recorder.RecordIPCError(code.String(), reason)
	}
}

// lastResult peeks the result code written at the front of reply
func (s *Stub) lastResult(reply *Parcel) error {
	res, err := ParcelFrom(reply.Bytes()).ReadInt32()
	if err != nil {
		return types.WSErrorIPCFailed
	}
	return types.FromCode(types.WSError(res))
}

func (s *Stub) readFailed(ctx context.Context, what string, err error) error {
	s.logger.Error("read "+what+" failed", append(tracing.Fields(ctx), zap.Error(err))...)
	return fmt.Errorf("read %s: %w", what, errors.Join(types.WSErrorIPCFailed, err))
}

func writeResult(reply *Parcel, err error) {
	reply.WriteInt32(int32(types.Code(err)))
}

func (s *Stub) handleRequestSession(ctx context.Context, data, reply *Parcel) error {
	info, err := data.ReadSessionInfo()
	if err != nil {
		return s.readFailed(ctx, "session info", err)
	}
	sess := s.dir.RequestSession(info)
	writeResult(reply, nil)
	return reply.WriteSessionSnapshot(sess.Snapshot())
}

// sessionOp adapts a per-session directory call into a handler reading the persistent ID
func (s *Stub) sessionOp(op func(*session.Session) error) handlerFunc {
	return func(ctx context.Context, data, reply *Parcel) error {
		id, err := data.ReadInt32()
		if err != nil {
			return s.readFailed(ctx, "persistent id", err)
		}
		sess, err := s.dir.GetSession(id)
		if err == nil {
			err = op(sess)
		}
		s.rejected(ctx, id, err)
		writeResult(reply, err)
		return nil
	}
}

func (s *Stub) rejected(ctx context.Context, id int32, err error) {
	if err != nil && !types.IsNoOp(err) {
		s.logger.Info("session operation rejected",
			append(tracing.Fields(ctx), zap.Int32("persistent_id", id), zap.Error(err))...)
	}
}

// handleDestroy reports WSErrorDoNothing for a session that is already gone
func (s *Stub) handleDestroy(ctx context.Context, data, reply *Parcel) error {
	id, err := data.ReadInt32()
	if err != nil {
		return s.readFailed(ctx, "persistent id", err)
	}
	err = s.dir.RequestDestructionByID(id)
	s.rejected(ctx, id, err)
	writeResult(reply, err)
	return nil
}

func (s *Stub) handleDeactivate(ctx context.Context, data, reply *Parcel) error {
	id, err := data.ReadInt32()
	if err != nil {
		return s.readFailed(ctx, "persistent id", err)
	}
	notifyContent, err := data.ReadBool()
	if err != nil {
		return s.readFailed(ctx, "notify content", err)
	}
	sess, err := s.dir.GetSession(id)
	if err == nil {
		err = s.dir.RequestDeactivation(sess, notifyContent)
	}
	s.rejected(ctx, id, err)
	writeResult(reply, err)
	return nil
}

// handleRequestLayout replies with the rect the client settled on, or the
// zero rect when it did not answer in time
func (s *Stub) handleRequestLayout(ctx context.Context, data, reply *Parcel) error {
	id, err := data.ReadInt32()
	if err != nil {
		return s.readFailed(ctx, "persistent id", err)
	}
	rect, err := data.ReadRect()
	if err != nil {
		return s.readFailed(ctx, "rect", err)
	}
	var settled types.Rect
	sess, err := s.dir.GetSession(id)
	if err == nil {
		settled, err = s.dir.RequestLayout(sess, rect)
	}
	s.rejected(ctx, id, err)
	writeResult(reply, err)
	reply.WriteRect(settled)
	return nil
}

func (s *Stub) handleWaitRotation(ctx context.Context, data, reply *Parcel) error {
	id, err := data.ReadInt32()
	if err != nil {
		return s.readFailed(ctx, "persistent id", err)
	}
	var rotation types.Rotation
	sess, err := s.dir.GetValidSession(id)
	if err == nil {
		rotation, err = s.dir.WaitRotation(sess)
	}
	writeResult(reply, err)
	reply.WriteInt32(int32(rotation))
	return nil
}

// handleGetSessionInfo answers WSErrorInvalidSession for a disconnected session
func (s *Stub) handleGetSessionInfo(ctx context.Context, data, reply *Parcel) error {
	id, err := data.ReadInt32()
	if err != nil {
		return s.readFailed(ctx, "persistent id", err)
	}
	sess, err := s.dir.GetValidSession(id)
	writeResult(reply, err)
	if err != nil {
		return nil
	}
	return reply.WriteSessionSnapshot(sess.Snapshot())
}

func (s *Stub) handleGetSessionInfos(_ context.Context, _, reply *Parcel) error {
	list := s.dir.ValidSessions()
	writeResult(reply, nil)
	reply.WriteUint32(uint32(len(list)))
	for _, snap := range list {
		if err := reply.WriteSessionSnapshot(snap); err != nil {
			return err
		}
	}
	return nil
}

func (s *Stub) handleGetFoldStatus(_ context.Context, _, reply *Parcel) error {
	if s.fold == nil {
		writeResult(reply, types.WSErrorUnavailable)
		return nil
	}
	writeResult(reply, nil)
	reply.WriteInt32(int32(s.fold.CurrentStatus()))
	return nil
}

func (s *Stub) handleDump(ctx context.Context, data, reply *Parcel) error {
	args, err := data.ReadStrings()
	if err != nil {
		return s.readFailed(ctx, "dump args", err)
	}
	if s.dumper == nil {
		writeResult(reply, types.WSErrorUnavailable)
		return reply.WriteString("")
	}

	var buf bytes.Buffer
	dumpErr := s.dumper.Dump(&buf, args)
	if dumpErr != nil {
		s.logger.Info("dump rejected", zap.Strings("args", args), zap.Error(dumpErr))
	}
	writeResult(reply, dumpErr)
	return reply.WriteString(buf.String())
}
