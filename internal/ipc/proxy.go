package ipc

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/SceneOS/backend/internal/shared/types"
)

// ErrNullRemote is returned when the proxy has no remote object to send to
var ErrNullRemote = fmt.Errorf("remote object is null: %w", types.WSErrorIPCFailed)

// Remote carries one transaction to a stub and returns its reply
type Remote interface {
	SendRequest(ctx context.Context, code MessageCode, data *Parcel) (*Parcel, error)
}

// Proxy is the client side of the scene session manager interface
type Proxy struct {
	remote Remote
	logger *zap.Logger
}

// NewProxy creates a proxy sending through remote
func NewProxy(remote Remote, logger *zap.Logger) *Proxy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Proxy{remote: remote, logger: logger.Named("ipc.proxy")}
}

// transact writes the token and the payload, sends, and reads the leading result code.
// Each failing step is logged by name.
func (p *Proxy) transact(ctx context.Context, code MessageCode, write func(*Parcel) error) (*Parcel, error) {
	data := NewParcel()
	if err := data.WriteInterfaceToken(Descriptor); err != nil {
		p.logger.Error("write interface token failed", zap.Stringer("code", code), zap.Error(err))
		return nil, errors.Join(types.WSErrorIPCFailed, err)
	}
	if write != nil {
		if err := write(data); err != nil {
			p.logger.Error("write payload failed", zap.Stringer("code", code), zap.Error(err))
			return nil, errors.Join(types.WSErrorIPCFailed, err)
		}
	}
	if p.remote == nil {
		p.logger.Error("remote object is null", zap.Stringer("code", code))
		return nil, ErrNullRemote
	}

	reply, err := p.remote.SendRequest(ctx, code, data)
	if err != nil {
		p.logger.Error("send request failed", zap.Stringer("code", code), zap.Error(err))
		if types.Code(err) == types.WSErrorUnknown {
			err = errors.Join(types.WSErrorIPCFailed, err)
		}
		return nil, err
	}

	res, err := reply.ReadInt32()
	if err != nil {
		p.logger.Error("read result failed", zap.Stringer("code", code), zap.Error(err))
		return nil, errors.Join(types.WSErrorIPCFailed, err)
	}
	return reply, types.FromCode(types.WSError(res))
}

func writeID(persistentID int32) func(*Parcel) error {
	return func(d *Parcel) error {
		d.WriteInt32(persistentID)
		return nil
	}
}

func (p *Proxy) sessionOp(ctx context.Context, code MessageCode, persistentID int32) error {
	_, err := p.transact(ctx, code, writeID(persistentID))
	return err
}

// RequestSession asks the directory for a new session
func (p *Proxy) RequestSession(ctx context.Context, info types.SessionInfo) (types.SessionSnapshot, error) {
	reply, err := p.transact(ctx, TransRequestSession, func(d *Parcel) error { return d.WriteSessionInfo(info) })
	if err != nil {
		return types.SessionSnapshot{}, err
	}
	return p.readSnapshot(reply, TransRequestSession)
}

// Connect moves a session to CONNECT
func (p *Proxy) Connect(ctx context.Context, persistentID int32) error {
	return p.sessionOp(ctx, TransConnect, persistentID)
}

// Activate moves a session to ACTIVE
func (p *Proxy) Activate(ctx context.Context, persistentID int32) error {
	return p.sessionOp(ctx, TransActivate, persistentID)
}

// Foreground moves a session to FOREGROUND
func (p *Proxy) Foreground(ctx context.Context, persistentID int32) error {
	return p.sessionOp(ctx, TransForeground, persistentID)
}

// Background moves a session to BACKGROUND
func (p *Proxy) Background(ctx context.Context, persistentID int32) error {
	return p.sessionOp(ctx, TransBackground, persistentID)
}

// Destroy removes a session. An already removed session yields WSErrorDoNothing.
func (p *Proxy) Destroy(ctx context.Context, persistentID int32) error {
	return p.sessionOp(ctx, TransDestroy, persistentID)
}

// Deactivate moves an ACTIVE session to INACTIVE
func (p *Proxy) Deactivate(ctx context.Context, persistentID int32, notifyContent bool) error {
	_, err := p.transact(ctx, TransDeactivate, func(d *Parcel) error {
		d.WriteInt32(persistentID)
		d.WriteBool(notifyContent)
		return nil
	})
	return err
}

// RequestLayout pushes rect to the session's client and returns the rect it
// settled on. A client that does not answer in time yields the zero rect.
func (p *Proxy) RequestLayout(ctx context.Context, persistentID int32, rect types.Rect) (types.Rect, error) {
	reply, err := p.transact(ctx, TransRequestLayout, func(d *Parcel) error {
		d.WriteInt32(persistentID)
		d.WriteRect(rect)
		return nil
	})
	if err != nil {
		return types.Rect{}, err
	}
	settled, err := reply.ReadRect()
	if err != nil {
		p.logger.Error("read rect failed", zap.Error(err))
		return types.Rect{}, errors.Join(types.WSErrorIPCFailed, err)
	}
	return settled, nil
}

// WaitRotation blocks until the session's client reports its rotation
func (p *Proxy) WaitRotation(ctx context.Context, persistentID int32) (types.Rotation, error) {
	reply, err := p.transact(ctx, TransWaitRotation, writeID(persistentID))
	if err != nil {
		return types.RotationPortrait, err
	}
	v, err := reply.ReadInt32()
	if err != nil {
		p.logger.Error("read rotation failed", zap.Error(err))
		return types.RotationPortrait, errors.Join(types.WSErrorIPCFailed, err)
	}
	return types.Rotation(v), nil
}

// GetSessionInfo returns one connected session. A disconnected session
// yields WSErrorInvalidSession.
func (p *Proxy) GetSessionInfo(ctx context.Context, persistentID int32) (types.SessionSnapshot, error) {
	reply, err := p.transact(ctx, TransGetSessionInfo, writeID(persistentID))
	if err != nil {
		return types.SessionSnapshot{}, err
	}
	return p.readSnapshot(reply, TransGetSessionInfo)
}

// GetSessionInfos returns every connected session ordered by identifier
func (p *Proxy) GetSessionInfos(ctx context.Context) ([]types.SessionSnapshot, error) {
	reply, err := p.transact(ctx, TransGetSessionInfos, nil)
	if err != nil {
		return nil, err
	}
	n, err := reply.ReadUint32()
	if err != nil {
		p.logger.Error("read session count failed", zap.Error(err))
		return nil, errors.Join(types.WSErrorIPCFailed, err)
	}
	out := make([]types.SessionSnapshot, 0, n)
	for i := uint32(0); i < n; i++ {
		snap, err := p.readSnapshot(reply, TransGetSessionInfos)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, nil
}

// GetFoldStatus returns the current fold status
func (p *Proxy) GetFoldStatus(ctx context.Context) (types.FoldStatus, error) {
	reply, err := p.transact(ctx, TransGetFoldStatus, nil)
	if err != nil {
		return types.FoldStatusUnknown, err
	}
	v, err := reply.ReadInt32()
	if err != nil {
		p.logger.Error("read fold status failed", zap.Error(err))
		return types.FoldStatusUnknown, errors.Join(types.WSErrorIPCFailed, err)
	}
	return types.FoldStatus(v), nil
}

// Dump returns the dump text for args. Rejected arguments still return the usage text.
func (p *Proxy) Dump(ctx context.Context, args []string) (string, error) {
	reply, err := p.transact(ctx, TransDump, func(d *Parcel) error { return d.WriteStrings(args) })
	if reply == nil {
		return "", err
	}
	text, readErr := reply.ReadString()
	if readErr != nil {
		p.logger.Error("read dump text failed", zap.Error(readErr))
		return "", errors.Join(types.WSErrorIPCFailed, readErr)
	}
	return text, err
}

func (p *Proxy) readSnapshot(reply *Parcel, code MessageCode) (types.SessionSnapshot, error) {
	snap, err := reply.ReadSessionSnapshot()
	if err != nil {
		p.logger.Error("read session snapshot failed", zap.Stringer("code", code), zap.Error(err))
		return types.SessionSnapshot{}, errors.Join(types.WSErrorIPCFailed, err)
	}
	return snap, nil
}

// LocalRemote delivers transactions to an in-process stub
type LocalRemote struct {
	Stub *Stub
}

// SendRequest implements Remote
func (r LocalRemote) SendRequest(ctx context.Context, code MessageCode, data *Parcel) (*Parcel, error) {
	if r.Stub == nil {
		return nil, ErrNullRemote
	}
	reply := NewParcel()
	if err := r.Stub.OnRemoteRequest(ctx, code, ParcelFrom(data.Bytes()), reply); err != nil {
		return nil, err
	}
	return ParcelFrom(reply.Bytes()), nil
}
