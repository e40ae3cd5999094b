package ipc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/GriffinCanCode/SceneOS/backend/internal/shared/types"
)

// ErrShortParcel is returned when a read runs past the end of the parcel
var ErrShortParcel = errors.New("parcel: short read")

// maxStringLen bounds a single string so a corrupt length cannot allocate unbounded memory
const maxStringLen = 1 << 20

var order = binary.LittleEndian

// Parcel is a flat little-endian argument buffer. Writes append, reads consume
// from the front in the same order. Fixed-width writes cannot fail; only
// strings, which are length-bounded, report an error.
type Parcel struct {
	buf []byte
	off int
}

// NewParcel returns an empty parcel
func NewParcel() *Parcel {
	return &Parcel{}
}

// ParcelFrom wraps received bytes for reading
func ParcelFrom(b []byte) *Parcel {
	return &Parcel{buf: b}
}

// Bytes returns the written contents
func (p *Parcel) Bytes() []byte { return p.buf }

// Len returns the total size in bytes
func (p *Parcel) Len() int { return len(p.buf) }

// Remaining returns the unread byte count
func (p *Parcel) Remaining() int { return len(p.buf) - p.off }

func (p *Parcel) next(n int) ([]byte, error) {
	if n < 0 || p.Remaining() < n {
		return nil, ErrShortParcel
	}
	b := p.buf[p.off : p.off+n]
	p.off += n
	return b, nil
}

// WriteInterfaceToken writes the descriptor that must lead every request
func (p *Parcel) WriteInterfaceToken(descriptor string) error {
	return p.WriteString(descriptor)
}

// ReadInterfaceToken reads the leading descriptor
func (p *Parcel) ReadInterfaceToken() (string, error) {
	return p.ReadString()
}

// WriteInt32 appends v
func (p *Parcel) WriteInt32(v int32) {
	p.buf = order.AppendUint32(p.buf, uint32(v))
}

// ReadInt32 consumes an int32
func (p *Parcel) ReadInt32() (int32, error) {
	v, err := p.ReadUint32()
	return int32(v), err
}

// WriteUint32 appends v
func (p *Parcel) WriteUint32(v uint32) {
	p.buf = order.AppendUint32(p.buf, v)
}

// ReadUint32 consumes a uint32
func (p *Parcel) ReadUint32() (uint32, error) {
	b, err := p.next(4)
	if err != nil {
		return 0, err
	}
	return order.Uint32(b), nil
}

// WriteUint64 appends v
func (p *Parcel) WriteUint64(v uint64) {
	p.buf = order.AppendUint64(p.buf, v)
}

// ReadUint64 consumes a uint64
func (p *Parcel) ReadUint64() (uint64, error) {
	b, err := p.next(8)
	if err != nil {
		return 0, err
	}
	return order.Uint64(b), nil
}

// WriteBool appends v as a 32-bit word
func (p *Parcel) WriteBool(v bool) {
	var w uint32
	if v {
		w = 1
	}
	p.WriteUint32(w)
}

// ReadBool consumes a bool
func (p *Parcel) ReadBool() (bool, error) {
	v, err := p.ReadUint32()
	return v != 0, err
}

// WriteString appends a length-prefixed UTF-8 string
func (p *Parcel) WriteString(s string) error {
	if len(s) > maxStringLen {
		return fmt.Errorf("parcel: string of %d bytes exceeds %d", len(s), maxStringLen)
	}
	p.buf = order.AppendUint32(p.buf, uint32(len(s)))
	p.buf = append(p.buf, s...)
	return nil
}

// ReadString consumes a length-prefixed string
func (p *Parcel) ReadString() (string, error) {
	n, err := p.ReadUint32()
	if err != nil {
		return "", err
	}
	if n > maxStringLen || n > math.MaxInt32 {
		return "", fmt.Errorf("parcel: string length %d: %w", n, ErrShortParcel)
	}
	b, err := p.next(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// WriteStrings appends a counted string list
func (p *Parcel) WriteStrings(list []string) error {
	p.WriteUint32(uint32(len(list)))
	for _, s := range list {
		if err := p.WriteString(s); err != nil {
			return err
		}
	}
	return nil
}

// ReadStrings consumes a counted string list
func (p *Parcel) ReadStrings() ([]string, error) {
	n, err := p.ReadUint32()
	if err != nil {
		return nil, err
	}
	// Every string needs at least its 4-byte length prefix
	if int64(n)*4 > int64(p.Remaining()) {
		return nil, ErrShortParcel
	}
	list := make([]string, 0, n)
	for i := uint32(0); i < n; i++ {
		s, err := p.ReadString()
		if err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, nil
}

// WriteRect appends r
func (p *Parcel) WriteRect(r types.Rect) {
	p.WriteInt32(r.X)
	p.WriteInt32(r.Y)
	p.WriteUint32(r.Width)
	p.WriteUint32(r.Height)
}

// ReadRect consumes a rect
func (p *Parcel) ReadRect() (types.Rect, error) {
	b, err := p.next(16)
	if err != nil {
		return types.Rect{}, err
	}
	return types.Rect{
		X:      int32(order.Uint32(b[0:])),
		Y:      int32(order.Uint32(b[4:])),
		Width:  order.Uint32(b[8:]),
		Height: order.Uint32(b[12:]),
	}, nil
}

// WriteSessionInfo appends a session creation request
func (p *Parcel) WriteSessionInfo(info types.SessionInfo) error {
	for _, s := range []string{info.BundleName, info.ModuleName, info.AbilityName} {
		if err := p.WriteString(s); err != nil {
			return err
		}
	}
	p.WriteUint64(info.ScreenID)
	p.WriteRect(info.Rect)
	return p.WriteString(info.OwnerID)
}

// ReadSessionInfo consumes a session creation request
func (p *Parcel) ReadSessionInfo() (types.SessionInfo, error) {
	var (
		info types.SessionInfo
		err  error
	)
	if info.BundleName, err = p.ReadString(); err != nil {
		return info, err
	}
	if info.ModuleName, err = p.ReadString(); err != nil {
		return info, err
	}
	if info.AbilityName, err = p.ReadString(); err != nil {
		return info, err
	}
	if info.ScreenID, err = p.ReadUint64(); err != nil {
		return info, err
	}
	if info.Rect, err = p.ReadRect(); err != nil {
		return info, err
	}
	info.OwnerID, err = p.ReadString()
	return info, err
}

// WriteSessionSnapshot appends a session view
func (p *Parcel) WriteSessionSnapshot(s types.SessionSnapshot) error {
	p.WriteInt32(s.PersistentID)
	for _, v := range []string{s.Name, s.SurfaceName, s.BundleName} {
		if err := p.WriteString(v); err != nil {
			return err
		}
	}
	p.WriteInt32(int32(s.State))
	p.WriteRect(s.Rect)
	p.WriteUint64(s.ScreenID)
	return p.WriteString(s.OwnerID)
}

// ReadSessionSnapshot consumes a session view
func (p *Parcel) ReadSessionSnapshot() (types.SessionSnapshot, error) {
	var (
		s     types.SessionSnapshot
		state int32
		err   error
	)
	if s.PersistentID, err = p.ReadInt32(); err != nil {
		return s, err
	}
	if s.Name, err = p.ReadString(); err != nil {
		return s, err
	}
	if s.SurfaceName, err = p.ReadString(); err != nil {
		return s, err
	}
	if s.BundleName, err = p.ReadString(); err != nil {
		return s, err
	}
	if state, err = p.ReadInt32(); err != nil {
		return s, err
	}
	s.State = types.SessionState(state)
	s.StateName = s.State.String()
	if s.Rect, err = p.ReadRect(); err != nil {
		return s, err
	}
	if s.ScreenID, err = p.ReadUint64(); err != nil {
		return s, err
	}
	s.OwnerID, err = p.ReadString()
	return s, err
}
