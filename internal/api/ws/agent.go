package ws

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/SceneOS/backend/internal/domain/session"
	"github.com/GriffinCanCode/SceneOS/backend/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/SceneOS/backend/internal/shared/id"
	"github.com/GriffinCanCode/SceneOS/backend/internal/shared/types"
)

// errAgentClosed is returned by send after the agent is gone
var errAgentClosed = errors.New("agent closed")

// agent is one remote process connected over a WebSocket. Sessions it
// requests are owned by its ID and die with it.
type agent struct {
	id     id.AgentID
	connID string
	conn   *websocket.Conn
	h      *Handler
	logger *zap.Logger

	writeMu sync.Mutex
	breaker *resilience.Breaker

	mu   sync.Mutex
	subs map[int32]*subscription // Protected by mu

	closed    atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
}

func newAgent(h *Handler, conn *websocket.Conn, connID string) *agent {
	a := &agent{
		id:     id.NewAgentID(),
		connID: connID,
		conn:   conn,
		h:      h,
		subs:   make(map[int32]*subscription),
		done:   make(chan struct{}),
	}
	a.logger = h.logger.With(zap.Stringer("agent_id", a.id), zap.String("connection_id", connID))
	// A peer that stops taking frames is dead: the breaker never half-opens,
	// and opening it runs owner death for the agent's sessions.
	a.breaker = resilience.New("ws-"+connID, resilience.Settings{
		Policy: resilience.Policy{
			Threshold: h.maxSendFailures,
			Terminal:  true,
		},
		Clock: h.clock,
		OnOpen: func(_ string, counts resilience.Counts) {
			// send may run inside a session notification; tear down off that goroutine
			go a.close(fmt.Sprintf("%d consecutive send failures", counts.ConsecutiveFailures))
		},
	})
	return a
}

// send encodes and writes one frame through the breaker
func (a *agent) send(msg Outbound) error {
	if a.closed.Load() {
		return errAgentClosed
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = a.h.clock.Now().Unix()
	}
	data, err := sonic.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s: %w", msg.Type, err)
	}

	err = a.breaker.Execute(func() error {
		a.writeMu.Lock()
		defer a.writeMu.Unlock()
		if err := a.conn.SetWriteDeadline(time.Now().Add(a.h.writeTimeout)); err != nil {
			return err
		}
		return a.conn.WriteMessage(websocket.TextMessage, data)
	})
	if err != nil {
		a.logger.Debug("send failed", zap.String("type", msg.Type), zap.Error(err))
		return err
	}
	a.h.recordMessage("out", msg.Type)
	return nil
}

func (a *agent) sendError(err error) {
	a.send(Outbound{Type: MsgError, Code: int32(types.Code(err)), Error: err.Error()})
}

// subscribe attaches a new subscription to sess and returns its listener ID
func (a *agent) subscribe(sess *session.Session) (id.ListenerID, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed.Load() {
		return "", false
	}
	if _, ok := a.subs[sess.PersistentID()]; ok {
		return "", false
	}
	sub := newSubscription(a, sess)
	sess.RegisterLifecycleListener(sub)
	sess.RegisterRectListener(sub)
	a.subs[sess.PersistentID()] = sub
	return sub.id, true
}

func (a *agent) unsubscribe(persistentID int32) (id.ListenerID, bool) {
	a.mu.Lock()
	sub, ok := a.subs[persistentID]
	delete(a.subs, persistentID)
	a.mu.Unlock()

	if !ok {
		return "", false
	}
	sub.cancel()
	return sub.id, true
}

func (a *agent) subscriptions() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.subs)
}

// close tears the agent down once. Listeners expire before the owner's
// sessions are destroyed so the destruction is not echoed to a dead peer.
func (a *agent) close(reason string) {
	a.closeOnce.Do(func() {
		a.closed.Store(true)

		a.mu.Lock()
		subs := a.subs
		a.subs = make(map[int32]*subscription)
		a.mu.Unlock()
		for _, sub := range subs {
			sub.cancel()
		}

		a.conn.Close()
		removed := a.h.dir.HandleOwnerDeath(a.id.String())
		a.logger.Info("agent disconnected", zap.String("reason", reason), zap.Int("sessions_destroyed", removed))
		a.h.agentGone(a)
		close(a.done)
	})
}
