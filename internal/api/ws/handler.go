package ws

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/SceneOS/backend/internal/domain/directory"
	"github.com/GriffinCanCode/SceneOS/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/SceneOS/backend/internal/shared/types"
)

const (
	defaultWriteTimeout    = 5 * time.Second
	defaultMaxSendFailures = 3
	maxFrameSize           = 64 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler accepts remote listener agents
type Handler struct {
	dir     *directory.Manager
	metrics *monitoring.Metrics
	logger  *zap.Logger
	clock   clockwork.Clock

	writeTimeout    time.Duration
	maxSendFailures uint32

	mu     sync.Mutex
	agents map[string]*agent // keyed by agent ID
}

// Option configures a Handler
type Option func(*Handler)

// WithMetrics records connection and message counts
func WithMetrics(m *monitoring.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithClock sets the clock used for frame timestamps and the send breaker
func WithClock(clock clockwork.Clock) Option {
	return func(h *Handler) { h.clock = clock }
}

// WithWriteTimeout bounds each frame write
func WithWriteTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.writeTimeout = d
		}
	}
}

// WithMaxSendFailures sets how many consecutive failed writes declare the agent dead
func WithMaxSendFailures(n uint32) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxSendFailures = n
		}
	}
}

// NewHandler creates a WebSocket handler serving dir
func NewHandler(dir *directory.Manager, opts ...Option) *Handler {
	h := &Handler{
		dir:             dir,
		logger:          zap.NewNop(),
		clock:           clockwork.NewRealClock(),
		writeTimeout:    defaultWriteTimeout,
		maxSendFailures: defaultMaxSendFailures,
		agents:          make(map[string]*agent),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.Named("ws")
	return h
}

// Agents returns how many agents are connected
func (h *Handler) Agents() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.agents)
}

// Close disconnects every agent
func (h *Handler) Close() {
	h.mu.Lock()
	agents := make([]*agent, 0, len(h.agents))
	for _, a := range h.agents {
		agents = append(agents, a)
	}
	h.mu.Unlock()

	for _, a := range agents {
		a.close("server shutdown")
	}
}

// HandleConnection upgrades the request and serves the agent until it disconnects
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	conn.SetReadLimit(maxFrameSize)

	a := newAgent(h, conn, uuid.NewString())
	h.mu.Lock()
	h.agents[a.id.String()] = a
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.IncWSConnections()
	}
	a.logger.Info("agent connected", zap.String("remote", c.ClientIP()))

	defer a.close("connection closed")

	if err := a.send(Outbound{Type: MsgWelcome, AgentID: a.id.String(), ConnectionID: a.connID}); err != nil {
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				a.logger.Info("websocket read error", zap.Error(err))
			}
			return
		}

		var msg Inbound
		if err := sonic.Unmarshal(data, &msg); err != nil {
			h.recordMessage("in", "malformed")
			a.sendError(fmt.Errorf("malformed frame: %w", types.WSErrorInvalidParam))
			continue
		}
		h.recordMessage("in", inboundLabel(msg.Type))
		h.dispatch(a, msg)
	}
}

func (h *Handler) dispatch(a *agent, msg Inbound) {
	switch msg.Type {
	case MsgPing:
		a.send(Outbound{Type: MsgPong})
	case MsgRequestSession:
		h.requestSession(a, msg)
	case MsgSubscribe:
		h.subscribe(a, msg)
	case MsgUnsubscribe:
		lid, ok := a.unsubscribe(msg.PersistentID)
		if !ok {
			a.sendError(fmt.Errorf("not subscribed to %d: %w", msg.PersistentID, types.WSErrorDoNothing))
			return
		}
		a.send(Outbound{Type: MsgAck, Event: MsgUnsubscribe, PersistentID: msg.PersistentID, ListenerID: lid.String()})
	case MsgRectResult:
		h.rectResult(a, msg)
	default:
		a.sendError(fmt.Errorf("unknown message type %q: %w", msg.Type, types.WSErrorInvalidOperation))
	}
}

// requestSession creates a session owned by the agent and subscribes the agent to it
func (h *Handler) requestSession(a *agent, msg Inbound) {
	if msg.Session == nil || msg.Session.BundleName == "" {
		a.sendError(fmt.Errorf("request session needs a bundle name: %w", types.WSErrorNullError))
		return
	}
	info := *msg.Session
	info.OwnerID = a.id.String()

	sess := h.dir.RequestSession(info)
	lid, _ := a.subscribe(sess)
	snap := sess.Snapshot()
	a.send(Outbound{Type: MsgSession, PersistentID: snap.PersistentID, Session: &snap, ListenerID: lid.String()})
}

func (h *Handler) subscribe(a *agent, msg Inbound) {
	sess, err := h.dir.GetSession(msg.PersistentID)
	if err != nil {
		a.sendError(err)
		return
	}
	lid, ok := a.subscribe(sess)
	if !ok {
		a.sendError(fmt.Errorf("already subscribed to %d: %w", msg.PersistentID, types.WSErrorDoNothing))
		return
	}
	a.send(Outbound{Type: MsgAck, Event: MsgSubscribe, PersistentID: msg.PersistentID, ListenerID: lid.String()})
}

// rectResult answers the layout wait a RequestLayout call holds on the session
func (h *Handler) rectResult(a *agent, msg Inbound) {
	if msg.Rect == nil {
		a.sendError(fmt.Errorf("rect result needs a rect: %w", types.WSErrorNullError))
		return
	}
	sess, err := h.dir.GetSession(msg.PersistentID)
	if err != nil {
		a.sendError(err)
		return
	}
	sess.NotifyRectResult(*msg.Rect)
	a.send(Outbound{Type: MsgAck, Event: MsgRectResult, PersistentID: msg.PersistentID})
}

func (h *Handler) agentGone(a *agent) {
	h.mu.Lock()
	_, ok := h.agents[a.id.String()]
	delete(h.agents, a.id.String())
	h.mu.Unlock()

	if ok && h.metrics != nil {
		h.metrics.DecWSConnections()
	}
}

// inboundLabel bounds the metric label set to known message types
func inboundLabel(msgType string) string {
	switch msgType {
	case MsgPing, MsgRequestSession, MsgSubscribe, MsgUnsubscribe, MsgRectResult:
		return msgType
	default:
		return "unknown"
	}
}

func (h *Handler) recordMessage(direction, msgType string) {
	if h.metrics != nil {
		h.metrics.RecordWSMessage(direction, msgType)
	}
}
