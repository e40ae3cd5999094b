package ws

import (
	"github.com/GriffinCanCode/SceneOS/backend/internal/domain/session"
	"github.com/GriffinCanCode/SceneOS/backend/internal/shared/id"
	"github.com/GriffinCanCode/SceneOS/backend/internal/shared/types"
)

var (
	_ session.LifecycleListener = (*subscription)(nil)
	_ session.RectListener      = (*subscription)(nil)
	_ session.Expirable         = (*subscription)(nil)
)

// subscription forwards one session's callbacks to an agent. It expires with the connection.
// Every frame it sends carries its listener ID.
type subscription struct {
	session.Lifetime
	id    id.ListenerID
	agent *agent
	sess  *session.Session
}

func newSubscription(a *agent, sess *session.Session) *subscription {
	return &subscription{id: id.NewListenerID(), agent: a, sess: sess}
}

func (s *subscription) lifecycle(event string, persistentID int32) {
	s.agent.send(Outbound{Type: MsgLifecycle, Event: event, PersistentID: persistentID, ListenerID: s.id.String()})
}

func (s *subscription) OnConnect(id int32)    { s.lifecycle("connect", id) }
func (s *subscription) OnForeground(id int32) { s.lifecycle("foreground", id) }
func (s *subscription) OnBackground(id int32) { s.lifecycle("background", id) }
func (s *subscription) OnActivation(id int32) { s.lifecycle("activation", id) }
func (s *subscription) OnDisconnect(id int32) { s.lifecycle("disconnect", id) }

func (s *subscription) OnRectChange(id int32, rect types.Rect, reason types.SizeChangeReason) {
	s.agent.send(Outbound{Type: MsgRect, PersistentID: id, Rect: &rect, Reason: reason.String(), ListenerID: s.id.String()})
}

func (s *subscription) cancel() {
	s.Expire()
	s.sess.UnregisterLifecycleListener(s)
	s.sess.UnregisterRectListener(s)
}
