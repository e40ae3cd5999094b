// Package session implements the lifecycle of a single scene session.
//
// A Session moves through DISCONNECT, CONNECT, FOREGROUND, ACTIVE, INACTIVE and
// BACKGROUND along a fixed transition table. Illegal edges are rejected with
// types.WSErrorInvalidTransition and produce no notifications.
//
// Listeners:
//   - LifecycleListener: host-side Notify* fan-out (connect, foreground, ...)
//   - StateListener: client-side After* callbacks
//   - RectListener: geometry updates tagged with a SizeChangeReason
//
// Each capability lives in its own Registry. Notification copies the registry
// under its lock, releases the lock, then calls every live entry. A callback
// may therefore register or unregister listeners, including itself, without
// deadlocking and without disturbing the round in progress.
//
// The registry does not own listeners. A listener that implements Expirable
// is skipped once it reports Expired, which is how remote agents drop out when
// their connection dies.
package session
