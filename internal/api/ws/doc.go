// Package ws serves remote listener agents over WebSocket.
//
// An agent is a client process. On connect it receives an agent ID, and
// sessions it requests are owned by that ID. The agent subscribes to
// session lifecycle and rect changes. Frames are JSON encoded with sonic:
//
//	-> {"type":"request_session","session":{"bundle_name":"com.example.camera"}}
//	<- {"type":"session","persistent_id":2000,"session":{...}}
//	<- {"type":"lifecycle","event":"foreground","persistent_id":2000}
//	-> {"type":"rect_result","persistent_id":2000,"rect":{...}}
//
// Writes go through a per-agent circuit breaker. When the connection drops
// or the breaker opens, the agent is treated as dead and every session it
// owns is destroyed.
package ws
