/*
Package resilience provides a circuit breaker and a bounded retry helper.

# Circuit breaker

A Breaker guards calls to one peer. Its Policy says which errors count
against the peer and when to give up on it.

Remote listener agents use a terminal policy: an agent whose frames keep
failing is dead, and OnOpen tears it down, which destroys the sessions it
owns. The gRPC client of a remote session manager ignores rejections the
manager answered, counts only unreachable calls, and half-opens after a
cooldown.

	breaker := resilience.New("ws-"+connID, resilience.Settings{
		Policy: resilience.Policy{Threshold: 3, Terminal: true},
		OnOpen: func(_ string, _ resilience.Counts) { go agent.close("peer dead") },
	})

	err := breaker.Execute(func() error {
		return conn.WriteMessage(websocket.TextMessage, payload)
	})

States move as follows; a terminal breaker never leaves Open:

	Closed --[policy trips]-> Open --[cooldown]-> Half-Open --[trials pass]-> Closed
	                                                  |
	                                             [failure]
	                                                  v
	                                                 Open

# Retry

Retry runs an operation a fixed number of times with backoff. It is used when
opening the sensor plugin. Both helpers take a clockwork.Clock so tests can
drive time explicitly.
*/
package resilience
