// Package grpc carries scene session manager parcels between processes.
//
// The service is declared by hand (ServiceDesc) with a single unary method,
// /scene.SceneSessionManager/Transact. The request and reply bodies are
// wrapperspb.BytesValue holding an ipc.Parcel, and the ipc.MessageCode rides
// in the x-scene-code metadata key. When the stub rejects a transaction the
// server answers with codes.Aborted and puts the WSError in the x-scene-error
// trailer, so the client can hand the caller the same error it would get
// in-process.
//
// Client implements ipc.Remote behind a circuit breaker:
//
//	client, err := grpc.Dial("localhost:50061", logger, tracer)
//	proxy := ipc.NewProxy(client, logger)
//	snap, err := proxy.RequestSession(ctx, info)
package grpc
