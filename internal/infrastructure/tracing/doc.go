/*
Package tracing records one span per IPC transaction and per HTTP request.

Spans are written to zap by a background collector. Trace and span IDs are
prefixed ULIDs from internal/shared/id (req_* for traces, spn_* for spans)
and travel between processes in the X-Trace-ID and X-Span-ID headers or the
matching gRPC metadata keys.

	tracer := tracing.New("scene", logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))
	server := grpc.NewServer(grpc.UnaryInterceptor(tracing.GRPCUnaryInterceptor(tracer)))

	err := tracer.Trace(ctx, "ipc.activate", func(ctx context.Context) error {
		return dir.RequestActivation(s)
	})

The span buffer holds 1000 entries; spans submitted while it is full are
dropped with a warning.
*/
package tracing
