package tracing

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// HTTPMiddleware creates Gin middleware for HTTP tracing
func HTTPMiddleware(tracer *Tracer) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := ExtractTraceContext(c.Request.Context(), map[string]string{
			HeaderTraceID: c.GetHeader(HeaderTraceID),
			HeaderSpanID:  c.GetHeader(HeaderSpanID),
		})

		name := c.FullPath()
		if name == "" {
			name = "unmatched"
		}
		span, ctx := tracer.StartSpan(ctx, c.Request.Method+" "+name)
		span.SetTag("http.method", c.Request.Method)
		span.SetTag("http.url", c.Request.URL.String())

		c.Request = c.Request.WithContext(ctx)

		c.Header(HeaderTraceID, string(span.TraceID))
		c.Header(HeaderSpanID, string(span.SpanID))

		c.Next()

		span.SetStatus(c.Writer.Status())
		span.SetTag("http.status", statusTag(c.Writer.Status()))
		if len(c.Errors) > 0 {
			span.SetError(c.Errors.Last())
		}

		span.Finish()
		tracer.Submit(span)
	}
}

// GRPCUnaryInterceptor creates a gRPC unary interceptor for tracing
func GRPCUnaryInterceptor(tracer *Tracer) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			ctx = ExtractTraceContext(ctx, map[string]string{
				HeaderTraceID: first(md, HeaderTraceID),
				HeaderSpanID:  first(md, HeaderSpanID),
			})
		}

		span, ctx := tracer.StartSpan(ctx, info.FullMethod)
		span.SetTag("rpc.system", "grpc")
		span.SetTag("rpc.method", info.FullMethod)

		resp, err := handler(ctx, req)
		if err != nil {
			span.SetError(err)
		}

		span.Finish()
		tracer.Submit(span)

		return resp, err
	}
}

// GRPCClientInterceptor creates a gRPC client interceptor for trace propagation
func GRPCClientInterceptor(tracer *Tracer) grpc.UnaryClientInterceptor {
	return func(
		ctx context.Context,
		method string,
		req, reply any,
		cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker,
		opts ...grpc.CallOption,
	) error {
		span, ctx := tracer.StartSpan(ctx, method)
		span.SetTag("rpc.system", "grpc")
		span.SetTag("rpc.method", method)
		span.SetTag("span.kind", "client")

		headers := make(map[string]string)
		InjectTraceContext(ctx, headers)
		for k, v := range headers {
			ctx = metadata.AppendToOutgoingContext(ctx, strings.ToLower(k), v)
		}

		err := invoker(ctx, method, req, reply, cc, opts...)
		if err != nil {
			span.SetError(err)
		}

		span.Finish()
		tracer.Submit(span)

		return err
	}
}

func first(md metadata.MD, key string) string {
	if vals := md.Get(key); len(vals) > 0 {
		return vals[0]
	}
	return ""
}
