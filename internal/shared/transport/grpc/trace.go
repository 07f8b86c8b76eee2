package grpc

import (
	"context"

	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"Warfront/modules/kit/tracex"
)

const (
	traceIDHeader = "x-trace-id"
	spanIDHeader  = "x-span-id"
	nodeHeader    = "x-warfront-node"
)

type nodeKey struct{}

// WithNode 记录发起调用的节点（副本的 server_id）。
func WithNode(ctx context.Context, node string) context.Context {
	return context.WithValue(ctx, nodeKey{}, node)
}

func NodeFrom(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(nodeKey{}).(string)
	return v, ok && v != ""
}

// UnaryClientInterceptor 副本转发指令时带上 trace/span 与本节点标识。
func UnaryClientInterceptor(node string) gogrpc.UnaryClientInterceptor {
	return func(
		ctx context.Context,
		method string,
		req, reply any,
		cc *gogrpc.ClientConn,
		invoker gogrpc.UnaryInvoker,
		opts ...gogrpc.CallOption,
	) error {
		return invoker(outgoing(ctx, node), method, req, reply, cc, opts...)
	}
}

// UnaryServerInterceptor 权威节点取出 trace/span 与来源节点；
// 没带 trace 的请求补一个，转发的指令在日志里总能串起来。
func UnaryServerInterceptor() gogrpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *gogrpc.UnaryServerInfo,
		handler gogrpc.UnaryHandler,
	) (any, error) {
		return handler(tracex.Ensure(incoming(ctx)), req)
	}
}

func outgoing(ctx context.Context, node string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	kv := make([]string, 0, 6)
	if traceID, ok := tracex.TraceIDFrom(ctx); ok {
		kv = append(kv, traceIDHeader, traceID)
	}
	if spanID, ok := tracex.SpanIDFrom(ctx); ok {
		kv = append(kv, spanIDHeader, spanID)
	}
	if node != "" {
		kv = append(kv, nodeHeader, node)
	}
	if len(kv) == 0 {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, kv...)
}

func incoming(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ctx
	}
	first := func(key string) string {
		if v := md.Get(key); len(v) > 0 {
			return v[0]
		}
		return ""
	}
	if v := first(traceIDHeader); v != "" {
		ctx = tracex.WithTraceID(ctx, v)
	}
	if v := first(spanIDHeader); v != "" {
		ctx = tracex.WithSpanID(ctx, v)
	}
	if v := first(nodeHeader); v != "" {
		ctx = WithNode(ctx, v)
	}
	return ctx
}
