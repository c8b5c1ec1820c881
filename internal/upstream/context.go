package upstream

import "context"

// RequestIDHeader carries the inbound request id to the upstreams.
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// ContextWithRequestID stores the inbound request id so fetches can forward it.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
