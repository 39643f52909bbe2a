package queue

import "context"

// Callers that dispatch jobs. Internal dispatches (the pipeline, the
// recurring scheduler, the processor itself) are exempt from rate limits.
const (
	CallerInternal  = "internal"
	CallerAdmin     = "admin"
	CallerAutomated = "automated"
)

type callerKey struct{}

// WithCaller tags the context with the dispatching caller class.
func WithCaller(ctx context.Context, caller string) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// CallerFromCtx returns the caller class, defaulting to internal.
func CallerFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(callerKey{}).(string); ok && v != "" {
		return v
	}
	return CallerInternal
}
