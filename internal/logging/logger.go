// Package logging is the structured logger shared by the server, its
// services and the admin CLI. The zerolog adapter is the only backend.
package logging

import "context"

// Logger logs a message with key/value pairs:
//
//	log.Info(ctx, "reservation created", "package_id", id, "actor", name)
//
// A request id stored with ContextWithRequestID is attached to every entry
// logged with that ctx.
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given pairs.
	With(args ...any) Logger
}

type requestIDKey struct{}

func ContextWithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestIDFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
