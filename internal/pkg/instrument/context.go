package instrument

import "context"

type ctxKey int

const (
	runIDKey ctxKey = iota
	targetKey
)

// WithRunID stores the run identifier in ctx. Every log record written with
// that context carries it as _rID.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

// GetRunID returns the run identifier stored in ctx, or "".
func GetRunID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(runIDKey).(string)
	return id
}

// WithTarget stores the target name in ctx.
func WithTarget(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, targetKey, name)
}

// GetTarget returns the target name stored in ctx, or "".
func GetTarget(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	name, _ := ctx.Value(targetKey).(string)
	return name
}
