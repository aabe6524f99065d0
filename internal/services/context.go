package services

import "context"

type contextKey string

const (
	runIDKey       contextKey = "run_id"
	userContextKey contextKey = "user_context"
	phaseKey       contextKey = "phase"
)

// WithRunID annotates context with the invocation correlation identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the invocation correlation identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, runIDKey)
}

// WithUserContext annotates context with the watch history context key.
func WithUserContext(ctx context.Context, userContext string) context.Context {
	if userContext == "" {
		return ctx
	}
	return context.WithValue(ctx, userContextKey, userContext)
}

// UserContextFromContext returns the watch history context key if present.
func UserContextFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, userContextKey)
}

// WithPhase annotates context with the pipeline phase name.
func WithPhase(ctx context.Context, phase string) context.Context {
	if phase == "" {
		return ctx
	}
	return context.WithValue(ctx, phaseKey, phase)
}

// PhaseFromContext returns the pipeline phase name if present.
func PhaseFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, phaseKey)
}

func stringValue(ctx context.Context, key contextKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	if v, ok := ctx.Value(key).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
