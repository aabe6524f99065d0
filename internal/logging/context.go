package logging

import (
	"context"
	"log/slog"

	"tvrecs/internal/services"
)

const (
	FieldComponent = "component"
	// FieldRunID correlates every line of one CLI invocation.
	FieldRunID = "correlation_id"
	// FieldUserContext names the watch history context (for example tautulli_alice).
	FieldUserContext = "user_context"
	// FieldPhase names the pipeline phase (history, profile, candidates, ...).
	FieldPhase        = "phase"
	FieldEventType    = "event_type"
	FieldErrorHint    = "error_hint"
	FieldImpact       = "impact"
	FieldError        = "error"
	FieldDecisionType = "decision_type"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if userCtx, ok := services.UserContextFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldUserContext, userCtx))
	}
	if phase, ok := services.PhaseFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldPhase, phase))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
