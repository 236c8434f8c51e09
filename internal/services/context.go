package services

import (
	"context"

	"audiosurvey/internal/survey"
)

type contextKey string

const (
	identityKey  contextKey = "identity"
	runIDKey     contextKey = "run_id"
	requestIDKey contextKey = "request_id"
)

// WithIdentity annotates context with the survey identity being served.
func WithIdentity(ctx context.Context, id survey.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext extracts the survey identity if present.
func IdentityFromContext(ctx context.Context) (survey.Identity, bool) {
	id, ok := ctx.Value(identityKey).(survey.Identity)
	if !ok || !id.Kind.Valid() {
		return survey.Identity{}, false
	}
	return id, true
}

// WithRunID annotates context with the identifier of a content build.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext returns the build run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
