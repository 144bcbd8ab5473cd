package logging

import (
	"context"

	"go.uber.org/zap"
)

type requestIDKey struct{}
type tenantIDKey struct{}

// WithRequestID returns a context carrying a correlation ID for logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// WithTenantID returns a context carrying a tenant ID for logging.
//
// Tenant IDs are auditable identifiers, not PII; they are always safe
// to log alongside correlation IDs.
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantIDKey{}, tenantID)
}

// RequestIDFromContext returns the correlation ID, or "" if absent.
func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// TenantIDFromContext returns the tenant ID, or "" if absent.
func TenantIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(tenantIDKey{}).(string); ok {
		return v
	}
	return ""
}

// ContextFields extracts correlation fields from a context as Zap fields.
func ContextFields(ctx context.Context) []zap.Field {
	if ctx == nil {
		return nil
	}
	var fields []zap.Field
	if v := RequestIDFromContext(ctx); v != "" {
		fields = append(fields, zap.String("request_id", v))
	}
	if v := TenantIDFromContext(ctx); v != "" {
		fields = append(fields, zap.String("tenant_id", v))
	}
	return fields
}
