package core

import "context"

// Context keys for scoring options
type contextKey string

const (
	tenantKey         contextKey = "tenant"
	suppressHeaderKey contextKey = "suppressHeader"
)

// WithTenant stores the tenant a request or job operates on.
func WithTenant(ctx context.Context, tenant string) context.Context {
	return context.WithValue(ctx, tenantKey, tenant)
}

// TenantFromContext returns the tenant stored by WithTenant.
func TenantFromContext(ctx context.Context) (string, bool) {
	tenant, ok := ctx.Value(tenantKey).(string)
	return tenant, ok && tenant != ""
}

// withSuppressHeader sets whether the scoring header should be suppressed
func withSuppressHeader(ctx context.Context) context.Context {
	return context.WithValue(ctx, suppressHeaderKey, true)
}

// shouldSuppressHeader returns whether headers should be suppressed from context
func shouldSuppressHeader(ctx context.Context) bool {
	val := ctx.Value(suppressHeaderKey)
	if val == nil {
		return false // default: show headers
	}
	suppress, ok := val.(bool)
	return ok && suppress
}
