package clientip

import "context"

type ctxKey struct{}

// SetIPToContext stores the resolved client IP so downstream handlers
// (the paygate allow-list check) see the same value the middleware
// resolved.
func SetIPToContext(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxKey{}, ip)
}

// GetIPFromContext returns the stored client IP, or "" when the
// middleware did not run.
func GetIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(ctxKey{}).(string)
	return ip
}
