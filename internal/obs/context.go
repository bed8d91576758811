package obs

import "context"

type routeKey struct{}

// WithRoutePattern records the matched chi pattern, such as
// "/api/v1/bookings/{id}", so metrics, logs and audit entries share one
// low-cardinality route label.
func WithRoutePattern(ctx context.Context, pattern string) context.Context {
	return context.WithValue(ctx, routeKey{}, pattern)
}

// RoutePatternFromContext returns the pattern stored by WithRoutePattern.
func RoutePatternFromContext(ctx context.Context) string {
	pattern, _ := ctx.Value(routeKey{}).(string)
	return pattern
}
