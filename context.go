package goSession

import "context"

type skipAuthContextKey struct{}

// WithoutAuth marks ctx so that requests carrying it are sent without session
// credentials, such as the login call itself.
func WithoutAuth(ctx context.Context) context.Context {
	return context.WithValue(ctx, skipAuthContextKey{}, true)
}

// AuthSkipped reports whether ctx was marked by WithoutAuth.
func AuthSkipped(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	skip, _ := ctx.Value(skipAuthContextKey{}).(bool)
	return skip
}
