package sessionauth

import "context"

type ctxKey int

const (
	principalKey ctxKey = iota
	requestIDKey
)

// WithPrincipal marks ctx as belonging to an authenticated session.
// A nil principal leaves the request anonymous.
func WithPrincipal(ctx context.Context, principal *Principal) context.Context {
	return context.WithValue(ctx, principalKey, principal)
}

// PrincipalFromContext reports who the request was authenticated as.
//
// The middleware fails open: a request that carried no token, or a token
// that was malformed, expired, revoked or issued to a user who no longer
// exists, reaches the handler with no principal and ok == false. Handlers
// that must not serve anonymous callers sit behind RequirePrincipal.
func PrincipalFromContext(ctx context.Context) (principal *Principal, ok bool) {
	principal, ok = ctx.Value(principalKey).(*Principal)
	return principal, ok && principal != nil
}

// MustPrincipal is PrincipalFromContext for handlers mounted behind
// RequirePrincipal. It panics on an anonymous request.
func MustPrincipal(ctx context.Context) *Principal {
	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		panic("sessionauth: anonymous request reached a handler that requires a session")
	}
	return principal
}

// WithRequestID attaches the correlation id logged with security events
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey).(string)
	return id, ok && id != ""
}
