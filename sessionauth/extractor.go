package sessionauth

import (
	"net/http"
	"strings"

	"google.golang.org/grpc/metadata"
)

// extractTokenFromHeader extracts the token from the Authorization header
// Expected format: "Authorization: Bearer <token>"
func extractTokenFromHeader(r *http.Request) (string, error) {
	return parseBearer(r.Header.Get("Authorization"))
}

// extractTokenFromCookie extracts the token from a cookie
func extractTokenFromCookie(r *http.Request, cookieName string) (string, error) {
	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return "", NewError(ErrMissingToken, "cookie not found", err)
	}

	token := strings.TrimSpace(cookie.Value)
	if token == "" {
		return "", NewError(ErrMissingToken, "cookie value is empty", nil)
	}

	return token, nil
}

// extractToken extracts the session token from an HTTP request.
// The session cookie wins over the Authorization header when both are set.
func extractToken(r *http.Request, cookieName string) (string, error) {
	if cookieName != "" {
		if token, err := extractTokenFromCookie(r, cookieName); err == nil {
			return token, nil
		}
	}

	return extractTokenFromHeader(r)
}

// extractTokenFromMetadata extracts the session token from gRPC metadata
func extractTokenFromMetadata(md metadata.MD) (string, error) {
	values := md.Get("authorization")
	if len(values) == 0 {
		return "", NewError(ErrMissingToken, "authorization metadata not found", nil)
	}
	return parseBearer(values[0])
}

func parseBearer(authHeader string) (string, error) {
	if authHeader == "" {
		return "", NewError(ErrMissingToken, "authorization header not found", nil)
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", NewError(ErrMalformedToken, "invalid authorization header format, expected 'Bearer <token>'", nil)
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", NewError(ErrMissingToken, "token is empty", nil)
	}

	return token, nil
}
