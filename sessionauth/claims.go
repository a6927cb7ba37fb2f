package sessionauth

import "time"

// Claims is the decoded payload of a session token
type Claims struct {
	Subject   string    // Username the token was issued to (sub claim)
	IssuedAt  time.Time // Issue time, whole seconds (iat claim)
	ExpiresAt time.Time // Expiry, whole seconds (exp claim)
	TokenID   string    // Unique per issuance (jti claim)
}

// ValidAt reports whether the claims are still live at t.
// A token is valid strictly before its expiry instant.
func (c *Claims) ValidAt(t time.Time) bool {
	return t.Before(c.ExpiresAt)
}
