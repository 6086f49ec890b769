package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformedToken is returned when a token cannot be structurally decoded.
var ErrMalformedToken = errors.New("malformed session token")

// Claims is the decoded payload of a session token.
//
// Decoding is advisory only: the client never verifies the signature, it
// just reads the payload so it can log out proactively before a request
// fails. The backend remains the sole authority on token validity.
type Claims struct {
	PlatformUserID string `json:"user_id,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the platform user identifier, falling back to the
// registered subject claim when the platform claim is absent.
func (c *Claims) UserID() string {
	if c.PlatformUserID != "" {
		return c.PlatformUserID
	}
	return c.Subject
}

// Expired reports whether the token carries an expiry that is already past.
// Tokens without an expiry never expire client-side.
func (c *Claims) Expired(now time.Time) bool {
	if c.ExpiresAt == nil {
		return false
	}
	return c.ExpiresAt.Before(now)
}

// DecodeToken decodes a compact JWT without verifying its signature.
// Returns ErrMalformedToken for anything that is not three base64url
// segments carrying a JSON payload.
func DecodeToken(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	return claims, nil
}
