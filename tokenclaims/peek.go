package tokenclaims

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotJWT is returned when the token is not a parseable JWT.
var ErrNotJWT = errors.New("token is not a JWT")

// Claims is the subset of registered claims the client cares about.
// Zero times mean the claim was absent.
type Claims struct {
	Subject   string
	ID        string
	Issuer    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Peek parses token without signature verification.
func Peek(token string) (Claims, error) {
	var rc jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &rc); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrNotJWT, err)
	}

	c := Claims{
		Subject: rc.Subject,
		ID:      rc.ID,
		Issuer:  rc.Issuer,
	}
	if rc.IssuedAt != nil {
		c.IssuedAt = rc.IssuedAt.Time
	}
	if rc.ExpiresAt != nil {
		c.ExpiresAt = rc.ExpiresAt.Time
	}
	return c, nil
}

// ExpiresBefore returns the earlier of the token's exp claim and fallback.
// When the token has no readable exp, fallback is returned unchanged.
func ExpiresBefore(token string, fallback time.Time) time.Time {
	c, err := Peek(token)
	if err != nil || c.ExpiresAt.IsZero() {
		return fallback
	}
	if c.ExpiresAt.Before(fallback) {
		return c.ExpiresAt
	}
	return fallback
}
