// Package tokentest mints signed tokens for tests that need a token server's
// output without running one.
package tokentest

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningKey is the HMAC key every minted token is signed with.
var SigningKey = []byte("tokentest-signing-key")

// Creator mints HS256 tokens stamped from its clock.
type Creator struct {
	nowFunc func() time.Time
}

// NewCreator creates a Creator. A nil now uses time.Now.
func NewCreator(now func() time.Time) *Creator {
	if now == nil {
		now = time.Now
	}
	return &Creator{nowFunc: now}
}

// Sign signs claims exactly as given.
func (c *Creator) Sign(t testing.TB, claims jwtlib.MapClaims) string {
	t.Helper()
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(SigningKey)
	if err != nil {
		t.Fatalf("sign test token: %v", err)
	}
	return signed
}

// AccessToken mints a token for sub that expires ttl after the creator's now.
// A zero ttl leaves out the exp claim.
func (c *Creator) AccessToken(t testing.TB, sub string, ttl time.Duration) string {
	t.Helper()
	now := c.nowFunc()
	claims := jwtlib.MapClaims{
		"sub": sub,
		"iat": now.Unix(),
		"jti": uuid.New().String(),
	}
	if ttl != 0 {
		claims["exp"] = now.Add(ttl).Unix()
	}
	return c.Sign(t, claims)
}
