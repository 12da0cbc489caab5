package auth

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

var _ oauth2.TokenSource = (*Authenticator)(nil)

// Token returns the current bearer token, following refreshes as they land.
// It implements oauth2.TokenSource and returns ErrEmptySession when there is
// no session.
func (a *Authenticator) Token() (*oauth2.Token, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	tok := a.current.Token(a.config.GetTokenPropertyName())
	if tok == "" {
		return nil, ErrEmptySession
	}
	t := &oauth2.Token{AccessToken: tok, TokenType: "Bearer"}
	if a.expiresAt > 0 {
		t.Expiry = time.UnixMilli(a.expiresAt)
	}
	return t, nil
}

// HTTPClient returns a client that attaches the current bearer token to
// every request it sends.
func (a *Authenticator) HTTPClient(ctx context.Context) *http.Client {
	return oauth2.NewClient(ctx, a)
}

// Authorize sets the configured authorization header on req. It leaves req
// untouched and returns ErrEmptySession when there is no session.
func (a *Authenticator) Authorize(req *http.Request) error {
	t, err := a.Token()
	if err != nil {
		return err
	}
	req.Header.Set(a.config.GetAuthorizationHeaderName(), a.config.GetAuthorizationPrefix()+t.AccessToken)
	return nil
}
