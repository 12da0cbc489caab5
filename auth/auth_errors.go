package auth

import (
	"errors"

	"github.com/jrsteele09/go-token-session/token"
)

var (
	// ErrEmptySession means there is no usable token: the caller is simply
	// not authenticated.
	ErrEmptySession = errors.New("session has no token")
	// ErrServerRejected wraps a *transport.ServerError from the token endpoint.
	ErrServerRejected = errors.New("server rejected credentials")
	// ErrMalformedToken is returned when a token payload cannot be decoded.
	ErrMalformedToken = token.ErrMalformed
	// ErrRefreshFailed is returned by a refresh that did not produce a new
	// token. No further refresh is scheduled after it.
	ErrRefreshFailed = errors.New("token refresh failed")
	// ErrInsecureTransport is advisory only: requests are still sent.
	ErrInsecureTransport = errors.New("endpoint does not use https")
)
