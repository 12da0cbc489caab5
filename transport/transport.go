// Package transport carries authenticator requests to the token server.
//
// Every request is a POST with a JSON body and an Accept: application/json
// header; every successful response is a JSON object.
package transport

import (
	"context"
	"fmt"
)

// Sender delivers one request and returns the decoded JSON response object.
// Failures are reported as *ServerError.
type Sender interface {
	Send(ctx context.Context, url string, body any, headers map[string]string) (map[string]any, error)
}

// ServerError describes a request the server refused or that never got a
// usable answer.
type ServerError struct {
	StatusCode int            // 0 when no response arrived
	Payload    map[string]any // structured error body, when the body was a JSON object
	Text       string         // raw response text, or the network error text
	Err        error          // underlying network or decode error, if any
}

func (e *ServerError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Text != "":
		return fmt.Sprintf("server responded %d: %s", e.StatusCode, e.Text)
	case e.StatusCode != 0:
		return fmt.Sprintf("server responded %d", e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("request failed: %v", e.Err)
	default:
		return "request failed"
	}
}

func (e *ServerError) Unwrap() error {
	return e.Err
}

// Body returns the structured payload when present, else the raw text.
func (e *ServerError) Body() any {
	if e.Payload != nil {
		return e.Payload
	}
	return e.Text
}
