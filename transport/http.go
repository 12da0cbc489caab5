package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
)

const maxResponseBytes = 1 << 20

// RequestIDHeader carries a per-request UUID for server-side correlation.
const RequestIDHeader = "X-Request-ID"

// HTTPSender is the JSON-over-HTTP Sender.
type HTTPSender struct {
	client *http.Client
}

var _ Sender = (*HTTPSender)(nil)

type HTTPOption func(*HTTPSender)

func WithHTTPClient(client *http.Client) HTTPOption {
	return func(s *HTTPSender) {
		s.client = client
	}
}

func NewHTTPSender(options ...HTTPOption) *HTTPSender {
	s := &HTTPSender{}
	for _, opt := range options {
		opt(s)
	}
	if s.client == nil {
		s.client = http.DefaultClient
	}
	return s
}

func (s *HTTPSender) Send(ctx context.Context, url string, body any, headers map[string]string) (map[string]any, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if req.Header.Get(RequestIDHeader) == "" {
		req.Header.Set(RequestIDHeader, uuid.New().String())
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &ServerError{Text: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &ServerError{StatusCode: resp.StatusCode, Text: err.Error(), Err: fmt.Errorf("read response: %w", err)}
	}

	payload, decodeErr := decodeObject(raw)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ServerError{StatusCode: resp.StatusCode, Payload: payload, Text: string(bytes.TrimSpace(raw))}
	}
	if decodeErr != nil {
		return nil, &ServerError{StatusCode: resp.StatusCode, Text: string(bytes.TrimSpace(raw)), Err: decodeErr}
	}
	if payload == nil {
		payload = map[string]any{}
	}
	return payload, nil
}

// decodeObject parses raw as a JSON object. An empty body decodes to nil.
func decodeObject(raw []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return obj, nil
}
