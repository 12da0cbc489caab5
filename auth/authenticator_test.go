package auth_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-token-session/auth"
	"github.com/jrsteele09/go-token-session/internal/config"
	"github.com/jrsteele09/go-token-session/metrics"
	"github.com/jrsteele09/go-token-session/sessions"
	"github.com/jrsteele09/go-token-session/token/refresh"
	"github.com/jrsteele09/go-token-session/token/tokentest"
	"github.com/jrsteele09/go-token-session/transport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	testServerURL       = "https://auth.example.com"
	testTokenURL        = testServerURL + "/api-token-auth/"
	testRefreshURL      = testServerURL + "/api-token-refresh/"
	testIdentification  = "john.doe@example.com"
	testPassword        = "password123"
	testNowUnix         = int64(1_700_000_000)
	testTokenTTLSeconds = int64(3600)
)

var testNow = time.Unix(testNowUnix, 0)

type sentRequest struct {
	URL     string
	Body    any
	Headers map[string]string
}

type fakeResponse struct {
	body map[string]any
	err  error
}

// fakeSender replays queued responses and records every request.
type fakeSender struct {
	mu        sync.Mutex
	requests  []sentRequest
	responses []fakeResponse
	onSend    func(sentRequest)
}

func (f *fakeSender) respond(body map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, fakeResponse{body: body})
}

func (f *fakeSender) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, fakeResponse{err: err})
}

func (f *fakeSender) Send(_ context.Context, url string, body any, headers map[string]string) (map[string]any, error) {
	f.mu.Lock()
	req := sentRequest{URL: url, Body: body, Headers: headers}
	f.requests = append(f.requests, req)
	var resp fakeResponse
	if len(f.responses) > 0 {
		resp = f.responses[0]
		f.responses = f.responses[1:]
	} else {
		resp = fakeResponse{err: &transport.ServerError{StatusCode: 500, Text: "no response queued"}}
	}
	onSend := f.onSend
	f.mu.Unlock()

	if onSend != nil {
		onSend(req)
	}
	return resp.body, resp.err
}

func (f *fakeSender) sent() []sentRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentRequest(nil), f.requests...)
}

// testFixture holds an authenticator wired to fakes
type testFixture struct {
	cfg       config.Auth
	sender    *fakeSender
	scheduler *refresh.InertScheduler
	logs      *bytes.Buffer
	registry  *prometheus.Registry
	updates   []sessions.Properties
	auth      *auth.Authenticator
}

func testConfig() config.Auth {
	cfg := config.DefaultAuth()
	cfg.ServerURL = testServerURL
	zero := time.Duration(0)
	cfg.RefreshLeeway = &zero
	return cfg
}

func setupTestFixture(t *testing.T, mutate ...func(*config.Auth)) *testFixture {
	t.Helper()

	f := &testFixture{
		cfg:       testConfig(),
		sender:    &fakeSender{},
		scheduler: refresh.NewInertScheduler(),
		logs:      &bytes.Buffer{},
		registry:  prometheus.NewRegistry(),
	}
	for _, m := range mutate {
		m(&f.cfg)
	}
	require.NoError(t, f.cfg.Validate())

	f.auth = auth.New(f.cfg, f.sender,
		auth.WithScheduler(f.scheduler),
		auth.WithNowFunc(func() time.Time { return testNow }),
		auth.WithLogger(zerolog.New(f.logs)),
		auth.WithMetrics(metrics.New(f.registry)),
		auth.WithSessionDataUpdated(func(p sessions.Properties) { f.updates = append(f.updates, p) }),
	)
	return f
}

var testTokens = tokentest.NewCreator(func() time.Time { return testNow })

func makeToken(t *testing.T, claims jwtlib.MapClaims) string {
	return testTokens.Sign(t, claims)
}

func tokenExpiringIn(t *testing.T, seconds int64, sub string) string {
	return testTokens.AccessToken(t, sub, time.Duration(seconds)*time.Second)
}

func (f *testFixture) authenticate(t *testing.T, tok string) sessions.Properties {
	t.Helper()
	f.sender.respond(map[string]any{"token": tok, "user_id": "user-1"})
	props, err := f.auth.Authenticate(context.Background(), auth.Credentials{Identification: testIdentification, Password: testPassword})
	require.NoError(t, err)
	return props
}

func TestRestore(t *testing.T) {
	tests := []struct {
		name    string
		props   sessions.Properties
		wantErr bool
	}{
		{"valid", sessions.Properties{"token": "abc", "exp": testNowUnix}, false},
		{"nil", nil, true},
		{"missing token", sessions.Properties{"user_id": "user-1"}, true},
		{"empty token", sessions.Properties{"token": ""}, true},
		{"non-string token", sessions.Properties{"token": 12}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestFixture(t)

			props, err := f.auth.Restore(context.Background(), tt.props)

			if tt.wantErr {
				require.ErrorIs(t, err, auth.ErrEmptySession)
				require.Nil(t, props)
			} else {
				require.NoError(t, err)
				require.Equal(t, tt.props, props)
			}
			require.Empty(t, f.sender.sent())
			require.Zero(t, f.scheduler.Scheduled())
		})
	}
}

func TestRestore_CustomTokenProperty(t *testing.T) {
	f := setupTestFixture(t, func(c *config.Auth) { c.TokenPropertyName = "access_token" })

	_, err := f.auth.Restore(context.Background(), sessions.Properties{"token": "abc"})
	require.ErrorIs(t, err, auth.ErrEmptySession)

	_, err = f.auth.Restore(context.Background(), sessions.Properties{"access_token": "abc"})
	require.NoError(t, err)
}

func TestRestore_CancelsPreviousSessionRefresh(t *testing.T) {
	f := setupTestFixture(t)
	f.authenticate(t, tokenExpiringIn(t, testTokenTTLSeconds, "user-a"))
	previous := f.scheduler.Live()[0]
	restored := tokenExpiringIn(t, 600, "user-b")

	_, err := f.auth.Restore(context.Background(), sessions.Properties{"token": restored})
	require.NoError(t, err)

	require.Empty(t, f.scheduler.Live())
	require.False(t, f.auth.RefreshPending())
	require.False(t, previous.Fire())
	require.Equal(t, 1, f.scheduler.Scheduled())
	require.Len(t, f.sender.sent(), 1)
	require.Equal(t, restored, f.auth.Session()["token"])
	require.Empty(t, f.updates)
}

func TestAuthenticate_SendsExactlyOneRequest(t *testing.T) {
	f := setupTestFixture(t, func(c *config.Auth) { c.Headers = config.Headers{"X-Client": "cli"} })

	f.authenticate(t, tokenExpiringIn(t, testTokenTTLSeconds, "user-1"))

	sent := f.sender.sent()
	require.Len(t, sent, 1)
	require.Equal(t, testTokenURL, sent[0].URL)
	require.Equal(t, map[string]string{"username": testIdentification, "password": testPassword}, sent[0].Body)
	require.Equal(t, "cli", sent[0].Headers["X-Client"])
}

func TestAuthenticate_CustomIdentificationField(t *testing.T) {
	f := setupTestFixture(t, func(c *config.Auth) { c.IdentificationField = "email" })

	f.authenticate(t, tokenExpiringIn(t, testTokenTTLSeconds, "user-1"))

	require.Equal(t, map[string]string{"email": testIdentification, "password": testPassword}, f.sender.sent()[0].Body)
}

func TestAuthenticate_ReturnsFullResponseAndSchedulesRefresh(t *testing.T) {
	f := setupTestFixture(t)
	tok := tokenExpiringIn(t, testTokenTTLSeconds, "user-1")

	props := f.authenticate(t, tok)

	require.Equal(t, tok, props["token"])
	require.Equal(t, "user-1", props["user_id"])
	require.Equal(t, testNowUnix+testTokenTTLSeconds, props["exp"])

	live := f.scheduler.Live()
	require.Len(t, live, 1)
	require.Equal(t, time.Duration(testTokenTTLSeconds)*time.Second, live[0].Delay)
	require.True(t, f.auth.RefreshPending())
	require.Equal(t, props, f.auth.Session())
}

func TestAuthenticate_ServerExpiryFieldIsKept(t *testing.T) {
	f := setupTestFixture(t)
	tok := tokenExpiringIn(t, testTokenTTLSeconds, "user-1")
	f.sender.respond(map[string]any{"token": tok, "exp": "server-value"})

	props, err := f.auth.Authenticate(context.Background(), auth.Credentials{Identification: "u", Password: "p"})

	require.NoError(t, err)
	require.Equal(t, "server-value", props["exp"])
}

func TestAuthenticate_NonExpiringTokenSchedulesNothing(t *testing.T) {
	f := setupTestFixture(t)

	props := f.authenticate(t, makeToken(t, jwtlib.MapClaims{"sub": "user-1"}))

	require.NotContains(t, props, "exp")
	require.Zero(t, f.scheduler.Scheduled())
	require.False(t, f.auth.RefreshPending())
}

func TestAuthenticate_AutoRefreshDisabled(t *testing.T) {
	off := false
	f := setupTestFixture(t, func(c *config.Auth) { c.RefreshAccessTokens = &off })

	f.authenticate(t, tokenExpiringIn(t, testTokenTTLSeconds, "user-1"))

	require.Zero(t, f.scheduler.Scheduled())
}

func TestAuthenticate_ExpiredTokenStillResolves(t *testing.T) {
	f := setupTestFixture(t)

	props := f.authenticate(t, tokenExpiringIn(t, -10, "user-1"))

	require.NotEmpty(t, props["token"])
	require.Zero(t, f.scheduler.Scheduled())
}

func TestAuthenticate_LeewayBringsRefreshForward(t *testing.T) {
	leeway := 30 * time.Second
	f := setupTestFixture(t, func(c *config.Auth) { c.RefreshLeeway = &leeway })

	f.authenticate(t, tokenExpiringIn(t, 600, "user-1"))

	require.Equal(t, 570*time.Second, f.scheduler.Live()[0].Delay)
}

func TestAuthenticate_FarFutureExpiryNeverRefreshesImmediately(t *testing.T) {
	const year3000 = int64(32503680000)
	f := setupTestFixture(t)

	props := f.authenticate(t, makeToken(t, jwtlib.MapClaims{"sub": "user-1", "exp": year3000}))

	require.Equal(t, year3000, props["exp"])
	live := f.scheduler.Live()
	require.Len(t, live, 1)
	require.Equal(t, refresh.MaxWait, live[0].Delay)

	f.sender.respond(map[string]any{"token": makeToken(t, jwtlib.MapClaims{"sub": "user-1", "exp": year3000})})
	require.True(t, live[0].Fire())

	live = f.scheduler.Live()
	require.Len(t, live, 1)
	require.Equal(t, refresh.MaxWait, live[0].Delay)
	require.Len(t, f.sender.sent(), 2)

	tok, err := f.auth.Token()
	require.NoError(t, err)
	require.Equal(t, time.Unix(year3000, 0), tok.Expiry)
}

func TestAuthenticate_ServerRejected(t *testing.T) {
	f := setupTestFixture(t)
	payload := map[string]any{"non_field_errors": []any{"Unable to log in with provided credentials."}}
	f.sender.fail(&transport.ServerError{StatusCode: 400, Payload: payload, Text: `{"non_field_errors":["Unable to log in with provided credentials."]}`})

	props, err := f.auth.Authenticate(context.Background(), auth.Credentials{Identification: "u", Password: "wrong"})

	require.Nil(t, props)
	require.ErrorIs(t, err, auth.ErrServerRejected)
	var serverErr *transport.ServerError
	require.True(t, errors.As(err, &serverErr))
	require.Equal(t, payload, serverErr.Body())
	require.Zero(t, f.scheduler.Scheduled())
	require.Nil(t, f.auth.Session())
	require.NotContains(t, f.logs.String(), "wrong")
}

func TestAuthenticate_RawTextRejection(t *testing.T) {
	f := setupTestFixture(t)
	f.sender.fail(&transport.ServerError{StatusCode: 503, Text: "Service Unavailable"})

	_, err := f.auth.Authenticate(context.Background(), auth.Credentials{Identification: "u", Password: "p"})

	var serverErr *transport.ServerError
	require.True(t, errors.As(err, &serverErr))
	require.Equal(t, "Service Unavailable", serverErr.Body())
}

func TestAuthenticate_MalformedToken(t *testing.T) {
	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing token", map[string]any{"user_id": "user-1"}},
		{"single segment", map[string]any{"token": "garbage"}},
		{"bad payload", map[string]any{"token": "h.%%%.s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestFixture(t)
			f.sender.respond(tt.body)

			props, err := f.auth.Authenticate(context.Background(), auth.Credentials{Identification: "u", Password: "p"})

			require.Nil(t, props)
			require.ErrorIs(t, err, auth.ErrMalformedToken)
			require.Zero(t, f.scheduler.Scheduled())
		})
	}
}

func TestAuthenticate_ReauthenticateKeepsOneTimer(t *testing.T) {
	f := setupTestFixture(t)

	f.authenticate(t, tokenExpiringIn(t, testTokenTTLSeconds, "user-1"))
	f.authenticate(t, tokenExpiringIn(t, 1800, "user-1"))

	require.Equal(t, 2, f.scheduler.Scheduled())
	live := f.scheduler.Live()
	require.Len(t, live, 1)
	require.Equal(t, 1800*time.Second, live[0].Delay)
}

func TestAuthenticate_Metrics(t *testing.T) {
	f := setupTestFixture(t)
	f.authenticate(t, tokenExpiringIn(t, testTokenTTLSeconds, "user-1"))
	f.sender.fail(&transport.ServerError{StatusCode: 401})
	_, _ = f.auth.Authenticate(context.Background(), auth.Credentials{Identification: "u", Password: "p"})

	count, err := testutil.GatherAndCount(f.registry, "tokenauth_authenticate_total")
	require.NoError(t, err)
	require.Equal(t, 2, count)
	count, err = testutil.GatherAndCount(f.registry, "tokenauth_refresh_scheduled_total")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestInvalidate_AlwaysSucceeds(t *testing.T) {
	f := setupTestFixture(t)

	require.NoError(t, f.auth.Invalidate(context.Background(), nil))
	require.NoError(t, f.auth.Invalidate(context.Background(), sessions.Properties{"token": "abc"}))

	f.authenticate(t, tokenExpiringIn(t, testTokenTTLSeconds, "user-1"))
	require.NoError(t, f.auth.Invalidate(context.Background(), f.auth.Session()))
	require.NoError(t, f.auth.Invalidate(context.Background(), nil))
}

func TestInvalidate_CancelsPendingRefresh(t *testing.T) {
	f := setupTestFixture(t)
	f.authenticate(t, tokenExpiringIn(t, testTokenTTLSeconds, "user-1"))
	timer := f.scheduler.Live()[0]

	require.NoError(t, f.auth.Invalidate(context.Background(), f.auth.Session()))

	require.Empty(t, f.scheduler.Live())
	require.False(t, f.auth.RefreshPending())
	require.False(t, timer.Fire())
	require.Nil(t, f.auth.Session())
	require.Len(t, f.sender.sent(), 1)
}
