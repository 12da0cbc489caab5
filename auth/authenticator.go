package auth

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-token-session/internal/config"
	apperrors "github.com/jrsteele09/go-token-session/internal/errors"
	"github.com/jrsteele09/go-token-session/metrics"
	"github.com/jrsteele09/go-token-session/sessions"
	"github.com/jrsteele09/go-token-session/token"
	"github.com/jrsteele09/go-token-session/token/refresh"
	"github.com/jrsteele09/go-token-session/transport"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Authenticator exchanges credentials for a bearer token and keeps that token
// fresh for the life of the session. A hosting session manager drives it
// through Restore, Authenticate and Invalidate.
type Authenticator struct {
	config          config.AuthConfig
	sender          transport.Sender
	decoder         *token.Decoder
	refresher       *refresh.Manager
	scheduler       refresh.Scheduler
	metrics         *metrics.Collector
	logger          zerolog.Logger
	nowFunc         func() time.Time
	onUpdate        func(sessions.Properties)
	tokenEndpoint   string
	refreshEndpoint string

	mu        sync.Mutex
	current   sessions.Properties
	expiresAt int64 // unix millis, 0 when the token does not expire
}

type Option func(*Authenticator)

// WithLogger replaces the global zerolog logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(a *Authenticator) {
		a.logger = logger
	}
}

// WithScheduler sets how refresh timers are created. Pass a
// refresh.InertScheduler to record refreshes without waiting on the clock.
func WithScheduler(s refresh.Scheduler) Option {
	return func(a *Authenticator) {
		a.scheduler = s
	}
}

func WithNowFunc(now func() time.Time) Option {
	return func(a *Authenticator) {
		a.nowFunc = now
	}
}

func WithMetrics(c *metrics.Collector) Option {
	return func(a *Authenticator) {
		a.metrics = c
	}
}

// WithSessionDataUpdated registers a callback run after every successful
// refresh with the updated session properties, so the host can persist them.
func WithSessionDataUpdated(fn func(sessions.Properties)) Option {
	return func(a *Authenticator) {
		a.onUpdate = fn
	}
}

// New creates an Authenticator. cfg is read once here.
func New(cfg config.AuthConfig, sender transport.Sender, options ...Option) *Authenticator {
	a := &Authenticator{
		config: cfg,
		sender: sender,
		logger: log.Logger,
	}
	for _, opt := range options {
		opt(a)
	}
	if a.nowFunc == nil {
		a.nowFunc = time.Now
	}

	a.logger = a.logger.With().
		Str("component", "authenticator").
		Str("session_id", uuid.New().String()).
		Logger()
	a.decoder = token.NewDecoder(cfg.GetTokenExpireFieldName())
	a.tokenEndpoint = resolveEndpoint(cfg.GetServerURL(), cfg.GetServerTokenEndpoint())
	a.refreshEndpoint = resolveEndpoint(cfg.GetServerURL(), cfg.GetServerTokenRefreshEndpoint())

	refreshOptions := []refresh.ManagerOption{refresh.WithNowFunc(a.nowFunc)}
	if a.scheduler != nil {
		refreshOptions = append(refreshOptions, refresh.WithScheduler(a.scheduler))
	}
	a.refresher = refresh.NewManager(refresh.Policy{
		AutoRefresh: cfg.GetRefreshAccessTokens(),
		Leeway:      cfg.GetRefreshLeeway(),
	}, refreshOptions...)

	return a
}

// Restore accepts previously persisted properties when they carry a token.
// It never touches the network and never arms a refresh; use ResumeRefresh
// for that. A refresh pending for the session being replaced is cancelled.
func (a *Authenticator) Restore(_ context.Context, props sessions.Properties) (sessions.Properties, error) {
	if !props.HasToken(a.config.GetTokenPropertyName()) {
		return nil, ErrEmptySession
	}
	a.refresher.Cancel()
	a.setCurrent(props)
	a.logger.Debug().Msg("Session restored")
	return props, nil
}

// Authenticate sends credentials to the token endpoint. On success it arms
// the refresh timer and returns the full response as the session properties.
func (a *Authenticator) Authenticate(ctx context.Context, creds Credentials) (sessions.Properties, error) {
	props, err := a.authenticate(ctx, creds)
	a.metrics.Authenticated(err)
	if err != nil {
		a.logger.Err(err).Str("identification", creds.Identification).Msg("Authentication failed")
		return nil, err
	}
	return props, nil
}

func (a *Authenticator) authenticate(ctx context.Context, creds Credentials) (sessions.Properties, error) {
	resp, err := a.send(ctx, a.tokenEndpoint, creds.requestBody(a.config.GetIdentificationField()))
	if err != nil {
		return nil, apperrors.Mark(ErrServerRejected, err)
	}

	props := sessions.Properties(resp).Clone()
	tok := props.Token(a.config.GetTokenPropertyName())
	exp, hasExp, err := a.expiry(tok)
	if err != nil {
		return nil, err
	}

	req := refresh.Request{Token: tok}
	if hasExp {
		expiresAt := unixMillis(exp)
		expiresIn := a.secondsUntil(exp)
		req.ExpiresAt = &expiresAt
		req.ExpiresIn = &expiresIn
		if _, present := props[a.decoder.ExpireField()]; !present {
			props[a.decoder.ExpireField()] = exp
		}
	}

	a.setCurrent(props)
	d := a.refresher.Arm(req, a.fire)
	a.logScheduled(d, "Authenticated")
	return props, nil
}

// Invalidate always succeeds. It cancels any pending refresh and forgets the
// current token; an in-flight refresh is left to finish but cannot re-arm.
func (a *Authenticator) Invalidate(_ context.Context, _ sessions.Properties) error {
	cancelled := a.refresher.Cancel()

	a.mu.Lock()
	a.current = nil
	a.expiresAt = 0
	a.mu.Unlock()

	a.metrics.Invalidated()
	a.logger.Info().Bool("refresh_cancelled", cancelled).Msg("Session invalidated")
	return nil
}

// Session returns a copy of the properties currently held, or nil.
func (a *Authenticator) Session() sessions.Properties {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == nil {
		return nil
	}
	return a.current.Clone()
}

// RefreshPending reports whether a refresh timer is armed.
func (a *Authenticator) RefreshPending() bool {
	return a.refresher.Pending()
}

// expiry decodes tok and returns its expiry claim in Unix seconds.
func (a *Authenticator) expiry(tok string) (exp int64, ok bool, err error) {
	claims, err := a.decoder.Decode(tok)
	if err != nil {
		return 0, false, err
	}
	return a.decoder.ExpiresAt(claims)
}

// unixMillis converts an exp claim to Unix milliseconds, saturating for
// claims too far out to represent.
func unixMillis(exp int64) int64 {
	switch {
	case exp > math.MaxInt64/1000:
		return math.MaxInt64
	case exp < math.MinInt64/1000:
		return math.MinInt64
	}
	return exp * 1000
}

func (a *Authenticator) secondsUntil(exp int64) float64 {
	return float64(exp) - float64(a.nowFunc().UnixMilli())/1000
}

func (a *Authenticator) send(ctx context.Context, endpoint string, body any) (map[string]any, error) {
	if err := CheckTransportSecurity(endpoint); err != nil {
		a.logger.Warn().Err(err).Msg("Token request sent over an insecure transport")
	}

	if timeout := a.config.GetRequestTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	resp, err := a.sender.Send(ctx, endpoint, body, a.config.GetHeaders())
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", endpoint, err)
	}
	return resp, nil
}

func (a *Authenticator) setCurrent(props sessions.Properties) {
	var expiresAt int64
	if exp, ok := props.Int64(a.decoder.ExpireField()); ok {
		expiresAt = unixMillis(exp)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.current = props.Clone()
	a.expiresAt = expiresAt
}

func (a *Authenticator) logScheduled(d refresh.Decision, msg string) {
	event := a.logger.Info()
	if d.Arm {
		a.metrics.RefreshScheduled()
		event = event.Dur("refresh_in", d.Wait).Time("expires_at", time.UnixMilli(d.ExpiresAt))
	}
	event.Bool("refresh_scheduled", d.Arm).Msg(msg)
}
