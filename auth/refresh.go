package auth

import (
	"context"

	apperrors "github.com/jrsteele09/go-token-session/internal/errors"
	"github.com/jrsteele09/go-token-session/sessions"
	"github.com/jrsteele09/go-token-session/token/refresh"
)

// ResumeRefresh arms the refresh timer for restored properties. Restore
// itself never does this. It reports whether a refresh was scheduled.
func (a *Authenticator) ResumeRefresh(props sessions.Properties) (bool, error) {
	tok := props.Token(a.config.GetTokenPropertyName())
	if tok == "" {
		return false, ErrEmptySession
	}
	exp, hasExp, err := a.expiry(tok)
	if err != nil {
		return false, err
	}

	a.setCurrent(props)
	req := refresh.Request{Token: tok}
	if hasExp {
		expiresAt := unixMillis(exp)
		expiresIn := a.secondsUntil(exp)
		req.ExpiresAt = &expiresAt
		req.ExpiresIn = &expiresIn
	}
	d := a.refresher.Arm(req, a.fire)
	a.logScheduled(d, "Refresh resumed")
	return d.Arm, nil
}

// RefreshAccessToken exchanges tok for a new token at the refresh endpoint
// and re-arms the timer from the new expiry. expiresIn (seconds) and tok are
// reused when the response omits a token or an expiry claim. It returns the
// raw refresh response.
//
// A failed refresh is logged at warning level and is not retried: the
// session goes stale at its next expiry unless the host re-authenticates.
func (a *Authenticator) RefreshAccessToken(ctx context.Context, expiresIn float64, tok string) (sessions.Properties, error) {
	return a.refreshAccessToken(ctx, a.refresher.Generation(), expiresIn, tok)
}

// fire is the timer callback.
func (a *Authenticator) fire(gen uint64, d refresh.Decision, req refresh.Request) {
	_, _ = a.refreshAccessToken(context.Background(), gen, d.ExpiresIn, req.Token)
}

func (a *Authenticator) refreshAccessToken(ctx context.Context, gen uint64, expiresIn float64, tok string) (sessions.Properties, error) {
	resp, err := a.refreshCall(ctx, gen, expiresIn, tok)
	a.metrics.Refreshed(err)
	if err != nil {
		a.logger.Warn().Err(err).Msg("Token refresh failed, session will not be renewed")
		return nil, err
	}
	return resp, nil
}

func (a *Authenticator) refreshCall(ctx context.Context, gen uint64, expiresIn float64, tok string) (sessions.Properties, error) {
	field := a.config.GetTokenPropertyName()
	resp, err := a.send(ctx, a.refreshEndpoint, map[string]string{field: tok})
	if err != nil {
		return nil, apperrors.Mark(ErrRefreshFailed, err)
	}

	raw := sessions.Properties(resp)
	newToken := raw.Token(field)
	if newToken == "" {
		newToken = tok
	}

	exp, hasExp, err := a.expiry(newToken)
	if err != nil {
		return nil, apperrors.Mark(ErrRefreshFailed, err)
	}
	newExpiresIn := expiresIn
	if hasExp {
		newExpiresIn = a.secondsUntil(exp)
	}

	var updated sessions.Properties
	d, current := a.refresher.ArmIfCurrent(gen, refresh.Request{ExpiresIn: &newExpiresIn, Token: newToken}, a.fire, func(refresh.Decision) {
		updated = a.Session().Merge(resp)
		updated[field] = newToken
		if hasExp {
			updated[a.decoder.ExpireField()] = exp
		}
		a.setCurrent(updated)
	})
	if !current {
		a.logger.Debug().Msg("Session changed while refreshing, discarding refreshed token")
		return raw, nil
	}

	a.logScheduled(d, "Token refreshed")

	if a.onUpdate != nil {
		a.onUpdate(updated.Clone())
	}
	return raw, nil
}
