package refresh

import (
	"math"
	"time"
)

// Request is one scheduling input. ExpiresIn is in seconds, ExpiresAt in
// Unix milliseconds; either may be nil.
type Request struct {
	ExpiresIn *float64
	ExpiresAt *int64
	Token     string
}

// Decision is the outcome of applying a Policy to a Request.
type Decision struct {
	Arm       bool
	Wait      time.Duration
	ExpiresAt int64
	ExpiresIn float64
}

// MaxWait is the longest a refresh timer is armed for. Expiries further out
// than this, such as a year-3000 exp used to mean "never", wait MaxWait.
const MaxWait = time.Duration(math.MaxInt64)

var maxWaitSeconds = float64(math.MaxInt64 / int64(time.Second))

// Policy decides whether and when a refresh fires.
type Policy struct {
	AutoRefresh bool
	// Leeway is subtracted from the token lifetime so the refresh lands
	// before expiry rather than racing it. Zero fires exactly at expiry.
	Leeway time.Duration
}

// Decide computes the absolute expiry and the wait before refreshing.
func (p Policy) Decide(now time.Time, req Request) Decision {
	nowMillis := now.UnixMilli()

	var d Decision
	switch {
	case req.ExpiresAt != nil:
		d.ExpiresAt = *req.ExpiresAt
	case req.ExpiresIn != nil:
		d.ExpiresAt = offsetMillis(nowMillis, *req.ExpiresIn)
	default:
		return d
	}

	if req.ExpiresIn != nil {
		d.ExpiresIn = *req.ExpiresIn
	} else {
		d.ExpiresIn = float64(d.ExpiresAt-nowMillis) / 1000
	}

	if !p.AutoRefresh || req.Token == "" || d.ExpiresAt <= nowMillis {
		return d
	}

	d.Arm = true
	secs := math.Round(d.ExpiresIn)
	if secs >= maxWaitSeconds {
		d.Wait = MaxWait
		return d
	}
	d.Wait = time.Duration(secs)*time.Second - p.Leeway
	if d.Wait < 0 {
		d.Wait = 0
	}
	return d
}

// offsetMillis returns nowMillis plus seconds, saturating instead of
// wrapping around int64.
func offsetMillis(nowMillis int64, seconds float64) int64 {
	ms := math.Round(seconds * 1000)
	switch {
	case math.IsNaN(ms):
		return nowMillis
	case ms >= float64(math.MaxInt64-nowMillis):
		return math.MaxInt64
	case ms <= float64(math.MinInt64/2):
		return math.MinInt64 / 2
	}
	return nowMillis + int64(ms)
}
