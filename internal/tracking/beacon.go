package tracking

import (
	"context"
	"sync"

	"rawsite/internal/metrics"
	"rawsite/internal/models"

	zlog "github.com/rs/zerolog/log"
)

// DirectReferrer stands in for an empty referrer.
const DirectReferrer = "direct"

// Outcome of a single beacon attempt. Values double as metric labels.
type Outcome string

const (
	OutcomeSent    Outcome = "sent"
	OutcomeDropped Outcome = "dropped"
	OutcomeFailed  Outcome = "failed"
)

// TokenStore persists the visitor token issued by the backend. An empty
// string means no token has been issued yet.
type TokenStore interface {
	VisitorToken() (string, error)
	SetVisitorToken(token string) error
}

// Tracker is the backend call the beacon reports to.
type Tracker interface {
	Track(ctx context.Context, req models.TrackRequest) (models.TrackResponse, error)
}

// Visit describes one navigation plus where its identity comes from.
type Visit struct {
	// Key scopes the in-flight guard, typically one browser.
	Key       string
	Page      string
	Referrer  string
	UserAgent string
	Resolver  IPResolver
	Tokens    TokenStore
}

type Beacon struct {
	tracker Tracker
	guard   Guard
	wg      sync.WaitGroup
}

func NewBeacon(tracker Tracker, guard Guard) *Beacon {
	return &Beacon{tracker: tracker, guard: guard}
}

// Track performs one beacon attempt and reports how it went. Failures are
// logged, never returned.
func (b *Beacon) Track(ctx context.Context, v Visit) Outcome {
	outcome := b.track(ctx, v)
	metrics.MetricBeaconTotal.WithLabelValues(string(outcome)).Inc()
	return outcome
}

func (b *Beacon) track(ctx context.Context, v Visit) Outcome {
	if !b.guard.TryAcquire(v.Key) {
		zlog.Debug().Str("key", v.Key).Str("page", v.Page).Msg("Beacon already in flight, dropping")
		return OutcomeDropped
	}
	defer b.guard.Release(v.Key)

	info := Classify(v.UserAgent)
	referrer := v.Referrer
	if referrer == "" {
		referrer = DirectReferrer
	}

	ip := UnknownIP
	if v.Resolver != nil {
		ip = v.Resolver.Resolve(ctx)
	}

	req := models.TrackRequest{
		Page:     v.Page,
		Referrer: referrer,
		Device:   info.Device,
		Browser:  info.Browser,
		OS:       info.OS,
		ClientIP: ip,
	}

	if v.Tokens != nil {
		tok, err := v.Tokens.VisitorToken()
		if err != nil {
			zlog.Debug().Err(err).Msg("Failed to read visitor token")
		} else if tok != "" {
			req.VisitorToken = &tok
		}
	}

	resp, err := b.tracker.Track(ctx, req)
	if err != nil {
		zlog.Debug().Err(err).Str("page", v.Page).Msg("Beacon failed")
		return OutcomeFailed
	}

	if resp.Token != "" && v.Tokens != nil {
		if err := v.Tokens.SetVisitorToken(resp.Token); err != nil {
			zlog.Debug().Err(err).Msg("Failed to store visitor token")
		}
	}
	return OutcomeSent
}

// Fire runs Track in the background and detaches it from ctx cancellation so
// the caller's request can finish first.
func (b *Beacon) Fire(ctx context.Context, v Visit) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.Track(context.WithoutCancel(ctx), v)
	}()
}

// Wait blocks until every fired beacon has settled.
func (b *Beacon) Wait() {
	b.wg.Wait()
}
