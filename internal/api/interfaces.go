package api

import (
	"context"
	"time"

	"rawsite/internal/console"
	"rawsite/internal/models"
)

// SiteAPI is the remote backend as seen by the site handlers.
type SiteAPI interface {
	console.API
	Subscribe(ctx context.Context, sub models.Subscription) (string, error)
}

// RedisRepositoryProvider defines the Redis operations the handlers need
type RedisRepositoryProvider interface {
	Ping() error
	GetCache(key string, target interface{}) error
	SetCache(key string, val interface{}, expiration time.Duration) error
	LoadDonationSnapshot() (models.DonationSnapshot, error)
	SaveDonationSnapshot(s models.DonationSnapshot, ttl time.Duration) error
}

// DonationFetcher reads live donation stats when nothing is cached yet.
type DonationFetcher interface {
	Fetch(ctx context.Context) (models.DonationSnapshot, error)
}
