package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"rawsite/internal/models"

	"github.com/hibiken/asynq"
	zlog "github.com/rs/zerolog/log"
)

const (
	TypeDonateRefresh = "donate:refresh"

	// SnapshotTTL keeps a stale snapshot around long enough to survive a few
	// failed refreshes.
	SnapshotTTL = time.Hour
)

type DonateRefreshPayload struct {
	Reason string `json:"reason"`
}

func NewDonateRefreshTask(reason string) (*asynq.Task, error) {
	payload, err := json.Marshal(DonateRefreshPayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeDonateRefresh, payload, asynq.MaxRetry(1), asynq.Queue("low"), asynq.Timeout(30*time.Second)), nil
}

// DonationSource reads the public donation endpoints.
type DonationSource interface {
	DonationTotal(ctx context.Context) (models.DonationStats, error)
	RecentSupporters(ctx context.Context) ([]models.Supporter, error)
}

type SnapshotStore interface {
	SaveDonationSnapshot(s models.DonationSnapshot, ttl time.Duration) error
}

type DonateRefreshHandler struct {
	source DonationSource
	store  SnapshotStore
	now    func() time.Time
}

func NewDonateRefreshHandler(source DonationSource, store SnapshotStore) *DonateRefreshHandler {
	return &DonateRefreshHandler{source: source, store: store, now: time.Now}
}

func (h *DonateRefreshHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p DonateRefreshPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}

	snap, err := h.Fetch(ctx)
	if err != nil {
		zlog.Warn().Err(err).Str("reason", p.Reason).Msg("Donation stats refresh failed")
		return err
	}
	if err := h.store.SaveDonationSnapshot(snap, SnapshotTTL); err != nil {
		return fmt.Errorf("save donation snapshot: %w", err)
	}
	zlog.Debug().Str("reason", p.Reason).Int("count", snap.Stats.Count).Int("supporters", len(snap.Supporters)).Msg("Donation stats refreshed")
	return nil
}

// Fetch reads totals and recent supporters in one go.
func (h *DonateRefreshHandler) Fetch(ctx context.Context) (models.DonationSnapshot, error) {
	stats, err := h.source.DonationTotal(ctx)
	if err != nil {
		return models.DonationSnapshot{}, fmt.Errorf("donation total: %w", err)
	}
	supporters, err := h.source.RecentSupporters(ctx)
	if err != nil {
		return models.DonationSnapshot{}, fmt.Errorf("recent supporters: %w", err)
	}
	return models.DonationSnapshot{Stats: stats, Supporters: supporters, FetchedAt: h.now().UTC()}, nil
}

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// EnqueueDonateRefresh schedules a refresh and only logs on failure.
func EnqueueDonateRefresh(enq Enqueuer, reason string) {
	if enq == nil {
		return
	}
	task, err := NewDonateRefreshTask(reason)
	if err != nil {
		zlog.Error().Err(err).Msg("Failed to build donate refresh task")
		return
	}
	if _, err := enq.Enqueue(task); err != nil {
		zlog.Warn().Err(err).Str("reason", reason).Msg("Failed to enqueue donate refresh")
	}
}
