package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"rawsite/internal/metrics"
	"rawsite/internal/models"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned by GetCache when the key does not exist.
var ErrCacheMiss = errors.New("cache miss")

const donationSnapshotKey = "donate:snapshot"

type RedisRepository struct {
	client *redis.Client
	ctx    context.Context
}

func (r *RedisRepository) trackDuration(op string, start time.Time) {
	metrics.MetricRedisDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func NewRedisRepository(host string, port int, password string, db int) *RedisRepository {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})
	return NewRedisRepositoryFromClient(rdb)
}

func NewRedisRepositoryFromClient(client *redis.Client) *RedisRepository {
	return &RedisRepository{
		client: client,
		ctx:    context.Background(),
	}
}

func (r *RedisRepository) GetClient() *redis.Client {
	return r.client
}

func (r *RedisRepository) Ping() error {
	defer r.trackDuration("Ping", time.Now())
	return r.client.Ping(r.ctx).Err()
}

func (r *RedisRepository) Close() error {
	return r.client.Close()
}

func (r *RedisRepository) SetCache(key string, val interface{}, expiration time.Duration) error {
	defer r.trackDuration("SetCache", time.Now())
	data, err := json.Marshal(val)
	if err != nil {
		return err
	}
	return r.client.Set(r.ctx, key, data, expiration).Err()
}

func (r *RedisRepository) GetCache(key string, target interface{}) error {
	defer r.trackDuration("GetCache", time.Now())
	val, err := r.client.Get(r.ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(val), target)
}

// AcquireLock sets key only if absent. The expiration bounds a holder that never releases.
func (r *RedisRepository) AcquireLock(key string, expiration time.Duration) (bool, error) {
	defer r.trackDuration("AcquireLock", time.Now())
	return r.client.SetNX(r.ctx, key, "lock", expiration).Result()
}

func (r *RedisRepository) ReleaseLock(key string) error {
	defer r.trackDuration("ReleaseLock", time.Now())
	return r.client.Del(r.ctx, key).Err()
}

func (r *RedisRepository) SaveDonationSnapshot(s models.DonationSnapshot, ttl time.Duration) error {
	return r.SetCache(donationSnapshotKey, s, ttl)
}

// LoadDonationSnapshot returns ErrCacheMiss until the refresh task has run once.
func (r *RedisRepository) LoadDonationSnapshot() (models.DonationSnapshot, error) {
	var s models.DonationSnapshot
	err := r.GetCache(donationSnapshotKey, &s)
	return s, err
}
