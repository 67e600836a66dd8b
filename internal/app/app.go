package app

import (
	"fmt"
	"sync"
	"time"

	"rawsite/internal/config"
	"rawsite/internal/models"
	"rawsite/internal/payment"
	"rawsite/internal/remote"
	"rawsite/internal/repository"
	"rawsite/internal/tasks"
	"rawsite/internal/tracking"

	"github.com/hibiken/asynq"
)

// bridgeIdleTTL is how long an untouched donation flow is kept per visitor.
const bridgeIdleTTL = 30 * time.Minute

type App struct {
	Config     *config.Config
	RedisRepo  *repository.RedisRepository
	Remote     *remote.Client
	Beacon     *tracking.Beacon
	Checkout   *payment.ScriptLoader
	Payments   *payment.Registry
	Donations  *tasks.DonateRefreshHandler
	TaskClient *asynq.Client
	Sweeper    *Sweeper
	RedisOpts  asynq.RedisClientOpt

	closeOnce sync.Once
}

func Bootstrap(cfg *config.Config) (*App, error) {
	redisRepo := repository.NewRedisRepository(cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword, cfg.RedisDB)
	if err := redisRepo.Ping(); err != nil {
		redisRepo.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	redisOpts := asynq.RedisClientOpt{
		Addr:     fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	return BootstrapWith(cfg, redisRepo, redisOpts), nil
}

// BootstrapWith wires the app around an existing Redis connection.
func BootstrapWith(cfg *config.Config, redisRepo *repository.RedisRepository, redisOpts asynq.RedisClientOpt) *App {
	client := remote.NewClient(cfg.APIURL, cfg.HTTPTimeout)
	taskClient := asynq.NewClient(redisOpts)

	// the guard outlives one beacon round trip (lookup plus track) at most
	guard := tracking.NewRedisGuard(redisRepo, 2*cfg.HTTPTimeout+time.Second)
	beacon := tracking.NewBeacon(client, guard)

	loader := payment.NewScriptLoader(payment.HTTPFetch(cfg.CheckoutScriptURL, cfg.HTTPTimeout))
	registry := payment.NewRegistry(func() *payment.Bridge {
		b := payment.NewBridge(client, loader)
		b.OnVerified = func(models.Receipt) {
			tasks.EnqueueDonateRefresh(taskClient, "verified")
		}
		return b
	}, bridgeIdleTTL)

	return &App{
		Config:     cfg,
		RedisRepo:  redisRepo,
		Remote:     client,
		Beacon:     beacon,
		Checkout:   loader,
		Payments:   registry,
		Donations:  tasks.NewDonateRefreshHandler(client, redisRepo),
		TaskClient: taskClient,
		Sweeper:    NewSweeper(registry, 5*time.Minute),
		RedisOpts:  redisOpts,
	}
}

func (a *App) Close() {
	a.closeOnce.Do(func() {
		if a.Sweeper != nil {
			a.Sweeper.Stop()
		}
		if a.Beacon != nil {
			a.Beacon.Wait()
		}
		if a.TaskClient != nil {
			a.TaskClient.Close()
		}
		if a.RedisRepo != nil {
			a.RedisRepo.Close()
		}
	})
}
