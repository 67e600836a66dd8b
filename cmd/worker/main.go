package main

import (
	"os"
	"os/signal"
	"syscall"

	"rawsite/internal/app"
	"rawsite/internal/config"
	"rawsite/internal/tasks"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// The standalone worker keeps the donation widget cache warm when the web
// server runs with RUN_WORKER_IN_PROCESS=false.
func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zlog.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg := config.Load()
	if cfg.LogWeb {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	zlog.Info().Msg("Starting RAW site standalone worker")

	a, err := app.Bootstrap(cfg)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to bootstrap app")
	}
	defer a.Close()

	asynqServer := asynq.NewServer(
		a.RedisOpts,
		asynq.Config{
			Concurrency: 8,
			Queues: map[string]int{
				"default": 5,
				"low":     2,
			},
		},
	)

	asynqMux := asynq.NewServeMux()
	asynqMux.Handle(tasks.TypeDonateRefresh, a.Donations)

	go func() {
		if err := asynqServer.Run(asynqMux); err != nil {
			zlog.Fatal().Err(err).Msg("Failed to run asynq server")
		}
	}()

	scheduler := asynq.NewScheduler(a.RedisOpts, &asynq.SchedulerOpts{})
	refreshTask, _ := tasks.NewDonateRefreshTask("scheduled")
	if _, err := scheduler.Register(cfg.StatsRefreshInterval, refreshTask); err != nil {
		zlog.Fatal().Err(err).Str("schedule", cfg.StatsRefreshInterval).Msg("Failed to schedule donation stats refresh")
	}
	go func() {
		if err := scheduler.Run(); err != nil {
			zlog.Fatal().Err(err).Msg("Failed to run asynq scheduler")
		}
	}()

	zlog.Info().Str("interval", cfg.StatsRefreshInterval).Msg("Worker running. Press Ctrl+C to exit.")
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info().Msg("Shutting down worker...")
	scheduler.Shutdown()
	asynqServer.Shutdown()
	zlog.Info().Msg("Worker exited")
}
