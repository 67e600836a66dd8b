package main

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"rawsite/internal/api"
	"rawsite/internal/app"
	"rawsite/internal/config"
	"rawsite/internal/security"
	"rawsite/internal/tasks"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	rdb "github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

type CensorWriter struct {
	io.Writer
	re *regexp.Regexp
}

func (w *CensorWriter) Write(p []byte) (n int, err error) {
	// masks "password":"...", token=..., etc. in both JSON and console output
	censored := w.re.ReplaceAll(p, []byte(`${1}${2}[CENSORED]`))
	return w.Writer.Write(censored)
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	censorRE := regexp.MustCompile(`(?i)(password|secret|token)(["':\s]+)([^"'\s,{}]+)`)
	cw := &CensorWriter{
		Writer: zerolog.ConsoleWriter{Out: os.Stderr},
		re:     censorRE,
	}
	zlog.Logger = zerolog.New(cw).With().Timestamp().Logger()

	cfg := config.Load()

	if !cfg.LogWeb {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	keys, err := security.DeriveSessionKeys(cfg.SecretKey)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to derive session keys")
	}
	zlog.Info().Str("api", cfg.APIURL).Msg("Starting RAW site server")

	if cfg.SecretKey == "change-me" {
		zlog.Warn().Msg("SECRET_KEY is using default. Set a long random string via environment variable.")
	}

	// 1. Bootstrap shared state
	a, err := app.Bootstrap(cfg)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to bootstrap app")
	}
	defer a.Close()

	a.Sweeper.Start()

	// 2. Task workers (optional)
	var asynqServer *asynq.Server
	var asynqScheduler *asynq.Scheduler

	if cfg.RunWorkerInProcess {
		zlog.Info().Msg("Starting background worker in-process")

		asynqServer = asynq.NewServer(
			a.RedisOpts,
			asynq.Config{
				Concurrency: 4,
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

		asynqScheduler = asynq.NewScheduler(a.RedisOpts, &asynq.SchedulerOpts{})
		refreshTask, _ := tasks.NewDonateRefreshTask("scheduled")
		if _, err := asynqScheduler.Register(cfg.StatsRefreshInterval, refreshTask); err != nil {
			zlog.Error().Err(err).Str("schedule", cfg.StatsRefreshInterval).Msg("Failed to schedule donation stats refresh")
		}

		go func() {
			if err := asynqScheduler.Run(); err != nil {
				zlog.Fatal().Err(err).Msg("Failed to run asynq scheduler")
			}
		}()

		// warm the widget cache instead of waiting for the first tick
		tasks.EnqueueDonateRefresh(a.TaskClient, "startup")
	} else {
		zlog.Info().Msg("Background worker disabled (external worker expected)")
	}

	// 3. Dashboard refresh hub
	hub := api.NewHub()
	go hub.Run()
	defer hub.Stop()

	// 4. Gin
	if !cfg.LogWeb {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	trustedProxies := []string{"127.0.0.1", "172.16.0.0/12", "10.0.0.0/8", "192.168.0.0/16"}
	if cfg.TrustedProxies != "" {
		for _, p := range strings.Split(cfg.TrustedProxies, ",") {
			trustedProxies = append(trustedProxies, strings.TrimSpace(p))
		}
	}
	if err := r.SetTrustedProxies(trustedProxies); err != nil {
		zlog.Error().Err(err).Msg("Failed to set trusted proxies")
	}

	if cfg.UseCloudflare {
		r.ForwardedByClientIP = true
		r.Use(func(c *gin.Context) {
			if cfIP := c.GetHeader("CF-Connecting-IP"); cfIP != "" {
				c.Request.Header.Set("X-Forwarded-For", cfIP)
			}
			c.Next()
		})
	}

	if cfg.ForceHTTPS {
		r.Use(func(c *gin.Context) {
			if c.Request.Header.Get("X-Forwarded-Proto") != "https" && c.Request.TLS == nil {
				// 308 keeps the method for form posts
				target := "https://" + c.Request.Host + c.Request.RequestURI
				c.Redirect(http.StatusPermanentRedirect, target)
				c.Abort()
				return
			}
			c.Next()
		})
	}

	// Sessions hold the visitor id and the admin bearer token
	store, err := redis.NewStore(10, "tcp", fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort), "", cfg.RedisPassword, keys.Auth, keys.Block)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to create session store")
	}
	cookieSecure := cfg.CookieSecure || cfg.ForceHTTPS || cfg.UseCloudflare
	store.Options(sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   cookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   86400 * 7,
	})
	r.Use(sessions.Sessions("rawsite_session", store))

	createLimiter := func(limit int, period int, prefix string) gin.HandlerFunc {
		rate := limiter.Rate{
			Period: time.Duration(period) * time.Second,
			Limit:  int64(limit),
		}
		limiterClient := rdb.NewClient(&rdb.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort),
			Password: cfg.RedisPassword,
			DB:       cfg.RedisLimDB,
		})
		limitStore, err := sredis.NewStoreWithOptions(limiterClient, limiter.StoreOptions{
			Prefix: prefix,
		})
		if err != nil {
			zlog.Fatal().Err(err).Msgf("Failed to create limiter store: %s", prefix)
		}
		return mgin.NewMiddleware(limiter.New(limitStore, rate))
	}

	mainLimiter := createLimiter(cfg.RateLimit, cfg.RatePeriod, "limiter_main")
	loginLimiter := createLimiter(cfg.RateLimitLogin, cfg.RatePeriod, "limiter_login")
	subscribeLimiter := createLimiter(cfg.RateLimitSubscribe, cfg.RatePeriod, "limiter_subscribe")

	// Templates: prefer the filesystem for live edits, fall back to embed.FS
	var templ *template.Template
	if _, err := os.Stat("cmd/server/templates"); err == nil {
		templ = template.Must(template.New("").Funcs(api.TemplateFuncs()).ParseGlob("cmd/server/templates/*.html"))
		zlog.Info().Msg("Templates loaded from filesystem")
	} else {
		templ = template.Must(template.New("").Funcs(api.TemplateFuncs()).ParseFS(templateFS, "templates/*.html"))
		zlog.Info().Msg("Templates loaded from embed.FS")
	}
	r.SetHTMLTemplate(templ)

	r.Use(api.SecurityHeadersMiddleware(cfg.UseCloudflare || cfg.ForceHTTPS))
	r.Use(api.CSRFMiddleware())

	serveStatic := func(urlPath, diskPath, embedPath string) {
		if _, err := os.Stat(diskPath); err == nil {
			r.Static(urlPath, diskPath)
			zlog.Info().Str("url", urlPath).Str("disk", diskPath).Msg("Serving static files from disk")
		} else {
			sub, _ := fs.Sub(staticFS, embedPath)
			r.StaticFS(urlPath, http.FS(sub))
			zlog.Info().Str("url", urlPath).Str("embed", embedPath).Msg("Serving static files from embed.FS")
		}
	}
	serveStatic("/static", "cmd/server/static", "static")

	r.GET("/favicon.ico", func(c *gin.Context) {
		if data, err := os.ReadFile("cmd/server/static/download.png"); err == nil {
			c.Data(http.StatusOK, "image/png", data)
			return
		}
		file, err := staticFS.ReadFile("static/download.png")
		if err != nil {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		c.Data(http.StatusOK, "image/png", file)
	})

	// 5. Handlers
	handler := api.NewAPIHandler(cfg, a.Remote, a.RedisRepo, a.Beacon, a.Donations, a.Payments, a.Checkout, hub)
	handler.SetLimiters(mainLimiter, loginLimiter, subscribeLimiter)
	handler.RegisterRoutes(r)

	// 6. Serve with graceful shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		zlog.Info().Str("port", cfg.Port).Msg("Listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("Shutting down server...")

	if asynqScheduler != nil {
		asynqScheduler.Shutdown()
	}
	if asynqServer != nil {
		asynqServer.Shutdown()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zlog.Error().Err(err).Msg("Server forced to shutdown")
	}

	zlog.Info().Msg("Server exiting")
}
