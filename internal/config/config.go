package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
)

type Config struct {
	APIURL               string
	IPLookupURL          string
	CheckoutScriptURL    string
	HTTPTimeout          time.Duration
	SecretKey            string
	RedisHost            string
	RedisPort            int
	RedisPassword        string
	RedisDB              int
	RedisLimDB           int
	LogWeb               bool
	TrustedProxies       string
	UseCloudflare        bool
	ForceHTTPS           bool
	CookieSecure         bool
	Port                 string
	MetricsAllowedIPs    string
	RateLimit            int
	RatePeriod           int
	RateLimitLogin       int
	RateLimitSubscribe   int
	StatsRefreshInterval string
	RunWorkerInProcess   bool
	StateDB              string
}

// Load reads the process environment, after merging an optional .env file.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		zlog.Debug().Msg("No .env file found, using environment variables")
	}

	return &Config{
		APIURL:               strings.TrimRight(getEnv("API_URL", "http://localhost:5000/api"), "/"),
		IPLookupURL:          getEnv("IP_LOOKUP_URL", "https://api.ipify.org?format=json"),
		CheckoutScriptURL:    getEnv("CHECKOUT_SCRIPT_URL", "https://checkout.razorpay.com/v1/checkout.js"),
		HTTPTimeout:          getEnvDuration("HTTP_TIMEOUT", 10*time.Second),
		SecretKey:            getEnv("SECRET_KEY", "change-me"),
		RedisHost:            getEnv("REDIS_HOST", "localhost"),
		RedisPort:            getEnvInt("REDIS_PORT", 6379),
		RedisPassword:        getEnv("REDIS_PASSWORD", ""),
		RedisDB:              getEnvInt("REDIS_DB", 0),
		RedisLimDB:           getEnvInt("REDIS_LIM_DB", 1),
		LogWeb:               getEnvBool("LOG_WEB", false),
		TrustedProxies:       getEnv("TRUSTED_PROXIES", "127.0.0.1"),
		UseCloudflare:        getEnvBool("USE_CLOUDFLARE", false),
		ForceHTTPS:           getEnvBool("FORCE_HTTPS", false),
		CookieSecure:         getEnvBool("COOKIE_SECURE", false),
		Port:                 getEnv("PORT", "3000"),
		MetricsAllowedIPs:    getEnv("METRICS_ALLOWED_IPS", "127.0.0.1"),
		RateLimit:            getEnvInt("RATE_LIMIT", 300),
		RatePeriod:           getEnvInt("RATE_PERIOD", 60),
		RateLimitLogin:       getEnvInt("RATE_LIMIT_LOGIN", 10),
		RateLimitSubscribe:   getEnvInt("RATE_LIMIT_SUBSCRIBE", 5),
		StatsRefreshInterval: getEnv("STATS_REFRESH_INTERVAL", "@every 5m"),
		RunWorkerInProcess:   getEnvBool("RUN_WORKER_IN_PROCESS", true),
		StateDB:              getEnv("STATE_DB", ""),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		return value == "true" || value == "1"
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
