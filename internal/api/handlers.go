package api

import (
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"rawsite/internal/config"
	"rawsite/internal/metrics"
	"rawsite/internal/payment"
	"rawsite/internal/tracking"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type APIHandler struct {
	cfg       *config.Config
	site      SiteAPI
	redisRepo RedisRepositoryProvider
	beacon    *tracking.Beacon
	donations DonationFetcher
	payments  *payment.Registry
	checkout  payment.Loader
	hub       *Hub

	mainLimiter      gin.HandlerFunc
	loginLimiter     gin.HandlerFunc
	subscribeLimiter gin.HandlerFunc

	now func() time.Time
}

func NewAPIHandler(cfg *config.Config, site SiteAPI, r RedisRepositoryProvider, beacon *tracking.Beacon, donations DonationFetcher, payments *payment.Registry, checkout payment.Loader, hub *Hub) *APIHandler {
	pass := func(c *gin.Context) { c.Next() }
	return &APIHandler{
		cfg:              cfg,
		site:             site,
		redisRepo:        r,
		beacon:           beacon,
		donations:        donations,
		payments:         payments,
		checkout:         checkout,
		hub:              hub,
		mainLimiter:      pass,
		loginLimiter:     pass,
		subscribeLimiter: pass,
		now:              time.Now,
	}
}

func (h *APIHandler) SetLimiters(main, login, subscribe gin.HandlerFunc) {
	h.mainLimiter = main
	h.loginLimiter = login
	h.subscribeLimiter = subscribe
}

// TemplateFuncs is shared by the server and the handler tests.
func TemplateFuncs() template.FuncMap {
	return template.FuncMap{
		"lower":    strings.ToLower,
		"replace":  strings.ReplaceAll,
		"split":    strings.Split,
		"contains": strings.Contains,
		"safeHTML": func(s string) template.HTML { return template.HTML(s) },
		"safeURL":  func(s string) template.URL { return template.URL(s) },
		"add":      func(a, b int) int { return a + b },
		"sub":      func(a, b int) int { return a - b },
	}
}

func (h *APIHandler) renderHTML(c *gin.Context, code int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["nonce"] = c.GetString("nonce")
	c.HTML(code, name, data)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:    1024,
	WriteBufferSize:   1024,
	EnableCompression: true,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && u.Host == r.Host
	},
}

// WS streams refresh hints to an authenticated dashboard.
func (h *APIHandler) WS(c *gin.Context) {
	if h.hub == nil {
		c.AbortWithStatus(http.StatusServiceUnavailable)
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	select {
	case h.hub.register <- conn:
	case <-h.hub.stop:
		conn.Close()
		return
	}

	pingTicker := time.NewTicker(30 * time.Second)
	defer func() {
		pingTicker.Stop()
		select {
		case h.hub.unregister <- conn:
		case <-h.hub.stop:
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(70 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(70 * time.Second))
		return nil
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()

	for {
		select {
		case <-pingTicker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
				return
			}
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}

func (h *APIHandler) PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}
		c.Next()
		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		metrics.MetricHttpDuration.WithLabelValues(path, c.Request.Method, status).Observe(duration)
	}
}

func (h *APIHandler) RegisterRoutes(r *gin.Engine) {
	r.Use(h.PrometheusMiddleware())

	public := r.Group("/")
	public.Use(h.VisitorMiddleware())
	{
		pages := public.Group("/")
		pages.Use(h.TrackPageMiddleware())
		{
			pages.GET("/", h.Home)
			pages.GET("/about", h.Page("about"))
			pages.GET("/solutions", h.Page("solutions"))
			pages.GET("/docs", h.Page("docs"))
		}

		public.POST("/subscribe", h.subscribeLimiter, h.Subscribe)

		donate := public.Group("/donate")
		donate.Use(h.mainLimiter)
		{
			donate.GET("/state", h.DonateState)
			donate.POST("/order", h.DonateOrder)
			donate.POST("/settle", h.DonateSettle)
			donate.POST("/reset", h.DonateReset)
		}
	}
	r.GET("/vendor/checkout.js", h.CheckoutScript)

	login := r.Group("/login")
	login.Use(h.loginLimiter)
	{
		login.GET("", h.ShowLogin)
		login.POST("", h.Login)
	}
	r.GET("/logout", h.Logout)

	admin := r.Group("/admin")
	admin.Use(h.AuthMiddleware(), h.mainLimiter)
	{
		admin.GET("", h.Dashboard)
		admin.GET("/ws", h.WS)
		admin.POST("/emails/:id/status", h.UpdateEmailStatus)
		admin.POST("/emails/:id/delete", h.DeleteEmail)
		admin.POST("/visitors/:id/delete", h.DeleteVisitor)
		admin.POST("/visitors/block", h.BlockIP)
		admin.POST("/blocked/:id/toggle", h.ToggleBlock)
		admin.POST("/blocked/:id/delete", h.DeleteBlock)
	}

	r.GET("/health", h.Health)
	r.GET("/metrics", h.MetricsAuthMiddleware(), gin.WrapH(promhttp.Handler()))
}

func (h *APIHandler) MetricsAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		allowedIPs := strings.Split(h.cfg.MetricsAllowedIPs, ",")
		clientIP := c.ClientIP()

		isAllowed := false
		for _, ip := range allowedIPs {
			if strings.TrimSpace(ip) == clientIP {
				isAllowed = true
				break
			}
		}

		if !isAllowed {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			return
		}
		c.Next()
	}
}

func (h *APIHandler) Health(c *gin.Context) {
	status := "UP"
	redisStatus := "OK"
	if h.redisRepo != nil {
		if err := h.redisRepo.Ping(); err != nil {
			redisStatus = "ERROR"
			status = "DEGRADED"
		}
	} else {
		redisStatus = "MISSING"
		status = "DEGRADED"
	}
	checkout := "PENDING"
	if l, ok := h.checkout.(interface{ Loaded() bool }); ok && l.Loaded() {
		checkout = "LOADED"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   status,
		"redis":    redisStatus,
		"checkout": checkout,
	})
}
