package api

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"

	"rawsite/internal/tracking"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	zlog "github.com/rs/zerolog/log"
)

// SecurityHeadersMiddleware sets a per-request CSP nonce and the usual hardening headers.
// The checkout vendor needs its frames and API origin allowed.
func SecurityHeadersMiddleware(hsts bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		nonceBytes := make([]byte, 16)
		if _, err := rand.Read(nonceBytes); err != nil {
			zlog.Error().Err(err).Msg("Failed to generate nonce")
		}
		nonce := base64.StdEncoding.EncodeToString(nonceBytes)
		c.Set("nonce", nonce)

		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "same-origin")
		if hsts || c.Request.TLS != nil {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
		}

		csp := fmt.Sprintf("default-src 'self'; img-src 'self' data: https:; style-src 'self' 'unsafe-inline'; script-src 'self' 'nonce-%s'; frame-src https://api.razorpay.com https://checkout.razorpay.com; connect-src 'self' ws: wss: https://api.razorpay.com https://lumberjack.razorpay.com", nonce)
		c.Header("Content-Security-Policy", csp)

		c.Next()
	}
}

// CSRFMiddleware enforces same-origin on unsafe methods via Origin/Referer.
func CSRFMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead || c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		origin := c.GetHeader("Origin")
		ref := c.GetHeader("Referer")
		host := c.Request.Host
		ok := false

		// Origin may be "null" under some browser privacy settings
		if origin != "" && origin != "null" {
			if u, err := url.Parse(origin); err == nil && u.Host == host {
				ok = true
			}
		}
		if !ok && ref != "" {
			if u, err := url.Parse(ref); err == nil && u.Host == host {
				ok = true
			}
		}

		// Non-browser clients send neither header. Let them through unless the
		// session carries admin credentials they could be riding on.
		if !ok && origin == "" && ref == "" {
			session := sessions.Default(c)
			if tok, _ := session.Get(sessionAdminToken).(string); tok == "" {
				ok = true
			}
		}

		if !ok {
			zlog.Warn().Str("origin", origin).Str("referer", ref).Str("host", host).Msg("CSRF check failed")
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Next()
	}
}

// VisitorMiddleware gives every browser a stable random id in its session.
func (h *APIHandler) VisitorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		vid, _ := session.Get(sessionVisitorID).(string)
		if vid == "" {
			vid = newVisitorID()
			session.Set(sessionVisitorID, vid)
			if err := session.Save(); err != nil {
				zlog.Warn().Err(err).Msg("Failed to save visitor session")
			}
		}
		c.Set(ctxVisitorID, vid)
		c.Next()
	}
}

// TrackPageMiddleware fires the beacon for the page being served. It never
// delays or fails the page.
func (h *APIHandler) TrackPageMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.beacon != nil {
			vid := c.GetString(ctxVisitorID)
			var tokens tracking.TokenStore
			if h.redisRepo != nil {
				tokens = visitorTokens{repo: h.redisRepo, vid: vid}
			}
			h.beacon.Fire(c.Request.Context(), tracking.Visit{
				Key:       vid,
				Page:      c.Request.URL.Path,
				Referrer:  c.GetHeader("Referer"),
				UserAgent: c.Request.UserAgent(),
				Resolver:  tracking.StaticResolver(c.ClientIP()),
				Tokens:    tokens,
			})
		}
		c.Next()
	}
}
