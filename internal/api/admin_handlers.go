package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"rawsite/internal/console"
	"rawsite/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	zlog "github.com/rs/zerolog/log"
)

// promptConfirmer answers a console confirmation from the submitted form.
// A form without confirm=yes records the prompt so it can be shown.
type promptConfirmer struct {
	approved bool
	asked    string
}

func (p *promptConfirmer) Confirm(prompt string) bool {
	p.asked = prompt
	return p.approved
}

type visitorRow struct {
	models.VisitorEvent
	CopyDevice   string
	CopyLocation string
	MenuOpen     bool
}

func (h *APIHandler) newConsole(c *gin.Context) *console.Console {
	return console.New(h.site, adminSession{s: sessions.Default(c)}, nil)
}

func consoleFrom(c *gin.Context) *console.Console {
	con, _ := c.MustGet(ctxConsole).(*console.Console)
	return con
}

// AuthMiddleware verifies the stored admin token with the backend on every
// request. A missing or rejected token sends the browser back to /login.
func (h *APIHandler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		con := h.newConsole(c)
		admin, err := con.Authenticate(c.Request.Context())
		if err != nil {
			if !errors.Is(err, console.ErrNotAuthenticated) {
				zlog.Error().Err(err).Msg("Admin authentication failed")
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		c.Set(ctxConsole, con)
		c.Set("admin", admin)
		c.Next()
	}
}

func (h *APIHandler) ShowLogin(c *gin.Context) {
	session := sessions.Default(c)
	if tok, _ := session.Get(sessionAdminToken).(string); tok != "" {
		c.Redirect(http.StatusFound, "/admin")
		return
	}
	h.renderHTML(c, http.StatusOK, "login.html", nil)
}

func (h *APIHandler) Login(c *gin.Context) {
	email := strings.TrimSpace(c.PostForm("email"))
	password := c.PostForm("password")

	con := h.newConsole(c)
	if err := con.Login(c.Request.Context(), email, password); err != nil {
		var loginErr *console.LoginError
		msg := console.MsgInvalidCredentials
		if errors.As(err, &loginErr) {
			msg = loginErr.Message
		} else {
			zlog.Error().Err(err).Msg("Failed to store admin session")
		}
		zlog.Warn().Str("email", email).Str("ip", c.ClientIP()).Msg("Admin login failed")
		h.renderHTML(c, http.StatusOK, "login.html", gin.H{"error": msg, "email": email})
		return
	}
	zlog.Info().Str("email", email).Msg("Admin logged in")
	c.Redirect(http.StatusFound, "/admin")
}

func (h *APIHandler) Logout(c *gin.Context) {
	if err := h.newConsole(c).Logout(); err != nil {
		zlog.Warn().Err(err).Msg("Failed to clear admin session")
	}
	c.Redirect(http.StatusFound, "/login")
}

// Dashboard renders one tab. Tab, page, filter and search travel in the
// query string so every view is a plain link.
func (h *APIHandler) Dashboard(c *gin.Context) {
	con := consoleFrom(c)
	ctx := c.Request.Context()

	tab, err := console.ParseTab(c.DefaultQuery("tab", string(console.TabEmails)))
	if err != nil {
		tab = console.TabEmails
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	search := strings.TrimSpace(c.Query("search"))
	filter, err := models.ParseEmailFilter(c.Query("status"))
	if err != nil {
		filter = models.EmailFilterAll
	}

	con.Emails.Restore(page, filter, search)
	con.Visitors.Restore(page, search)

	// list errors land in the tab view as an empty state
	if ip := strings.TrimSpace(c.Query("ip")); ip != "" && tab == console.TabVisitors {
		_ = con.FilterByIP(ctx, ip)
	} else {
		_ = con.SwitchTab(ctx, tab)
	}
	if id := c.Query("menu"); id != "" {
		con.Menu.Toggle(id)
	}

	data := gin.H{
		"page":     "admin",
		"admin":    con.Admin(),
		"tab":      string(tab),
		"tabs":     console.Tabs,
		"statuses": models.EmailStatuses,
		"return":   c.Request.URL.RequestURI(),
	}
	switch tab {
	case console.TabEmails:
		data["emails"] = con.Emails.View()
	case console.TabVisitors:
		v := con.Visitors.View()
		rows := make([]visitorRow, 0, len(v.Rows))
		for _, ev := range v.Rows {
			rows = append(rows, visitorRow{
				VisitorEvent: ev,
				CopyDevice:   console.CopyDevice(ev),
				CopyLocation: console.CopyLocation(ev),
				MenuOpen:     con.Menu.IsOpen(ev.ID),
			})
		}
		data["visitors"] = v
		data["rows"] = rows
	case console.TabBlocked:
		data["blocked"] = con.Blocked.View()
	}
	h.renderHTML(c, http.StatusOK, "admin.html", data)
}

// returnTo is where a mutation redirects afterwards. Only dashboard URLs are accepted.
func returnTo(c *gin.Context, tab console.Tab) string {
	ret := c.PostForm("return")
	if u, err := url.Parse(ret); err == nil && u.Host == "" && u.Path == "/admin" {
		return u.RequestURI()
	}
	return "/admin?tab=" + string(tab)
}

// runAction executes a console mutation. Destructive actions without
// confirm=yes render the confirmation page instead of calling the backend.
func (h *APIHandler) runAction(c *gin.Context, tab console.Tab, event string, refresh []string, action func(ctx context.Context, con *console.Console) error) {
	con := consoleFrom(c)
	prompt := &promptConfirmer{approved: c.PostForm("confirm") == "yes"}
	con.SetConfirmer(prompt)

	err := action(c.Request.Context(), con)
	switch {
	case errors.Is(err, console.ErrNotConfirmed):
		fields := url.Values{}
		for k, v := range c.Request.PostForm {
			if k != "confirm" && k != "return" {
				fields[k] = v
			}
		}
		h.renderHTML(c, http.StatusOK, "confirm.html", gin.H{
			"prompt": prompt.asked,
			"action": c.Request.URL.Path,
			"fields": fields,
			"return": returnTo(c, tab),
		})
		return
	case errors.Is(err, console.ErrNotAuthenticated):
		c.Redirect(http.StatusFound, "/login")
		return
	case err != nil:
		zlog.Warn().Err(err).Str("event", event).Msg("List refresh after admin action failed")
	}

	if h.hub != nil {
		h.hub.BroadcastEvent(event, refresh...)
	}
	c.Redirect(http.StatusSeeOther, returnTo(c, tab))
}

func (h *APIHandler) UpdateEmailStatus(c *gin.Context) {
	id := c.Param("id")
	status, err := models.ParseEmailStatus(c.PostForm("status"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.runAction(c, console.TabEmails, "email_updated", []string{string(console.TabEmails)}, func(ctx context.Context, con *console.Console) error {
		return con.UpdateEmailStatus(ctx, id, status)
	})
}

func (h *APIHandler) DeleteEmail(c *gin.Context) {
	id := c.Param("id")
	h.runAction(c, console.TabEmails, "email_deleted", []string{string(console.TabEmails)}, func(ctx context.Context, con *console.Console) error {
		return con.DeleteEmail(ctx, id)
	})
}

func (h *APIHandler) DeleteVisitor(c *gin.Context) {
	id := c.Param("id")
	h.runAction(c, console.TabVisitors, "visitor_deleted", []string{string(console.TabVisitors)}, func(ctx context.Context, con *console.Console) error {
		return con.DeleteVisitor(ctx, id)
	})
}

func (h *APIHandler) BlockIP(c *gin.Context) {
	ip := strings.TrimSpace(c.PostForm("ip"))
	if ip == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ip is required"})
		return
	}
	reason := strings.TrimSpace(c.PostForm("reason"))
	h.runAction(c, console.TabVisitors, "ip_blocked", []string{string(console.TabVisitors), string(console.TabBlocked)}, func(ctx context.Context, con *console.Console) error {
		return con.BlockVisitorIP(ctx, ip, reason)
	})
}

func (h *APIHandler) ToggleBlock(c *gin.Context) {
	id := c.Param("id")
	h.runAction(c, console.TabBlocked, "block_toggled", []string{string(console.TabBlocked)}, func(ctx context.Context, con *console.Console) error {
		return con.ToggleBlock(ctx, id)
	})
}

func (h *APIHandler) DeleteBlock(c *gin.Context) {
	id := c.Param("id")
	h.runAction(c, console.TabBlocked, "block_deleted", []string{string(console.TabBlocked)}, func(ctx context.Context, con *console.Console) error {
		return con.DeleteBlock(ctx, id)
	})
}
