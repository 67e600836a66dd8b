package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"rawsite/internal/models"
	"rawsite/internal/payment"
	"rawsite/internal/remote"
	"rawsite/internal/repository"
	"rawsite/internal/tasks"

	"github.com/gin-gonic/gin"
	zlog "github.com/rs/zerolog/log"
)

const (
	MsgSubscribed      = "Thanks for subscribing!"
	MsgSubscribeFailed = "Connection failed. Try again later."
	MsgInvalidEmail    = "Please enter a valid email address."
	subscribeSourceCTA = "cta"
)

var pageTitles = map[string]string{
	"about":     "About",
	"solutions": "Solutions",
	"docs":      "Docs",
}

type supporterView struct {
	Name   string
	Amount int
	Ago    string
}

type donateWidget struct {
	Stats      models.DonationStats
	Supporters []supporterView
	Presets    []int
	MinAmount  int
	Payment    string
	Error      string
	Receipt    *models.Receipt
}

// donationSnapshot prefers the cached snapshot and falls back to a live
// fetch. Any failure leaves the widget empty.
func (h *APIHandler) donationSnapshot(ctx context.Context) models.DonationSnapshot {
	if h.redisRepo != nil {
		snap, err := h.redisRepo.LoadDonationSnapshot()
		if err == nil {
			return snap
		}
		if !errors.Is(err, repository.ErrCacheMiss) {
			zlog.Warn().Err(err).Msg("Failed to read donation snapshot")
		}
	}
	if h.donations == nil {
		return models.DonationSnapshot{}
	}
	snap, err := h.donations.Fetch(ctx)
	if err != nil {
		zlog.Debug().Err(err).Msg("Donation stats unavailable")
		return models.DonationSnapshot{}
	}
	if h.redisRepo != nil {
		if err := h.redisRepo.SaveDonationSnapshot(snap, tasks.SnapshotTTL); err != nil {
			zlog.Warn().Err(err).Msg("Failed to cache donation snapshot")
		}
	}
	return snap
}

func (h *APIHandler) donateWidget(c *gin.Context) donateWidget {
	snap := h.donationSnapshot(c.Request.Context())
	now := h.now()

	w := donateWidget{
		Stats:     snap.Stats,
		Presets:   payment.Presets,
		MinAmount: payment.MinAmount,
		Payment:   payment.Idle.String(),
	}
	for _, s := range snap.Supporters {
		w.Supporters = append(w.Supporters, supporterView{Name: s.DisplayName(), Amount: s.Amount, Ago: models.TimeAgo(now, s.CreatedAt)})
	}

	if h.payments != nil {
		if vid := c.GetString(ctxVisitorID); vid != "" {
			ps := h.payments.Get(vid).Snapshot()
			w.Payment, w.Error, w.Receipt = ps.Status.String(), ps.Error, ps.Receipt
		}
	}
	return w
}

func (h *APIHandler) Home(c *gin.Context) {
	h.renderHome(c, http.StatusOK, "", "")
}

func (h *APIHandler) renderHome(c *gin.Context, code int, message, messageType string) {
	h.renderHTML(c, code, "home.html", gin.H{
		"page":        "home",
		"donate":      h.donateWidget(c),
		"message":     message,
		"messageType": messageType,
	})
}

// Page serves one of the static content pages.
func (h *APIHandler) Page(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		h.renderHTML(c, http.StatusOK, "page.html", gin.H{
			"page":  name,
			"title": pageTitles[name],
		})
	}
}

// Subscribe records the CTA form email with the backend and shows its reply inline.
func (h *APIHandler) Subscribe(c *gin.Context) {
	email := strings.TrimSpace(c.PostForm("email"))
	if email == "" || !strings.Contains(email, "@") {
		h.renderHome(c, http.StatusBadRequest, MsgInvalidEmail, "error")
		return
	}

	msg, err := h.site.Subscribe(c.Request.Context(), models.Subscription{Email: email, Source: subscribeSourceCTA})
	if err != nil {
		var apiErr *remote.APIError
		if errors.As(err, &apiErr) {
			msg = apiErr.Message
			if msg == "" {
				msg = MsgSubscribeFailed
			}
		} else {
			zlog.Warn().Err(err).Msg("Subscribe request failed")
			msg = MsgSubscribeFailed
		}
		h.renderHome(c, http.StatusOK, msg, "error")
		return
	}
	if msg == "" {
		msg = MsgSubscribed
	}
	h.renderHome(c, http.StatusOK, msg, "success")
}
