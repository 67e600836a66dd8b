package api

import (
	"errors"
	"net/http"

	"rawsite/internal/models"
	"rawsite/internal/payment"

	"github.com/gin-gonic/gin"
	zlog "github.com/rs/zerolog/log"
)

type settleRequest struct {
	Outcome string `json:"outcome" form:"outcome"`
	models.PaymentSignature
}

func snapshotJSON(s payment.Snapshot) gin.H {
	return gin.H{
		"status":  s.Status.String(),
		"error":   s.Error,
		"receipt": s.Receipt,
	}
}

func (h *APIHandler) bridge(c *gin.Context) *payment.Bridge {
	vid := c.GetString(ctxVisitorID)
	if vid == "" || h.payments == nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "no visitor session"})
		return nil
	}
	return h.payments.Get(vid)
}

func (h *APIHandler) DonateState(c *gin.Context) {
	b := h.bridge(c)
	if b == nil {
		return
	}
	c.JSON(http.StatusOK, snapshotJSON(b.Snapshot()))
}

// DonateOrder starts a payment and hands the checkout options to the page script.
func (h *APIHandler) DonateOrder(c *gin.Context) {
	b := h.bridge(c)
	if b == nil {
		return
	}
	var req models.OrderRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	opts, err := b.Begin(c.Request.Context(), req)
	switch {
	case errors.Is(err, payment.ErrBelowMinimum):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, payment.ErrBusy):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		zlog.Warn().Err(err).Int("amount", req.Amount).Msg("Failed to start donation")
		c.JSON(http.StatusBadGateway, snapshotJSON(b.Snapshot()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": b.Snapshot().Status.String(), "options": opts})
}

// DonateSettle applies what the vendor checkout reported back.
func (h *APIHandler) DonateSettle(c *gin.Context) {
	b := h.bridge(c)
	if b == nil {
		return
	}
	var req settleRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	var out payment.Outcome
	switch req.Outcome {
	case "paid":
		out = payment.PaidWith(req.PaymentSignature)
	case "dismissed":
		out = payment.Outcome{Kind: payment.Dismissed}
	case "failed":
		out = payment.Outcome{Kind: payment.PaymentFailed}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown outcome"})
		return
	}

	err := b.Settle(c.Request.Context(), out)
	if errors.Is(err, payment.ErrInvalidTransition) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	// a failed verification is already reflected in the snapshot
	c.JSON(http.StatusOK, snapshotJSON(b.Snapshot()))
}

func (h *APIHandler) DonateReset(c *gin.Context) {
	b := h.bridge(c)
	if b == nil {
		return
	}
	if err := b.Reset(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, snapshotJSON(b.Snapshot()))
}

// CheckoutScript serves the vendor checkout script from our own origin. The
// first caller triggers the download; later ones share it.
func (h *APIHandler) CheckoutScript(c *gin.Context) {
	if h.checkout == nil {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	body, err := h.checkout.Load(c.Request.Context())
	if err != nil {
		zlog.Warn().Err(err).Msg("Failed to load checkout script")
		c.AbortWithStatus(http.StatusBadGateway)
		return
	}
	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, "application/javascript; charset=utf-8", body)
}
