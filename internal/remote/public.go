package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"rawsite/internal/models"
)

// Track posts a beacon. The token may come back bare or inside a data envelope.
func (c *Client) Track(ctx context.Context, req models.TrackRequest) (models.TrackResponse, error) {
	raw, err := c.do(ctx, call{name: "track", method: http.MethodPost, path: "/visitors/track", body: req})
	if err != nil {
		return models.TrackResponse{}, err
	}
	var out struct {
		Token string          `json:"token"`
		Data  json.RawMessage `json:"data"`
	}
	if len(raw) == 0 {
		return models.TrackResponse{}, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return models.TrackResponse{}, fmt.Errorf("track: decode response: %w", err)
	}
	if out.Token == "" && len(out.Data) > 0 {
		var inner models.TrackResponse
		if json.Unmarshal(out.Data, &inner) == nil {
			out.Token = inner.Token
		}
	}
	return models.TrackResponse{Token: out.Token}, nil
}

// Subscribe records an email from a public form and returns the backend's
// message for display.
func (c *Client) Subscribe(ctx context.Context, sub models.Subscription) (string, error) {
	var out statusReply
	if err := c.doJSON(ctx, call{name: "subscribe", method: http.MethodPost, path: "/emails", body: sub}, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func (c *Client) CreateOrder(ctx context.Context, req models.OrderRequest) (models.Order, error) {
	var out models.Order
	err := c.doData(ctx, call{name: "create_order", method: http.MethodPost, path: "/donate/create-order", body: req}, &out)
	return out, err
}

func (c *Client) VerifyPayment(ctx context.Context, sig models.PaymentSignature) (models.Receipt, error) {
	var out models.Receipt
	err := c.doData(ctx, call{name: "verify_payment", method: http.MethodPost, path: "/donate/verify", body: sig}, &out)
	return out, err
}

func (c *Client) DonationTotal(ctx context.Context) (models.DonationStats, error) {
	var out models.DonationStats
	err := c.doData(ctx, call{name: "donation_total", method: http.MethodGet, path: "/donate/total"}, &out)
	return out, err
}

func (c *Client) RecentSupporters(ctx context.Context) ([]models.Supporter, error) {
	var out []models.Supporter
	err := c.doData(ctx, call{name: "recent_supporters", method: http.MethodGet, path: "/donate/recent"}, &out)
	return out, err
}
