package remote

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"rawsite/internal/models"
)

type statusReply struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type loginReply struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Token   string `json:"token"`
}

type verifyReply struct {
	Status  string       `json:"status"`
	Message string       `json:"message"`
	Admin   models.Admin `json:"admin"`
}

type EmailPage struct {
	Status string              `json:"status"`
	Data   []models.EmailEntry `json:"data"`
	Stats  models.EmailStats   `json:"stats"`
	Meta   models.ListMeta     `json:"meta"`
}

type VisitorPage struct {
	Status string                `json:"status"`
	Data   []models.VisitorEvent `json:"data"`
	Stats  models.VisitorStats   `json:"stats"`
	Meta   models.ListMeta       `json:"meta"`
}

type BlockedList struct {
	Status string                `json:"status"`
	Data   []models.BlockedEntry `json:"data"`
	Stats  models.BlockedStats   `json:"stats"`
}

// EmailQuery filters the email list. Status and search are ANDed server side.
type EmailQuery struct {
	Page   int
	Limit  int
	Status models.EmailFilter
	Search string
}

type VisitorQuery struct {
	Page   int
	Limit  int
	Search string
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var out loginReply
	err := c.doJSON(ctx, call{
		name:   "login",
		method: http.MethodPost,
		path:   "/auth/login",
		body:   map[string]string{"email": email, "password": password},
	}, &out)
	if err != nil {
		return "", err
	}
	if err := requireSuccess(out.Status, out.Message, http.StatusOK); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", &APIError{Status: http.StatusOK, Message: "login response carried no token"}
	}
	return out.Token, nil
}

// Verify checks the bearer token and returns the admin it belongs to.
func (c *Client) Verify(ctx context.Context, token string) (models.Admin, error) {
	var out verifyReply
	err := c.doJSON(ctx, call{name: "verify", method: http.MethodGet, path: "/auth/verify", token: token}, &out)
	if err != nil {
		return models.Admin{}, err
	}
	if err := requireSuccess(out.Status, out.Message, http.StatusOK); err != nil {
		return models.Admin{}, err
	}
	return out.Admin, nil
}

func (c *Client) ListEmails(ctx context.Context, token string, q EmailQuery) (EmailPage, error) {
	status := q.Status
	if status == "" {
		status = models.EmailFilterAll
	}
	query := url.Values{}
	query.Set("page", strconv.Itoa(q.Page))
	query.Set("limit", strconv.Itoa(q.Limit))
	query.Set("status", string(status))
	query.Set("search", q.Search)

	var out EmailPage
	if err := c.doJSON(ctx, call{name: "list_emails", method: http.MethodGet, path: "/emails", query: query, token: token}, &out); err != nil {
		return EmailPage{}, err
	}
	if err := requireSuccess(out.Status, "", http.StatusOK); err != nil {
		return EmailPage{}, err
	}
	return out, nil
}

func (c *Client) UpdateEmailStatus(ctx context.Context, token, id string, status models.EmailStatus) error {
	return c.doJSON(ctx, call{
		name:   "update_email",
		method: http.MethodPatch,
		path:   "/emails/" + url.PathEscape(id),
		token:  token,
		body:   map[string]string{"status": string(status)},
	}, nil)
}

func (c *Client) DeleteEmail(ctx context.Context, token, id string) error {
	return c.doJSON(ctx, call{name: "delete_email", method: http.MethodDelete, path: "/emails/" + url.PathEscape(id), token: token}, nil)
}

func (c *Client) ListVisitors(ctx context.Context, token string, q VisitorQuery) (VisitorPage, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(q.Page))
	query.Set("limit", strconv.Itoa(q.Limit))
	query.Set("search", q.Search)

	var out VisitorPage
	if err := c.doJSON(ctx, call{name: "list_visitors", method: http.MethodGet, path: "/visitors", query: query, token: token}, &out); err != nil {
		return VisitorPage{}, err
	}
	if err := requireSuccess(out.Status, "", http.StatusOK); err != nil {
		return VisitorPage{}, err
	}
	return out, nil
}

func (c *Client) DeleteVisitor(ctx context.Context, token, id string) error {
	return c.doJSON(ctx, call{name: "delete_visitor", method: http.MethodDelete, path: "/visitors/" + url.PathEscape(id), token: token}, nil)
}

func (c *Client) BlockIP(ctx context.Context, token, ip, reason string) error {
	return c.doJSON(ctx, call{
		name:   "block_ip",
		method: http.MethodPost,
		path:   "/visitors/block-ip",
		token:  token,
		body:   map[string]string{"ip": ip, "reason": reason},
	}, nil)
}

func (c *Client) ListBlocked(ctx context.Context, token string) (BlockedList, error) {
	var out BlockedList
	if err := c.doJSON(ctx, call{name: "list_blocked", method: http.MethodGet, path: "/visitors/blocked", token: token}, &out); err != nil {
		return BlockedList{}, err
	}
	if err := requireSuccess(out.Status, "", http.StatusOK); err != nil {
		return BlockedList{}, err
	}
	return out, nil
}

// ToggleBlock flips an entry between active and lifted.
func (c *Client) ToggleBlock(ctx context.Context, token, id string) error {
	return c.doJSON(ctx, call{name: "toggle_block", method: http.MethodPatch, path: "/visitors/blocked/" + url.PathEscape(id), token: token}, nil)
}

func (c *Client) DeleteBlock(ctx context.Context, token, id string) error {
	return c.doJSON(ctx, call{name: "delete_block", method: http.MethodDelete, path: "/visitors/blocked/" + url.PathEscape(id), token: token}, nil)
}
