package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"rawsite/internal/metrics"
)

// ErrUnauthorized matches any APIError carrying HTTP 401.
var ErrUnauthorized = errors.New("unauthorized")

// APIError is returned for a non-2xx response or a body with status "error".
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("api returned status %d", e.Status)
}

func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// envelope is the status/message wrapper most endpoints reply with.
type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Client talks JSON to the backend API rooted at baseURL.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// NewClientWithHTTP uses the supplied transport client, mostly for tests.
func NewClientWithHTTP(baseURL string, hc *http.Client) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

type call struct {
	name   string
	method string
	path   string
	query  url.Values
	token  string
	body   interface{}
}

func (c *Client) trackDuration(name string, start time.Time) {
	metrics.MetricRemoteDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
}

// do executes the call and returns the raw body after the envelope check.
func (c *Client) do(ctx context.Context, cl call) ([]byte, error) {
	defer c.trackDuration(cl.name, time.Now())

	u := c.baseURL + cl.path
	if len(cl.query) > 0 {
		u += "?" + cl.query.Encode()
	}

	var reader io.Reader
	if cl.body != nil {
		payload, err := json.Marshal(cl.body)
		if err != nil {
			return nil, fmt.Errorf("%s: encode body: %w", cl.name, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", cl.name, err)
	}
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if cl.token != "" {
		req.Header.Set("Authorization", "Bearer "+cl.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cl.name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", cl.name, err)
	}

	var env envelope
	_ = json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 || env.Status == "error" {
		return nil, &APIError{Status: resp.StatusCode, Message: env.Message}
	}
	return raw, nil
}

// doJSON decodes the whole body into out.
func (c *Client) doJSON(ctx context.Context, cl call, out interface{}) error {
	raw, err := c.do(ctx, cl)
	if err != nil {
		return err
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", cl.name, err)
	}
	return nil
}

// doData decodes the envelope's data field into out.
func (c *Client) doData(ctx context.Context, cl call, out interface{}) error {
	raw, err := c.do(ctx, cl)
	if err != nil {
		return err
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%s: decode response: %w", cl.name, err)
	}
	if len(env.Data) == 0 {
		return fmt.Errorf("%s: response has no data", cl.name)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%s: decode data: %w", cl.name, err)
	}
	return nil
}

// requireSuccess turns a 2xx reply whose status is not "success" into an APIError.
func requireSuccess(status, message string, code int) error {
	if status == "success" {
		return nil
	}
	return &APIError{Status: code, Message: message}
}
