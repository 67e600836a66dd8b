package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	zlog "github.com/rs/zerolog/log"
)

// UnknownIP is reported when the public address cannot be determined.
const UnknownIP = "unknown"

type IPResolver interface {
	// Resolve never fails; it falls back to UnknownIP.
	Resolve(ctx context.Context) string
}

// LookupResolver asks an external echo service such as ipify for the caller's
// public address. It is meant for clients that cannot see their own egress IP.
type LookupResolver struct {
	url  string
	http *http.Client
}

func NewLookupResolver(url string, timeout time.Duration) *LookupResolver {
	return &LookupResolver{url: url, http: &http.Client{Timeout: timeout}}
}

func (l *LookupResolver) Resolve(ctx context.Context) string {
	ip, err := l.lookup(ctx)
	if err != nil {
		zlog.Debug().Err(err).Msg("IP lookup failed")
		return UnknownIP
	}
	return ip
}

func (l *LookupResolver) lookup(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return "", err
	}
	resp, err := l.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ip lookup returned %d", resp.StatusCode)
	}
	var body struct {
		IP string `json:"ip"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	if body.IP == "" {
		return "", fmt.Errorf("ip lookup returned no address")
	}
	return body.IP, nil
}

// StaticResolver returns an address that is already known, e.g. the client IP
// a server saw on the incoming request.
type StaticResolver string

func (s StaticResolver) Resolve(context.Context) string {
	if s == "" {
		return UnknownIP
	}
	return string(s)
}
