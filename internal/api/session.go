package api

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"rawsite/internal/repository"

	"github.com/gin-contrib/sessions"
)

const (
	sessionVisitorID  = "vid"
	sessionAdminToken = "admin_token"

	ctxVisitorID = "vid"
	ctxConsole   = "console"

	visitorTokenTTL = 365 * 24 * time.Hour
)

func newVisitorID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func visitorTokenKey(vid string) string {
	return "visitor:token:" + vid
}

// visitorTokens keeps the beacon token in Redis under the browser's visitor
// id. The beacon finishes after the response is written, so the cookie
// session cannot hold it.
type visitorTokens struct {
	repo RedisRepositoryProvider
	vid  string
}

func (t visitorTokens) VisitorToken() (string, error) {
	var tok string
	err := t.repo.GetCache(visitorTokenKey(t.vid), &tok)
	if errors.Is(err, repository.ErrCacheMiss) {
		return "", nil
	}
	return tok, err
}

func (t visitorTokens) SetVisitorToken(tok string) error {
	return t.repo.SetCache(visitorTokenKey(t.vid), tok, visitorTokenTTL)
}

// adminSession stores the admin bearer token in the browser session.
type adminSession struct {
	s sessions.Session
}

func (a adminSession) AdminToken() (string, error) {
	tok, _ := a.s.Get(sessionAdminToken).(string)
	return tok, nil
}

func (a adminSession) SetAdminToken(tok string) error {
	a.s.Set(sessionAdminToken, tok)
	return a.s.Save()
}

func (a adminSession) ClearAdminToken() error {
	a.s.Delete(sessionAdminToken)
	return a.s.Save()
}
