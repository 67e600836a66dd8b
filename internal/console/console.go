package console

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"rawsite/internal/models"
	"rawsite/internal/remote"

	zlog "github.com/rs/zerolog/log"
)

var (
	// ErrNotAuthenticated means the caller must go back to the login entry point.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrNotConfirmed is returned when the operator declines a destructive action.
	ErrNotConfirmed = errors.New("action not confirmed")
)

const (
	MsgInvalidCredentials = "Invalid credentials. Access denied."
	MsgConnectionFailed   = "Connection failed. Is the server running?"

	DefaultBlockReason = "Manually blocked from admin panel"
)

// API is the slice of the backend the console drives.
type API interface {
	Login(ctx context.Context, email, password string) (string, error)
	Verify(ctx context.Context, token string) (models.Admin, error)
	ListEmails(ctx context.Context, token string, q remote.EmailQuery) (remote.EmailPage, error)
	UpdateEmailStatus(ctx context.Context, token, id string, status models.EmailStatus) error
	DeleteEmail(ctx context.Context, token, id string) error
	ListVisitors(ctx context.Context, token string, q remote.VisitorQuery) (remote.VisitorPage, error)
	DeleteVisitor(ctx context.Context, token, id string) error
	BlockIP(ctx context.Context, token, ip, reason string) error
	ListBlocked(ctx context.Context, token string) (remote.BlockedList, error)
	ToggleBlock(ctx context.Context, token, id string) error
	DeleteBlock(ctx context.Context, token, id string) error
}

// SessionStore holds the admin bearer token between runs or requests.
// AdminToken returns "" when no token is stored.
type SessionStore interface {
	AdminToken() (string, error)
	SetAdminToken(token string) error
	ClearAdminToken() error
}

// Confirmer asks the operator before a destructive action.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a plain function to Confirmer.
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// AlwaysConfirm approves every prompt, for --yes style flags and pre-confirmed forms.
var AlwaysConfirm Confirmer = ConfirmFunc(func(string) bool { return true })

// LoginError carries the inline message shown under the login form.
type LoginError struct {
	Message string
	Err     error
}

func (e *LoginError) Error() string { return e.Message }
func (e *LoginError) Unwrap() error { return e.Err }

type Tab string

const (
	TabEmails   Tab = "emails"
	TabVisitors Tab = "visitors"
	TabBlocked  Tab = "blocked"
)

var Tabs = []Tab{TabEmails, TabVisitors, TabBlocked}

func ParseTab(s string) (Tab, error) {
	for _, t := range Tabs {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown tab %q", s)
}

// Console is the admin moderation client. One Console serves one operator.
type Console struct {
	api     API
	session SessionStore
	confirm Confirmer

	mu     sync.Mutex
	token  string
	admin  models.Admin
	authed bool
	active Tab

	Emails   *EmailsTab
	Visitors *VisitorsTab
	Blocked  *BlockedTab
	Menu     *RowMenu
}

func New(api API, session SessionStore, confirm Confirmer) *Console {
	if confirm == nil {
		confirm = ConfirmFunc(func(string) bool { return false })
	}
	return &Console{
		api:      api,
		session:  session,
		confirm:  confirm,
		active:   TabEmails,
		Emails:   newEmailsTab(),
		Visitors: newVisitorsTab(),
		Blocked:  &BlockedTab{},
		Menu:     &RowMenu{},
	}
}

// SetConfirmer swaps the prompt used by destructive actions.
func (c *Console) SetConfirmer(confirm Confirmer) {
	c.mu.Lock()
	c.confirm = confirm
	c.mu.Unlock()
}

// Login exchanges credentials for a token and stores it. On failure nothing
// is stored and the returned *LoginError carries the inline message.
func (c *Console) Login(ctx context.Context, email, password string) error {
	token, err := c.api.Login(ctx, email, password)
	if err != nil {
		var apiErr *remote.APIError
		if errors.As(err, &apiErr) {
			msg := apiErr.Message
			if msg == "" {
				msg = MsgInvalidCredentials
			}
			return &LoginError{Message: msg, Err: err}
		}
		zlog.Warn().Err(err).Msg("Login request failed")
		return &LoginError{Message: MsgConnectionFailed, Err: err}
	}
	if err := c.session.SetAdminToken(token); err != nil {
		return fmt.Errorf("store admin token: %w", err)
	}
	c.mu.Lock()
	c.token = token
	c.authed = false
	c.mu.Unlock()
	return nil
}

// Authenticate verifies the stored token. It always calls the backend and must
// succeed before any tab is loaded. A rejected token is discarded.
func (c *Console) Authenticate(ctx context.Context) (models.Admin, error) {
	token, err := c.session.AdminToken()
	if err != nil {
		return models.Admin{}, fmt.Errorf("read admin token: %w", err)
	}
	if token == "" {
		return models.Admin{}, ErrNotAuthenticated
	}

	admin, err := c.api.Verify(ctx, token)
	if err != nil {
		zlog.Info().Err(err).Msg("Admin token rejected, clearing session")
		if cerr := c.session.ClearAdminToken(); cerr != nil {
			zlog.Error().Err(cerr).Msg("Failed to clear admin token")
		}
		c.mu.Lock()
		c.token, c.authed, c.admin = "", false, models.Admin{}
		c.mu.Unlock()
		return models.Admin{}, fmt.Errorf("%w: %v", ErrNotAuthenticated, err)
	}

	c.mu.Lock()
	c.token, c.authed, c.admin = token, true, admin
	c.mu.Unlock()
	return admin, nil
}

func (c *Console) Logout() error {
	c.mu.Lock()
	c.token, c.authed, c.admin = "", false, models.Admin{}
	c.mu.Unlock()
	return c.session.ClearAdminToken()
}

func (c *Console) Admin() models.Admin {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.admin
}

func (c *Console) Authenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authed
}

func (c *Console) ActiveTab() Tab {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// SwitchTab makes tab active and loads it.
func (c *Console) SwitchTab(ctx context.Context, tab Tab) error {
	c.mu.Lock()
	c.active = tab
	c.mu.Unlock()
	c.Menu.Close()
	return c.Refresh(ctx, tab)
}

// Refresh re-lists one tab with its current filters.
func (c *Console) Refresh(ctx context.Context, tab Tab) error {
	switch tab {
	case TabEmails:
		return c.loadEmails(ctx)
	case TabVisitors:
		return c.loadVisitors(ctx)
	case TabBlocked:
		return c.loadBlocked(ctx)
	default:
		return fmt.Errorf("unknown tab %q", tab)
	}
}

func (c *Console) bearer() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.authed {
		return "", ErrNotAuthenticated
	}
	return c.token, nil
}

func (c *Console) confirmed(prompt string) bool {
	c.mu.Lock()
	confirm := c.confirm
	c.mu.Unlock()
	return confirm.Confirm(prompt)
}
