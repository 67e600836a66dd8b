package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"rawsite/internal/config"
	"rawsite/internal/models"
	"rawsite/internal/payment"
	"rawsite/internal/remote"
	"rawsite/internal/repository"
	"rawsite/internal/tracking"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
)

var fixedNow = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

// MockBackend stands in for the remote API client.
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) Login(ctx context.Context, email, password string) (string, error) {
	args := m.Called(ctx, email, password)
	return args.String(0), args.Error(1)
}

func (m *MockBackend) Verify(ctx context.Context, token string) (models.Admin, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(models.Admin), args.Error(1)
}

func (m *MockBackend) ListEmails(ctx context.Context, token string, q remote.EmailQuery) (remote.EmailPage, error) {
	args := m.Called(ctx, token, q)
	return args.Get(0).(remote.EmailPage), args.Error(1)
}

func (m *MockBackend) UpdateEmailStatus(ctx context.Context, token, id string, status models.EmailStatus) error {
	return m.Called(ctx, token, id, status).Error(0)
}

func (m *MockBackend) DeleteEmail(ctx context.Context, token, id string) error {
	return m.Called(ctx, token, id).Error(0)
}

func (m *MockBackend) ListVisitors(ctx context.Context, token string, q remote.VisitorQuery) (remote.VisitorPage, error) {
	args := m.Called(ctx, token, q)
	return args.Get(0).(remote.VisitorPage), args.Error(1)
}

func (m *MockBackend) DeleteVisitor(ctx context.Context, token, id string) error {
	return m.Called(ctx, token, id).Error(0)
}

func (m *MockBackend) BlockIP(ctx context.Context, token, ip, reason string) error {
	return m.Called(ctx, token, ip, reason).Error(0)
}

func (m *MockBackend) ListBlocked(ctx context.Context, token string) (remote.BlockedList, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(remote.BlockedList), args.Error(1)
}

func (m *MockBackend) ToggleBlock(ctx context.Context, token, id string) error {
	return m.Called(ctx, token, id).Error(0)
}

func (m *MockBackend) DeleteBlock(ctx context.Context, token, id string) error {
	return m.Called(ctx, token, id).Error(0)
}

func (m *MockBackend) Subscribe(ctx context.Context, sub models.Subscription) (string, error) {
	args := m.Called(ctx, sub)
	return args.String(0), args.Error(1)
}

func (m *MockBackend) Track(ctx context.Context, req models.TrackRequest) (models.TrackResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(models.TrackResponse), args.Error(1)
}

func (m *MockBackend) CreateOrder(ctx context.Context, req models.OrderRequest) (models.Order, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(models.Order), args.Error(1)
}

func (m *MockBackend) VerifyPayment(ctx context.Context, sig models.PaymentSignature) (models.Receipt, error) {
	args := m.Called(ctx, sig)
	return args.Get(0).(models.Receipt), args.Error(1)
}

type MockDonations struct {
	mock.Mock
}

func (m *MockDonations) Fetch(ctx context.Context) (models.DonationSnapshot, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.DonationSnapshot), args.Error(1)
}

// testEnv is a fully routed site backed by miniredis and mocks. It carries
// the session cookie from one request to the next like a browser would.
type testEnv struct {
	h         *APIHandler
	r         *gin.Engine
	api       *MockBackend
	donations *MockDonations
	mr        *miniredis.Miniredis
	repo      *repository.RedisRepository
	beacon    *tracking.Beacon
	hub       *Hub
	cookies   map[string]*http.Cookie
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	repo := repository.NewRedisRepositoryFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { repo.Close() })

	api := &MockBackend{}
	donations := &MockDonations{}
	beacon := tracking.NewBeacon(api, tracking.NewLocalGuard())
	loader := payment.NewScriptLoader(func(ctx context.Context) ([]byte, error) {
		return []byte("window.Razorpay = function () {};"), nil
	})
	registry := payment.NewRegistry(func() *payment.Bridge { return payment.NewBridge(api, loader) }, time.Hour)

	hub := NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	cfg := &config.Config{MetricsAllowedIPs: "127.0.0.1"}
	h := NewAPIHandler(cfg, api, repo, beacon, donations, registry, loader, hub)
	h.now = func() time.Time { return fixedNow }

	r := gin.New()
	r.SetFuncMap(TemplateFuncs())
	r.LoadHTMLGlob("../../cmd/server/templates/*.html")
	r.Use(sessions.Sessions("rawsite_session", cookie.NewStore([]byte("0123456789abcdef0123456789abcdef"))))
	r.Use(SecurityHeadersMiddleware(false))
	r.Use(CSRFMiddleware())
	h.RegisterRoutes(r)

	return &testEnv{
		h:         h,
		r:         r,
		api:       api,
		donations: donations,
		mr:        mr,
		repo:      repo,
		beacon:    beacon,
		hub:       hub,
		cookies:   map[string]*http.Cookie{},
	}
}

// quiet accepts beacon calls and reports no donation stats, for tests that
// only care about something else on the page.
func (e *testEnv) quiet() {
	e.api.On("Track", mock.Anything, mock.Anything).Return(models.TrackResponse{}, nil).Maybe()
	e.donations.On("Fetch", mock.Anything).Return(models.DonationSnapshot{}, assertErr).Maybe()
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range e.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		e.cookies[c.Name] = c
	}
	e.beacon.Wait()
	return w
}

func (e *testEnv) get(path string) *httptest.ResponseRecorder {
	return e.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (e *testEnv) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Origin", "http://example.com")
	return e.do(req)
}

func (e *testEnv) postJSON(path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "http://example.com")
	return e.do(req)
}

// login signs the test browser in as admin@raw.dev with token tok-1.
func (e *testEnv) login(t *testing.T) {
	t.Helper()
	e.api.On("Login", mock.Anything, "admin@raw.dev", "hunter2").Return("tok-1", nil).Once()
	e.api.On("Verify", mock.Anything, "tok-1").Return(models.Admin{Email: "admin@raw.dev"}, nil)
	w := e.postForm("/login", url.Values{"email": {"admin@raw.dev"}, "password": {"hunter2"}})
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/admin" {
		t.Fatalf("login: expected redirect to /admin, got %d %q", w.Code, w.Header().Get("Location"))
	}
}

type testError string

func (e testError) Error() string { return string(e) }

const assertErr = testError("backend offline")
