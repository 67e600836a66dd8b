package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"testing"

	"rawsite/internal/localstore"
	"rawsite/internal/models"
	"rawsite/internal/remote"
	"rawsite/internal/tracking"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// captureOutput runs fn and returns everything it wrote to stdout.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) Login(ctx context.Context, email, password string) (string, error) {
	args := m.Called(ctx, email, password)
	return args.String(0), args.Error(1)
}

func (m *mockBackend) Verify(ctx context.Context, token string) (models.Admin, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(models.Admin), args.Error(1)
}

func (m *mockBackend) ListEmails(ctx context.Context, token string, q remote.EmailQuery) (remote.EmailPage, error) {
	args := m.Called(ctx, token, q)
	return args.Get(0).(remote.EmailPage), args.Error(1)
}

func (m *mockBackend) UpdateEmailStatus(ctx context.Context, token, id string, status models.EmailStatus) error {
	return m.Called(ctx, token, id, status).Error(0)
}

func (m *mockBackend) DeleteEmail(ctx context.Context, token, id string) error {
	return m.Called(ctx, token, id).Error(0)
}

func (m *mockBackend) ListVisitors(ctx context.Context, token string, q remote.VisitorQuery) (remote.VisitorPage, error) {
	args := m.Called(ctx, token, q)
	return args.Get(0).(remote.VisitorPage), args.Error(1)
}

func (m *mockBackend) DeleteVisitor(ctx context.Context, token, id string) error {
	return m.Called(ctx, token, id).Error(0)
}

func (m *mockBackend) BlockIP(ctx context.Context, token, ip, reason string) error {
	return m.Called(ctx, token, ip, reason).Error(0)
}

func (m *mockBackend) ListBlocked(ctx context.Context, token string) (remote.BlockedList, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(remote.BlockedList), args.Error(1)
}

func (m *mockBackend) ToggleBlock(ctx context.Context, token, id string) error {
	return m.Called(ctx, token, id).Error(0)
}

func (m *mockBackend) DeleteBlock(ctx context.Context, token, id string) error {
	return m.Called(ctx, token, id).Error(0)
}

func (m *mockBackend) Track(ctx context.Context, req models.TrackRequest) (models.TrackResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(models.TrackResponse), args.Error(1)
}

func (m *mockBackend) CreateOrder(ctx context.Context, req models.OrderRequest) (models.Order, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(models.Order), args.Error(1)
}

func (m *mockBackend) VerifyPayment(ctx context.Context, sig models.PaymentSignature) (models.Receipt, error) {
	args := m.Called(ctx, sig)
	return args.Get(0).(models.Receipt), args.Error(1)
}

func (m *mockBackend) DonationTotal(ctx context.Context) (models.DonationStats, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.DonationStats), args.Error(1)
}

func (m *mockBackend) RecentSupporters(ctx context.Context) ([]models.Supporter, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Supporter), args.Error(1)
}

type stubLoader struct{ err error }

func (l stubLoader) Load(context.Context) ([]byte, error) {
	if l.err != nil {
		return nil, l.err
	}
	return []byte("window.Razorpay = function () {};"), nil
}

// testEnv returns an environment backed by a mock API and an in-memory
// state database. stdin feeds prompts.
func testEnv(t *testing.T, stdin string) (*environment, *mockBackend, *localstore.Store) {
	t.Helper()
	store, err := localstore.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	api := new(mockBackend)
	t.Cleanup(func() { api.AssertExpectations(t) })

	return &environment{
		api:      api,
		store:    store,
		resolver: tracking.StaticResolver("198.51.100.4"),
		loader:   stubLoader{},
		stdin:    strings.NewReader(stdin),
	}, api, store
}

// signIn stores an admin token the mock accepts.
func signIn(t *testing.T, api *mockBackend, store *localstore.Store) {
	t.Helper()
	require.NoError(t, store.SetAdminToken("tok-1"))
	api.On("Verify", mock.Anything, "tok-1").Return(models.Admin{Email: "admin@raw.dev"}, nil)
}
