package api

import (
	"errors"
	"net/http"
	"net/url"
	"testing"

	"rawsite/internal/console"
	"rawsite/internal/models"
	"rawsite/internal/remote"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func emailPage(rows ...models.EmailEntry) remote.EmailPage {
	return remote.EmailPage{Status: "success", Data: rows, Meta: models.ListMeta{Pages: 3}}
}

func TestAdmin_RedirectsWithoutToken(t *testing.T) {
	e := newTestEnv(t)

	w := e.get("/admin")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
	e.api.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything)
}

func TestAdmin_WSRequiresLogin(t *testing.T) {
	e := newTestEnv(t)

	w := e.get("/admin/ws")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestLogin_Failures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"rejected without message", &remote.APIError{Status: http.StatusUnauthorized}, console.MsgInvalidCredentials},
		{"rejected with message", &remote.APIError{Status: http.StatusForbidden, Message: "Account locked"}, "Account locked"},
		{"backend unreachable", errors.New("dial tcp: connection refused"), console.MsgConnectionFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)
			e.api.On("Login", mock.Anything, "admin@raw.dev", "wrong").Return("", tt.err).Once()

			w := e.postForm("/login", url.Values{"email": {"admin@raw.dev"}, "password": {"wrong"}})
			require.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), tt.want)
			assert.Contains(t, w.Body.String(), `value="admin@raw.dev"`)

			w = e.get("/admin")
			assert.Equal(t, http.StatusFound, w.Code, "no token should have been stored")
		})
	}
}

func TestLogin_SuccessThenDashboard(t *testing.T) {
	e := newTestEnv(t)
	e.login(t)
	e.api.On("ListEmails", mock.Anything, "tok-1", remote.EmailQuery{Page: 1, Limit: 15, Status: models.EmailFilterAll}).
		Return(emailPage(models.EmailEntry{ID: "e1", Email: "reader@x.io", Status: models.EmailNew}), nil).Once()

	w := e.get("/admin")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "admin@raw.dev")
	assert.Contains(t, w.Body.String(), "reader@x.io")

	// an authenticated browser skips the login form
	w = e.get("/login")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/admin", w.Header().Get("Location"))
	e.api.AssertExpectations(t)
}

func TestAdmin_RejectedTokenIsCleared(t *testing.T) {
	e := newTestEnv(t)
	e.api.On("Login", mock.Anything, "admin@raw.dev", "hunter2").Return("tok-stale", nil).Once()
	e.api.On("Verify", mock.Anything, "tok-stale").Return(models.Admin{}, &remote.APIError{Status: http.StatusUnauthorized}).Once()

	w := e.postForm("/login", url.Values{"email": {"admin@raw.dev"}, "password": {"hunter2"}})
	require.Equal(t, http.StatusFound, w.Code)

	w = e.get("/admin")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	w = e.get("/admin")
	assert.Equal(t, http.StatusFound, w.Code)
	e.api.AssertNumberOfCalls(t, "Verify", 1)
}

func TestLogout(t *testing.T) {
	e := newTestEnv(t)
	e.login(t)

	w := e.get("/logout")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	w = e.get("/login")
	assert.Equal(t, http.StatusOK, w.Code)
	w = e.get("/admin")
	assert.Equal(t, http.StatusFound, w.Code)
}

func TestDashboard_QueryStateReachesBackend(t *testing.T) {
	e := newTestEnv(t)
	e.login(t)
	e.api.On("ListEmails", mock.Anything, "tok-1", remote.EmailQuery{Page: 2, Limit: 15, Status: models.EmailFilter("new"), Search: "ada"}).
		Return(emailPage(), nil).Once()

	w := e.get("/admin?tab=emails&status=new&search=ada&page=2")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Page 2 of 3")
	e.api.AssertExpectations(t)
}

func TestDashboard_UnknownTabAndFilterFallBack(t *testing.T) {
	e := newTestEnv(t)
	e.login(t)
	e.api.On("ListEmails", mock.Anything, "tok-1", remote.EmailQuery{Page: 1, Limit: 15, Status: models.EmailFilterAll}).
		Return(emailPage(), nil).Once()

	w := e.get("/admin?tab=nope&status=bogus")
	require.Equal(t, http.StatusOK, w.Code)
	e.api.AssertExpectations(t)
}

func TestDashboard_VisitorMenuAndFilterByIP(t *testing.T) {
	e := newTestEnv(t)
	e.login(t)
	row := models.VisitorEvent{ID: "v1", IP: "9.9.9.9", Device: "Mobile", Browser: "Chrome", OS: "Android", City: "Pune", Region: "MH", Country: "India"}
	page := remote.VisitorPage{Data: []models.VisitorEvent{row}, Meta: models.ListMeta{Pages: 1}}

	e.api.On("ListVisitors", mock.Anything, "tok-1", remote.VisitorQuery{Page: 1, Limit: 20}).Return(page, nil).Once()
	w := e.get("/admin?tab=visitors&menu=v1")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Copy IP")
	assert.Contains(t, body, `data-copy="Mobile | Chrome | Android"`)
	assert.Contains(t, body, `data-copy="Pune, MH, India"`)
	assert.Contains(t, body, "Pune, India")

	// filtering by IP always starts from the first page
	e.api.On("ListVisitors", mock.Anything, "tok-1", remote.VisitorQuery{Page: 1, Limit: 20, Search: "9.9.9.9"}).Return(page, nil).Once()
	w = e.get("/admin?tab=visitors&page=3&ip=9.9.9.9")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "Copy IP")
	e.api.AssertExpectations(t)
}

func TestDeleteEmail_RequiresConfirmation(t *testing.T) {
	e := newTestEnv(t)
	e.login(t)

	w := e.postForm("/admin/emails/e1/delete", url.Values{"return": {"/admin?tab=emails&page=2"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Delete this email permanently?")
	assert.Contains(t, w.Body.String(), `name="confirm" value="yes"`)
	e.api.AssertNotCalled(t, "DeleteEmail", mock.Anything, mock.Anything, mock.Anything)

	e.api.On("DeleteEmail", mock.Anything, "tok-1", "e1").Return(nil).Once()
	e.api.On("ListEmails", mock.Anything, "tok-1", mock.Anything).Return(emailPage(), nil).Once()
	w = e.postForm("/admin/emails/e1/delete", url.Values{"confirm": {"yes"}, "return": {"/admin?tab=emails&page=2"}})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/admin?tab=emails&page=2", w.Header().Get("Location"))
	e.api.AssertExpectations(t)
}

func TestUpdateEmailStatus(t *testing.T) {
	e := newTestEnv(t)
	e.login(t)

	w := e.postForm("/admin/emails/e1/status", url.Values{"status": {"spam"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	e.api.On("UpdateEmailStatus", mock.Anything, "tok-1", "e1", models.EmailContacted).Return(nil).Once()
	e.api.On("ListEmails", mock.Anything, "tok-1", mock.Anything).Return(emailPage(), nil).Once()
	w = e.postForm("/admin/emails/e1/status", url.Values{"status": {"contacted"}, "return": {"https://evil.example/admin"}})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/admin?tab=emails", w.Header().Get("Location"))
	e.api.AssertExpectations(t)
}

func TestBlockIP_DefaultReasonRefreshesBothLists(t *testing.T) {
	e := newTestEnv(t)
	e.login(t)
	e.api.On("BlockIP", mock.Anything, "tok-1", "1.2.3.4", console.DefaultBlockReason).Return(nil).Once()
	e.api.On("ListVisitors", mock.Anything, "tok-1", mock.Anything).Return(remote.VisitorPage{}, nil).Once()
	e.api.On("ListBlocked", mock.Anything, "tok-1").Return(remote.BlockedList{}, nil).Once()

	w := e.postForm("/admin/visitors/block", url.Values{"ip": {"1.2.3.4"}, "confirm": {"yes"}})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/admin?tab=visitors", w.Header().Get("Location"))
	e.api.AssertExpectations(t)
}

func TestBlockIP_MissingIP(t *testing.T) {
	e := newTestEnv(t)
	e.login(t)

	w := e.postForm("/admin/visitors/block", url.Values{"confirm": {"yes"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	e.api.AssertNotCalled(t, "BlockIP", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBlockedActions(t *testing.T) {
	e := newTestEnv(t)
	e.login(t)
	e.api.On("ListBlocked", mock.Anything, "tok-1").Return(remote.BlockedList{}, nil)

	e.api.On("ToggleBlock", mock.Anything, "tok-1", "b1").Return(nil).Once()
	w := e.postForm("/admin/blocked/b1/toggle", nil)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/admin?tab=blocked", w.Header().Get("Location"))

	w = e.postForm("/admin/blocked/b1/delete", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Remove this block entry?")

	e.api.On("DeleteBlock", mock.Anything, "tok-1", "b1").Return(errors.New("boom")).Once()
	w = e.postForm("/admin/blocked/b1/delete", url.Values{"confirm": {"yes"}})
	assert.Equal(t, http.StatusSeeOther, w.Code, "a failed mutation still re-lists and redirects")
	e.api.AssertExpectations(t)
}

func TestDeleteVisitor(t *testing.T) {
	e := newTestEnv(t)
	e.login(t)
	e.api.On("DeleteVisitor", mock.Anything, "tok-1", "v1").Return(nil).Once()
	e.api.On("ListVisitors", mock.Anything, "tok-1", mock.Anything).Return(remote.VisitorPage{}, nil).Once()

	w := e.postForm("/admin/visitors/v1/delete", url.Values{"confirm": {"yes"}})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	e.api.AssertExpectations(t)
}
