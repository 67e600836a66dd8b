package cli

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"rawsite/internal/config"
	"rawsite/internal/console"
	"rawsite/internal/models"
	"rawsite/internal/remote"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var created = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func emailPage(pages int) remote.EmailPage {
	return remote.EmailPage{
		Status: "success",
		Data: []models.EmailEntry{
			{ID: "e1", Email: "ada@example.com", Source: "footer", Status: models.EmailNew, CreatedAt: created},
		},
		Stats: models.EmailStats{Total: 4, New: 2, Contacted: 1, Archived: 1},
		Meta:  models.ListMeta{Pages: pages},
	}
}

func visitorPage() remote.VisitorPage {
	return remote.VisitorPage{
		Status: "success",
		Data: []models.VisitorEvent{{
			ID: "v1", IP: "203.0.113.7", Device: "Mobile", Browser: "Chrome", OS: "Android",
			Page: "/work", Referrer: "direct", Country: "India", City: "Pune", Region: "MH",
			CreatedAt: created,
		}},
		Stats: models.VisitorStats{Total: 10, Unique: 4, Today: 2},
		Meta:  models.ListMeta{Pages: 1},
	}
}

func blockedList() remote.BlockedList {
	return remote.BlockedList{
		Status: "success",
		Data: []models.BlockedEntry{
			{ID: "b1", IP: "203.0.113.7", Reason: console.DefaultBlockReason, RequestCount: 12, Active: true, CreatedAt: created},
		},
		Stats: models.BlockedStats{Total: 1, Active: 1},
	}
}

var defaultEmailQuery = remote.EmailQuery{Page: 1, Limit: console.EmailPageSize, Status: models.EmailFilterAll}

func runCmd(t *testing.T, env *environment, args ...string) (string, error) {
	t.Helper()
	var err error
	out := captureOutput(t, func() {
		err = runWith("test", &config.Config{}, env, args)
	})
	return out, err
}

func TestEmails_QueryFromFlags(t *testing.T) {
	env, api, store := testEnv(t, "")
	signIn(t, api, store)
	api.On("ListEmails", mock.Anything, "tok-1", remote.EmailQuery{Page: 2, Limit: 15, Status: "new", Search: "ada"}).
		Return(emailPage(3), nil)

	out, err := runCmd(t, env, "emails", "--status", "new", "--search", "ada", "--page", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Emails: 4 total, 2 new, 1 contacted, 1 archived")
	assert.Contains(t, out, "ada@example.com")
	assert.Contains(t, out, "2025-03-14 09:30")
	assert.Contains(t, out, "Page 2 of 3")
}

func TestEmails_Defaults(t *testing.T) {
	env, api, store := testEnv(t, "")
	signIn(t, api, store)
	api.On("ListEmails", mock.Anything, "tok-1", defaultEmailQuery).Return(remote.EmailPage{Meta: models.ListMeta{Pages: 1}}, nil)

	out, err := runCmd(t, env, "emails")
	require.NoError(t, err)
	assert.Contains(t, out, "No emails.")
	assert.Contains(t, out, "Page 1 of 1")
}

func TestEmails_InvalidFilter(t *testing.T) {
	env, _, _ := testEnv(t, "")

	_, err := runCmd(t, env, "emails", "--status", "spam")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown email status "spam"`)
}

func TestEmails_NotSignedIn(t *testing.T) {
	env, _, _ := testEnv(t, "")

	_, err := runCmd(t, env, "emails")
	assert.ErrorIs(t, err, errNotSignedIn)
}

func TestEmails_ListFailure(t *testing.T) {
	env, api, store := testEnv(t, "")
	signIn(t, api, store)
	api.On("ListEmails", mock.Anything, "tok-1", defaultEmailQuery).Return(remote.EmailPage{}, errors.New("boom"))

	_, err := runCmd(t, env, "emails")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch emails: boom")
}

func TestEmails_JSON(t *testing.T) {
	env, api, store := testEnv(t, "")
	signIn(t, api, store)
	api.On("ListEmails", mock.Anything, "tok-1", defaultEmailQuery).Return(emailPage(1), nil)

	out, err := runCmd(t, env, "--json", "emails")
	require.NoError(t, err)

	var got struct {
		Page  int                 `json:"page"`
		Pages int                 `json:"pages"`
		Stats models.EmailStats   `json:"stats"`
		Data  []models.EmailEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 1, got.Page)
	assert.Equal(t, 4, got.Stats.Total)
	require.Len(t, got.Data, 1)
	assert.Equal(t, "e1", got.Data[0].ID)
}

func TestEmailStatus(t *testing.T) {
	env, api, store := testEnv(t, "")
	signIn(t, api, store)
	api.On("UpdateEmailStatus", mock.Anything, "tok-1", "e1", models.EmailContacted).Return(nil)
	api.On("ListEmails", mock.Anything, "tok-1", defaultEmailQuery).Return(emailPage(1), nil)

	out, err := runCmd(t, env, "email-status", "--id", "e1", "--status", "contacted")
	require.NoError(t, err)
	assert.Contains(t, out, "Email e1 marked contacted.")
}

func TestEmailStatus_RejectsUnknownStatus(t *testing.T) {
	env, _, _ := testEnv(t, "")

	_, err := runCmd(t, env, "email-status", "--id", "e1", "--status", "spam")
	require.Error(t, err)
}

func TestEmailDelete_Confirmation(t *testing.T) {
	tests := []struct {
		name    string
		stdin   string
		args    []string
		deleted bool
	}{
		{"answered yes", "y\n", nil, true},
		{"answered YES", "YES\n", nil, true},
		{"answered no", "n\n", nil, false},
		{"no input", "", nil, false},
		{"yes flag", "", []string{"-y"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, api, store := testEnv(t, tt.stdin)
			signIn(t, api, store)
			if tt.deleted {
				api.On("DeleteEmail", mock.Anything, "tok-1", "e1").Return(nil).Once()
				api.On("ListEmails", mock.Anything, "tok-1", defaultEmailQuery).Return(emailPage(1), nil)
			}

			out, err := runCmd(t, env, append([]string{"email-delete", "--id", "e1"}, tt.args...)...)
			if !tt.deleted {
				require.Error(t, err)
				assert.Equal(t, "aborted: not confirmed", err.Error())
				api.AssertNotCalled(t, "DeleteEmail", mock.Anything, mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, out, "Email e1 deleted.")
			if tt.args == nil {
				assert.Contains(t, out, "Delete this email permanently? [y/N]: ")
			}
		})
	}
}

func TestEmailDelete_BackendFailureStillRelists(t *testing.T) {
	env, api, store := testEnv(t, "")
	signIn(t, api, store)
	api.On("DeleteEmail", mock.Anything, "tok-1", "e1").Return(errors.New("502 bad gateway"))
	api.On("ListEmails", mock.Anything, "tok-1", defaultEmailQuery).Return(emailPage(1), nil).Once()

	out, err := runCmd(t, env, "email-delete", "--id", "e1", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "ada@example.com")
}

func TestEmailDelete_RequiresID(t *testing.T) {
	env, _, _ := testEnv(t, "")

	_, err := runCmd(t, env, "email-delete", "-y")
	require.Error(t, err)
	assert.Equal(t, "--id is required", err.Error())
}

func TestVisitors(t *testing.T) {
	env, api, store := testEnv(t, "")
	signIn(t, api, store)
	api.On("ListVisitors", mock.Anything, "tok-1", remote.VisitorQuery{Page: 1, Limit: console.VisitorPageSize, Search: "203.0.113.7"}).
		Return(visitorPage(), nil)

	out, err := runCmd(t, env, "visitors", "--search", "203.0.113.7")
	require.NoError(t, err)
	assert.Contains(t, out, "Visitors: 10 total, 4 unique, 2 today")
	assert.Contains(t, out, "Mobile | Chrome | Android")
	assert.Contains(t, out, "Pune, India")
	assert.Contains(t, out, "Page 1 of 1")
}

func TestVisitorDelete(t *testing.T) {
	env, api, store := testEnv(t, "y\n")
	signIn(t, api, store)
	api.On("DeleteVisitor", mock.Anything, "tok-1", "v1").Return(nil)
	api.On("ListVisitors", mock.Anything, "tok-1", remote.VisitorQuery{Page: 1, Limit: console.VisitorPageSize}).
		Return(remote.VisitorPage{Meta: models.ListMeta{Pages: 1}}, nil)

	out, err := runCmd(t, env, "visitor-delete", "--id", "v1")
	require.NoError(t, err)
	assert.Contains(t, out, "Delete this visitor record? [y/N]: ")
	assert.Contains(t, out, "Visitor record v1 deleted.")
	assert.Contains(t, out, "No visitors.")
}

func TestBlock_DefaultReasonRefreshesBothLists(t *testing.T) {
	env, api, store := testEnv(t, "")
	signIn(t, api, store)
	api.On("BlockIP", mock.Anything, "tok-1", "203.0.113.7", console.DefaultBlockReason).Return(nil)
	api.On("ListVisitors", mock.Anything, "tok-1", remote.VisitorQuery{Page: 1, Limit: console.VisitorPageSize}).
		Return(visitorPage(), nil).Once()
	api.On("ListBlocked", mock.Anything, "tok-1").Return(blockedList(), nil).Once()

	out, err := runCmd(t, env, "block", "--ip", "203.0.113.7", "-y")
	require.NoError(t, err)
	assert.Contains(t, out, "Blocked 203.0.113.7.")
	assert.Contains(t, out, "Blocked: 1 total, 1 active")
	assert.Contains(t, out, "active")
}

func TestBlock_CustomReasonPrompted(t *testing.T) {
	env, api, store := testEnv(t, "yes\n")
	signIn(t, api, store)
	api.On("BlockIP", mock.Anything, "tok-1", "198.51.100.9", "scraper").Return(nil)
	api.On("ListVisitors", mock.Anything, "tok-1", mock.Anything).Return(remote.VisitorPage{}, nil)
	api.On("ListBlocked", mock.Anything, "tok-1").Return(remote.BlockedList{}, nil)

	out, err := runCmd(t, env, "block", "--ip", "198.51.100.9", "--reason", "scraper")
	require.NoError(t, err)
	assert.Contains(t, out, "Block IP 198.51.100.9? [y/N]: ")
	assert.Contains(t, out, "No blocked IPs.")
}

func TestBlocked_JSON(t *testing.T) {
	env, api, store := testEnv(t, "")
	signIn(t, api, store)
	api.On("ListBlocked", mock.Anything, "tok-1").Return(blockedList(), nil)

	out, err := runCmd(t, env, "--json", "blocked")
	require.NoError(t, err)

	var got struct {
		Stats models.BlockedStats   `json:"stats"`
		Data  []models.BlockedEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 1, got.Stats.Active)
	require.Len(t, got.Data, 1)
	assert.Equal(t, 12, got.Data[0].RequestCount)
}

func TestBlockToggle_NoConfirmation(t *testing.T) {
	env, api, store := testEnv(t, "")
	signIn(t, api, store)
	lifted := blockedList()
	lifted.Data[0].Active = false
	lifted.Stats.Active = 0
	api.On("ToggleBlock", mock.Anything, "tok-1", "b1").Return(nil)
	api.On("ListBlocked", mock.Anything, "tok-1").Return(lifted, nil)

	out, err := runCmd(t, env, "block-toggle", "--id", "b1")
	require.NoError(t, err)
	assert.NotContains(t, out, "[y/N]")
	assert.Contains(t, out, "lifted")
}

func TestBlockDelete(t *testing.T) {
	env, api, store := testEnv(t, "nope\n")
	signIn(t, api, store)

	_, err := runCmd(t, env, "block-delete", "--id", "b1")
	require.Error(t, err)
	api.AssertNotCalled(t, "DeleteBlock", mock.Anything, mock.Anything, mock.Anything)

	api.On("DeleteBlock", mock.Anything, "tok-1", "b1").Return(nil)
	api.On("ListBlocked", mock.Anything, "tok-1").Return(remote.BlockedList{}, nil)

	out, err := runCmd(t, env, "block-delete", "--id", "b1", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Block entry b1 removed.")
}
