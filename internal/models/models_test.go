package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEmailStatus(t *testing.T) {
	for _, s := range []string{"new", "contacted", "archived"} {
		st, err := ParseEmailStatus(s)
		require.NoError(t, err)
		assert.Equal(t, s, string(st))
	}

	_, err := ParseEmailStatus("spam")
	assert.Error(t, err)
}

func TestParseEmailFilter(t *testing.T) {
	f, err := ParseEmailFilter("")
	require.NoError(t, err)
	assert.Equal(t, EmailFilterAll, f)

	f, err = ParseEmailFilter("contacted")
	require.NoError(t, err)
	assert.Equal(t, EmailFilter("contacted"), f)

	_, err = ParseEmailFilter("deleted")
	assert.Error(t, err)
}

func TestVisitorEventLocation(t *testing.T) {
	assert.Equal(t, "Pune, IN", VisitorEvent{City: "Pune", Country: "IN"}.Location())
	assert.Equal(t, "IN", VisitorEvent{City: "Unknown", Country: "IN"}.Location())
	assert.Equal(t, "Unknown", VisitorEvent{}.Location())
}

func TestTimeAgo(t *testing.T) {
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{0, "just now"},
		{59 * time.Second, "just now"},
		{time.Minute, "1m ago"},
		{59 * time.Minute, "59m ago"},
		{time.Hour, "1h ago"},
		{23*time.Hour + 59*time.Minute, "23h ago"},
		{24 * time.Hour, "1d ago"},
		{73 * time.Hour, "3d ago"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TimeAgo(now, now.Add(-tt.ago)), tt.ago.String())
	}
}

func TestSupporterDisplayName(t *testing.T) {
	assert.Equal(t, AnonymousSupporter, Supporter{}.DisplayName())
	assert.Equal(t, "Ada", Supporter{Name: "Ada"}.DisplayName())
}
