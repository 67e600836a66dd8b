package console

import (
	"context"
	"sync"

	"rawsite/internal/models"
	"rawsite/internal/remote"

	zlog "github.com/rs/zerolog/log"
)

const (
	EmailPageSize   = 15
	VisitorPageSize = 20
)

// Pager tracks a 1-indexed page within TotalPages.
type Pager struct {
	Page       int
	TotalPages int
}

func (p Pager) HasPrev() bool { return p.Page > 1 }
func (p Pager) HasNext() bool { return p.Page < p.TotalPages }

// Next advances one page unless already on the last one.
func (p *Pager) Next() bool {
	if !p.HasNext() {
		return false
	}
	p.Page++
	return true
}

func (p *Pager) Prev() bool {
	if !p.HasPrev() {
		return false
	}
	p.Page--
	return true
}

// sequencer numbers list calls so a response that completes after a newer
// one has been applied is dropped instead of overwriting it.
type sequencer struct {
	issued  uint64
	applied uint64
}

func (s *sequencer) begin() uint64 {
	s.issued++
	return s.issued
}

func (s *sequencer) accept(seq uint64) bool {
	if seq <= s.applied {
		return false
	}
	s.applied = seq
	return true
}

func (s *sequencer) settled() bool {
	return s.applied == s.issued
}

type EmailsView struct {
	Pager
	Filter  models.EmailFilter
	Search  string
	Rows    []models.EmailEntry
	Stats   models.EmailStats
	Loading bool
	Err     error
}

type EmailsTab struct {
	mu  sync.Mutex
	seq sequencer
	v   EmailsView
}

func newEmailsTab() *EmailsTab {
	return &EmailsTab{v: EmailsView{Pager: Pager{Page: 1, TotalPages: 1}, Filter: models.EmailFilterAll}}
}

// Restore sets the query state without fetching, e.g. from URL parameters.
func (t *EmailsTab) Restore(page int, filter models.EmailFilter, search string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if page < 1 {
		page = 1
	}
	if filter == "" {
		filter = models.EmailFilterAll
	}
	t.v.Page, t.v.Filter, t.v.Search = page, filter, search
}

func (t *EmailsTab) View() EmailsView {
	t.mu.Lock()
	defer t.mu.Unlock()
	v := t.v
	v.Rows = append([]models.EmailEntry(nil), t.v.Rows...)
	return v
}

type VisitorsView struct {
	Pager
	Search  string
	Rows    []models.VisitorEvent
	Stats   models.VisitorStats
	Loading bool
	Err     error
}

type VisitorsTab struct {
	mu  sync.Mutex
	seq sequencer
	v   VisitorsView
}

func newVisitorsTab() *VisitorsTab {
	return &VisitorsTab{v: VisitorsView{Pager: Pager{Page: 1, TotalPages: 1}}}
}

func (t *VisitorsTab) Restore(page int, search string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if page < 1 {
		page = 1
	}
	t.v.Page, t.v.Search = page, search
}

func (t *VisitorsTab) View() VisitorsView {
	t.mu.Lock()
	defer t.mu.Unlock()
	v := t.v
	v.Rows = append([]models.VisitorEvent(nil), t.v.Rows...)
	return v
}

type BlockedView struct {
	Rows    []models.BlockedEntry
	Stats   models.BlockedStats
	Loading bool
	Err     error
}

type BlockedTab struct {
	mu  sync.Mutex
	seq sequencer
	v   BlockedView
}

func (t *BlockedTab) View() BlockedView {
	t.mu.Lock()
	defer t.mu.Unlock()
	v := t.v
	v.Rows = append([]models.BlockedEntry(nil), t.v.Rows...)
	return v
}

func (c *Console) loadEmails(ctx context.Context) error {
	token, err := c.bearer()
	if err != nil {
		return err
	}
	t := c.Emails

	t.mu.Lock()
	seq := t.seq.begin()
	t.v.Loading = true
	q := remote.EmailQuery{Page: t.v.Page, Limit: EmailPageSize, Status: t.v.Filter, Search: t.v.Search}
	t.mu.Unlock()

	page, err := c.api.ListEmails(ctx, token, q)

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.seq.accept(seq) {
		zlog.Debug().Uint64("seq", seq).Msg("Discarding stale email list response")
		return nil
	}
	t.v.Loading = !t.seq.settled()
	if err != nil {
		zlog.Error().Err(err).Msg("Fetch emails")
		t.v.Rows, t.v.Stats, t.v.Err = nil, models.EmailStats{}, err
		return err
	}
	t.v.Rows, t.v.Stats, t.v.TotalPages, t.v.Err = page.Data, page.Stats, page.Meta.Pages, nil
	return nil
}

func (c *Console) loadVisitors(ctx context.Context) error {
	token, err := c.bearer()
	if err != nil {
		return err
	}
	t := c.Visitors

	t.mu.Lock()
	seq := t.seq.begin()
	t.v.Loading = true
	q := remote.VisitorQuery{Page: t.v.Page, Limit: VisitorPageSize, Search: t.v.Search}
	t.mu.Unlock()

	page, err := c.api.ListVisitors(ctx, token, q)

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.seq.accept(seq) {
		zlog.Debug().Uint64("seq", seq).Msg("Discarding stale visitor list response")
		return nil
	}
	t.v.Loading = !t.seq.settled()
	if err != nil {
		zlog.Error().Err(err).Msg("Fetch visitors")
		t.v.Rows, t.v.Stats, t.v.Err = nil, models.VisitorStats{}, err
		return err
	}
	t.v.Rows, t.v.Stats, t.v.TotalPages, t.v.Err = page.Data, page.Stats, page.Meta.Pages, nil
	return nil
}

func (c *Console) loadBlocked(ctx context.Context) error {
	token, err := c.bearer()
	if err != nil {
		return err
	}
	t := c.Blocked

	t.mu.Lock()
	seq := t.seq.begin()
	t.v.Loading = true
	t.mu.Unlock()

	list, err := c.api.ListBlocked(ctx, token)

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.seq.accept(seq) {
		zlog.Debug().Uint64("seq", seq).Msg("Discarding stale blocked list response")
		return nil
	}
	t.v.Loading = !t.seq.settled()
	if err != nil {
		zlog.Error().Err(err).Msg("Fetch blocked")
		t.v.Rows, t.v.Stats, t.v.Err = nil, models.BlockedStats{}, err
		return err
	}
	t.v.Rows, t.v.Stats, t.v.Err = list.Data, list.Stats, nil
	return nil
}

// SetEmailFilter changes the status filter, resets to page 1 and re-lists.
func (c *Console) SetEmailFilter(ctx context.Context, f models.EmailFilter) error {
	c.Emails.mu.Lock()
	c.Emails.v.Filter = f
	c.Emails.v.Page = 1
	c.Emails.mu.Unlock()
	return c.loadEmails(ctx)
}

func (c *Console) SetEmailSearch(ctx context.Context, search string) error {
	c.Emails.mu.Lock()
	c.Emails.v.Search = search
	c.Emails.v.Page = 1
	c.Emails.mu.Unlock()
	return c.loadEmails(ctx)
}

func (c *Console) SetVisitorSearch(ctx context.Context, search string) error {
	c.Visitors.mu.Lock()
	c.Visitors.v.Search = search
	c.Visitors.v.Page = 1
	c.Visitors.mu.Unlock()
	return c.loadVisitors(ctx)
}

// NextPage moves tab forward one page and re-lists. It is a no-op on the
// last page.
func (c *Console) NextPage(ctx context.Context, tab Tab) error {
	return c.step(ctx, tab, (*Pager).Next)
}

func (c *Console) PrevPage(ctx context.Context, tab Tab) error {
	return c.step(ctx, tab, (*Pager).Prev)
}

func (c *Console) step(ctx context.Context, tab Tab, move func(*Pager) bool) error {
	var moved bool
	switch tab {
	case TabEmails:
		c.Emails.mu.Lock()
		moved = move(&c.Emails.v.Pager)
		c.Emails.mu.Unlock()
	case TabVisitors:
		c.Visitors.mu.Lock()
		moved = move(&c.Visitors.v.Pager)
		c.Visitors.mu.Unlock()
	default:
		return nil
	}
	if !moved {
		return nil
	}
	return c.Refresh(ctx, tab)
}
