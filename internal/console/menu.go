package console

import (
	"strings"
	"sync"

	"rawsite/internal/models"
)

// RowMenu is the per-row action menu of the visitor table. At most one row's
// menu is open at a time.
type RowMenu struct {
	mu   sync.Mutex
	open string
}

// Toggle opens id's menu, closing any other, or closes it if already open.
func (m *RowMenu) Toggle(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.open == id {
		m.open = ""
		return
	}
	m.open = id
}

// Close is also the outside-click handler.
func (m *RowMenu) Close() {
	m.mu.Lock()
	m.open = ""
	m.mu.Unlock()
}

func (m *RowMenu) IsOpen(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return id != "" && m.open == id
}

func (m *RowMenu) Current() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

// Clipboard strings offered by the menu.

func CopyIP(v models.VisitorEvent) string { return v.IP }

func CopyDevice(v models.VisitorEvent) string {
	return strings.Join([]string{v.Device, v.Browser, v.OS}, " | ")
}

func CopyLocation(v models.VisitorEvent) string {
	return strings.Join([]string{v.City, v.Region, v.Country}, ", ")
}
