package navigation

import "github.com/fjod/squeeze/internal/domain"

// Entry is one history record. State is opaque metadata carried along with the screen.
type Entry struct {
	Screen domain.Screen      `json:"screen"`
	State  map[string]string `json:"state,omitempty"`
}

// History mirrors the platform back/forward stack. Position -1 is the
// page the session was opened on, which carries no entry.
type History struct {
	entries []Entry
	pos     int
}

func NewHistory() *History {
	return &History{pos: -1}
}

// Push appends e after the current position and drops any forward entries.
func (h *History) Push(e Entry) {
	h.entries = append(h.entries[:h.pos+1], e)
	h.pos++
}

// Replace overwrites the current entry. On the initial page it records a
// first entry instead, so there is always something to replace.
func (h *History) Replace(e Entry) {
	if h.pos < 0 {
		h.Push(e)
		return
	}
	h.entries[h.pos] = e
}

// Back moves one entry back. ok is false when the result is the initial
// page, which has no entry.
func (h *History) Back() (Entry, bool) {
	if h.pos < 0 {
		return Entry{}, false
	}
	h.pos--
	if h.pos < 0 {
		return Entry{}, false
	}
	return h.entries[h.pos], true
}

// Forward re-applies the entry a previous Back moved away from.
func (h *History) Forward() (Entry, bool) {
	if h.pos+1 >= len(h.entries) {
		return Entry{}, false
	}
	h.pos++
	return h.entries[h.pos], true
}

func (h *History) Current() (Entry, bool) {
	if h.pos < 0 {
		return Entry{}, false
	}
	return h.entries[h.pos], true
}

func (h *History) CanGoBack() bool {
	return h.pos >= 0
}

func (h *History) CanGoForward() bool {
	return h.pos+1 < len(h.entries)
}

func (h *History) Position() int {
	return h.pos
}

// Entries returns a copy of the whole stack, including forward entries.
func (h *History) Entries() []Entry {
	out := make([]Entry, len(h.entries))
	copy(out, h.entries)
	return out
}
