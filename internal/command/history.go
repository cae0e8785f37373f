package command

import "sync"

// DefaultHistorySize is the number of entries kept by NewHistory.
const DefaultHistorySize = 100

// History is a bounded list of submitted command lines with a navigation
// cursor. Navigation never changes the entries.
type History struct {
	mu      sync.Mutex
	entries []string
	limit   int
	cursor  int // len(entries) means "past the newest entry"
}

// NewHistory creates a history holding at most limit entries.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistorySize
	}
	return &History{limit: limit}
}

// Add appends a line unless it repeats the previous entry, and resets the cursor.
func (h *History) Add(line string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if line != "" && (len(h.entries) == 0 || h.entries[len(h.entries)-1] != line) {
		h.entries = append(h.entries, line)
		if len(h.entries) > h.limit {
			h.entries = append([]string(nil), h.entries[len(h.entries)-h.limit:]...)
		}
	}
	h.cursor = len(h.entries)
}

// Prev moves the cursor one entry back and returns it. At the oldest entry
// it keeps returning that entry; with no entries it returns false.
func (h *History) Prev() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.entries) == 0 {
		return "", false
	}
	if h.cursor > 0 {
		h.cursor--
	}
	return h.entries[h.cursor], true
}

// Next moves the cursor one entry forward. Moving past the newest entry
// returns an empty line and false.
func (h *History) Next() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cursor < len(h.entries) {
		h.cursor++
	}
	if h.cursor >= len(h.entries) {
		return "", false
	}
	return h.entries[h.cursor], true
}

// Reset moves the cursor past the newest entry.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cursor = len(h.entries)
}

// Entries returns a copy of the entries, oldest first.
func (h *History) Entries() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.entries...)
}
