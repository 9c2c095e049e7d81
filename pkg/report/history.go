package report

import (
	"sort"
	"strings"
	"time"

	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/apperrors"
	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/models"
)

// History stores at most one saved report per calendar date. Saving again on the
// same date replaces the entry. It is not safe for concurrent use on its own; the
// owning manager serialises access.
type History struct {
	entries map[string]*Report
}

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{entries: make(map[string]*Report)}
}

// Save stores r under its formatted date.
func (h *History) Save(r *Report) {
	h.entries[r.Date()] = r
}

// Get returns the report saved under the dd/mm/yyyy key.
func (h *History) Get(date string) (*Report, error) {
	r, ok := h.entries[date]
	if !ok {
		return nil, apperrors.ErrEntryNotFound
	}
	return r, nil
}

// Delete removes the entry saved under date and reports whether it existed.
func (h *History) Delete(date string) bool {
	if _, ok := h.entries[date]; !ok {
		return false
	}
	delete(h.entries, date)
	return true
}

// Len returns the number of saved reports.
func (h *History) Len() int {
	return len(h.entries)
}

// Entries returns saved reports oldest first.
func (h *History) Entries() []*Report {
	out := make([]*Report, 0, len(h.entries))
	for _, r := range h.entries {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt().Before(out[j].CreatedAt())
	})
	return out
}

// String joins every saved report, oldest first, separated by a newline.
func (h *History) String() string {
	entries := h.Entries()
	parts := make([]string, 0, len(entries))
	for _, r := range entries {
		parts = append(parts, r.String())
	}
	return strings.Join(parts, "\n")
}

// ParseDateKey validates a dd/mm/yyyy history key.
func ParseDateKey(date string) (time.Time, error) {
	t, err := time.Parse(models.DateLayout, strings.TrimSpace(date))
	if err != nil {
		return time.Time{}, apperrors.WrapError("report", "ParseDate", apperrors.ErrInvalidDateKey,
			apperrors.ErrInvalidDateKey.Message, err)
	}
	return t, nil
}
