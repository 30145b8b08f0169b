package valuation

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultHistoryCapacity bounds the per-session valuation history.
const DefaultHistoryCapacity = 10

// HistoryEntry is one successful valuation kept for the session.
type HistoryEntry struct {
	ID         uuid.UUID `json:"id"`
	VIN        string    `json:"vin"`
	Vehicle    Vehicle   `json:"vehicle"`
	Condition  Condition `json:"condition"`
	ViewModel  ViewModel `json:"viewModel"`
	RecordedAt time.Time `json:"recordedAt"`
}

// AppendOptions control how a new entry is merged into history.
type AppendOptions struct {
	Capacity  int
	DedupeVIN bool
}

func (o AppendOptions) capacity() int {
	if o.Capacity <= 0 {
		return DefaultHistoryCapacity
	}
	return o.Capacity
}

// Prepend places entry first, optionally drops older entries for the same
// VIN, and truncates to capacity. entries must already be newest first.
func Prepend(entries []HistoryEntry, entry HistoryEntry, opts AppendOptions) []HistoryEntry {
	limit := opts.capacity()
	out := make([]HistoryEntry, 0, min(len(entries)+1, limit))
	out = append(out, entry)
	for _, e := range entries {
		if len(out) == limit {
			break
		}
		if opts.DedupeVIN && strings.EqualFold(e.VIN, entry.VIN) {
			continue
		}
		out = append(out, e)
	}
	return out
}
