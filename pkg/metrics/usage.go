package metrics

import "sync/atomic"

// Outcomes counts valuation request results.
type Outcomes struct {
	submitted atomic.Int64
	rejected  atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	stale     atomic.Int64
}

// OutcomeSnapshot is the serializable view of Outcomes.
type OutcomeSnapshot struct {
	Submitted int64 `json:"submitted"`
	Rejected  int64 `json:"rejected"`
	Succeeded int64 `json:"succeeded"`
	Failed    int64 `json:"failed"`
	Stale     int64 `json:"stale"`
}

// NewOutcomes returns zeroed counters.
func NewOutcomes() *Outcomes {
	return &Outcomes{}
}

func (o *Outcomes) Submitted() { o.submitted.Add(1) }

// Rejected counts submissions refused before any network call.
func (o *Outcomes) Rejected() { o.rejected.Add(1) }

func (o *Outcomes) Succeeded() { o.succeeded.Add(1) }

func (o *Outcomes) Failed() { o.failed.Add(1) }

// Stale counts resolutions dropped because a newer request superseded them.
func (o *Outcomes) Stale() { o.stale.Add(1) }

// Snapshot reads all counters.
func (o *Outcomes) Snapshot() OutcomeSnapshot {
	return OutcomeSnapshot{
		Submitted: o.submitted.Load(),
		Rejected:  o.rejected.Load(),
		Succeeded: o.succeeded.Load(),
		Failed:    o.failed.Load(),
		Stale:     o.stale.Load(),
	}
}
