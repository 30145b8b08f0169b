// Package lifecycle models the request state machine shared by every
// outbound call a workspace makes: idle, pending, then exactly one of
// succeeded or failed.
package lifecycle

import (
	"sync"
	"time"

	"github.com/yanqian/drive-value/pkg/util"
)

// Status enumerates the request lifecycle states.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status is succeeded or failed.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// State is an immutable snapshot of a tracked request.
type State[T any] struct {
	Status    Status    `json:"status"`
	Value     *T        `json:"value,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Err       error     `json:"-"`
	Seq       uint64    `json:"seq"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Tracker serializes state transitions and notifies subscribers after each
// one. Every Begin hands out a sequence token; a resolution carrying an
// older token is stale and dropped, so the most recent request always wins.
//
// Listeners run while the dispatch lock is held and must not call back into
// methods that dispatch (Begin, Resolve, Reject, Fail, Reset).
type Tracker[T any] struct {
	dispatchMu sync.Mutex

	mu        sync.RWMutex
	state     State[T]
	seq       uint64
	listeners map[int]func(State[T])
	nextID    int
	now       func() time.Time
}

// NewTracker returns a tracker in the idle state.
func NewTracker[T any]() *Tracker[T] {
	t := &Tracker[T]{
		listeners: make(map[int]func(State[T])),
		now:       util.NowUTC,
	}
	t.state = State[T]{Status: StatusIdle, UpdatedAt: t.now()}
	return t
}

// Snapshot returns the current state.
func (t *Tracker[T]) Snapshot() State[T] {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// Subscribe registers fn for every subsequent transition and returns a
// function that removes it.
func (t *Tracker[T]) Subscribe(fn func(State[T])) func() {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.listeners[id] = fn
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.listeners, id)
			t.mu.Unlock()
		})
	}
}

// Begin moves the tracker to pending and returns the token identifying
// this request.
func (t *Tracker[T]) Begin() uint64 {
	var seq uint64
	t.dispatch(func() bool {
		t.seq++
		seq = t.seq
		t.state = State[T]{Status: StatusPending, Seq: seq, UpdatedAt: t.now()}
		return true
	})
	return seq
}

// Resolve records a successful result for seq. It reports false when seq
// is stale and the result was discarded.
func (t *Tracker[T]) Resolve(seq uint64, value T) bool {
	return t.dispatch(func() bool {
		if seq != t.seq || t.state.Status != StatusPending {
			return false
		}
		v := value
		t.state = State[T]{Status: StatusSucceeded, Value: &v, Seq: seq, UpdatedAt: t.now()}
		return true
	})
}

// Reject records a failure for seq. It reports false when seq is stale.
func (t *Tracker[T]) Reject(seq uint64, reason string, err error) bool {
	return t.dispatch(func() bool {
		if seq != t.seq || t.state.Status != StatusPending {
			return false
		}
		t.state = State[T]{Status: StatusFailed, Reason: reason, Err: err, Seq: seq, UpdatedAt: t.now()}
		return true
	})
}

// Fail replaces the state with a failure that never went through pending,
// used for input rejected before any call is made.
func (t *Tracker[T]) Fail(reason string, err error) uint64 {
	var seq uint64
	t.dispatch(func() bool {
		t.seq++
		seq = t.seq
		t.state = State[T]{Status: StatusFailed, Reason: reason, Err: err, Seq: seq, UpdatedAt: t.now()}
		return true
	})
	return seq
}

// Reset returns to idle. Requests still in flight become stale.
func (t *Tracker[T]) Reset() {
	t.dispatch(func() bool {
		t.seq++
		t.state = State[T]{Status: StatusIdle, Seq: t.seq, UpdatedAt: t.now()}
		return true
	})
}

func (t *Tracker[T]) dispatch(apply func() bool) bool {
	t.dispatchMu.Lock()
	defer t.dispatchMu.Unlock()

	t.mu.Lock()
	changed := apply()
	snapshot := t.state
	listeners := make([]func(State[T]), 0, len(t.listeners))
	for _, fn := range t.listeners {
		listeners = append(listeners, fn)
	}
	t.mu.Unlock()

	if !changed {
		return false
	}
	for _, fn := range listeners {
		fn(snapshot)
	}
	return true
}
