package valuation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/yanqian/drive-value/pkg/errors"
	"github.com/yanqian/drive-value/pkg/lifecycle"
	"github.com/yanqian/drive-value/pkg/metrics"
	"github.com/yanqian/drive-value/pkg/util"
)

// DefaultTimeout bounds a single valuation call.
const DefaultTimeout = 30 * time.Second

// RequestState is the observable lifecycle of the latest valuation request.
type RequestState = lifecycle.State[ViewModel]

// Client calls the remote valuation API and returns the raw response body.
type Client interface {
	Valuate(ctx context.Context, req Request) ([]byte, error)
}

// HistoryStore persists per-owner valuation history, newest first.
type HistoryStore interface {
	Append(ctx context.Context, owner string, entry HistoryEntry, opts AppendOptions) error
	List(ctx context.Context, owner string, limit int) ([]HistoryEntry, error)
	Clear(ctx context.Context, owner string) error
}

// Archive keeps raw valuation responses.
type Archive interface {
	Save(ctx context.Context, key string, raw []byte) error
}

// Config tunes a Coordinator.
type Config struct {
	Timeout         time.Duration
	HistoryCapacity int
	DedupeVIN       bool
}

// Dependencies are shared by every coordinator of the process.
type Dependencies struct {
	Client   Client
	History  HistoryStore
	Archive  Archive
	Outcomes *metrics.Outcomes
}

// Coordinator owns the valuation request state of one session. The most
// recent Submit always wins: results of superseded or cleared requests are
// dropped.
type Coordinator struct {
	cfg     Config
	owner   string
	deps    Dependencies
	tracker *lifecycle.Tracker[ViewModel]
	logger  *slog.Logger
	now     func() time.Time
}

// NewCoordinator builds the coordinator for owner.
func NewCoordinator(owner string, cfg Config, deps Dependencies, logger *slog.Logger) *Coordinator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.HistoryCapacity <= 0 {
		cfg.HistoryCapacity = DefaultHistoryCapacity
	}
	if deps.Outcomes == nil {
		deps.Outcomes = metrics.NewOutcomes()
	}
	return &Coordinator{
		cfg:     cfg,
		owner:   owner,
		deps:    deps,
		tracker: lifecycle.NewTracker[ViewModel](),
		logger:  logger.With("component", "valuation.coordinator"),
		now:     util.NowUTC,
	}
}

// Submit validates params, calls the API and returns the state once the
// request settled. Invalid parameters fail without any network call.
func (c *Coordinator) Submit(ctx context.Context, params Parameters) RequestState {
	c.deps.Outcomes.Submitted()
	params = params.Normalize()
	if err := params.Validate(); err != nil {
		c.deps.Outcomes.Rejected()
		c.tracker.Fail(apperrors.MessageOf(err), err)
		return c.tracker.Snapshot()
	}

	req := params.Request()
	seq := c.tracker.Begin()
	c.logger.Info("valuation requested", "vin", req.VIN, "condition", req.Condition, "seq", seq)

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	raw, err := c.deps.Client.Valuate(callCtx, req)
	cancel()
	if err != nil {
		c.reject(seq, failureReason(err), apperrors.Wrap(CodeNetwork, "valuation request failed", err))
		return c.tracker.Snapshot()
	}
	if !HasAnalysis(raw) {
		c.reject(seq, ReasonNoAnalysis, apperrors.Wrap(CodeInvalidInput, ReasonNoAnalysis, nil))
		return c.tracker.Snapshot()
	}
	vm, err := Build(raw)
	if err != nil {
		c.reject(seq, apperrors.MessageOf(err), err)
		return c.tracker.Snapshot()
	}
	if !c.tracker.Resolve(seq, vm) {
		c.deps.Outcomes.Stale()
		c.logger.Info("valuation result discarded", "vin", req.VIN, "seq", seq)
		return c.tracker.Snapshot()
	}
	c.deps.Outcomes.Succeeded()
	c.record(context.WithoutCancel(ctx), params.Condition, req.VIN, vm, raw)
	return c.tracker.Snapshot()
}

func (c *Coordinator) reject(seq uint64, reason string, err error) {
	if !c.tracker.Reject(seq, reason, err) {
		c.deps.Outcomes.Stale()
		return
	}
	c.deps.Outcomes.Failed()
	c.logger.Warn("valuation failed", "seq", seq, "reason", reason, "error", err)
}

func (c *Coordinator) record(ctx context.Context, condition Condition, vin string, vm ViewModel, raw []byte) {
	entry := HistoryEntry{
		ID:         uuid.New(),
		VIN:        vin,
		Vehicle:    vm.Vehicle,
		Condition:  condition,
		ViewModel:  vm,
		RecordedAt: c.now(),
	}
	if c.deps.History != nil {
		opts := AppendOptions{Capacity: c.cfg.HistoryCapacity, DedupeVIN: c.cfg.DedupeVIN}
		if err := c.deps.History.Append(ctx, c.owner, entry, opts); err != nil {
			c.logger.Warn("append valuation history failed", "vin", vin, "error", err)
		}
	}
	if c.deps.Archive != nil {
		if err := c.deps.Archive.Save(ctx, ArchiveKey(entry), raw); err != nil {
			c.logger.Warn("archive valuation report failed", "vin", vin, "error", err)
		}
	}
}

// ArchiveKey is the object key a raw report is stored under.
func ArchiveKey(entry HistoryEntry) string {
	return fmt.Sprintf("reports/%s/%s-%s.json", entry.VIN, entry.RecordedAt.Format("20060102T150405Z"), entry.ID)
}

// Clear returns to idle. A request still in flight is discarded when it
// settles.
func (c *Coordinator) Clear() {
	c.tracker.Reset()
}

// State returns the current request state.
func (c *Coordinator) State() RequestState {
	return c.tracker.Snapshot()
}

// Subscribe registers fn for every state transition.
func (c *Coordinator) Subscribe(fn func(RequestState)) func() {
	return c.tracker.Subscribe(fn)
}

// History lists the session's valuations, newest first.
func (c *Coordinator) History(ctx context.Context) ([]HistoryEntry, error) {
	if c.deps.History == nil {
		return []HistoryEntry{}, nil
	}
	entries, err := c.deps.History.List(ctx, c.owner, c.cfg.HistoryCapacity)
	if err != nil {
		return nil, apperrors.Wrap("history_error", "failed to load valuation history", err)
	}
	return entries, nil
}

// ClearHistory removes the session's valuation history.
func (c *Coordinator) ClearHistory(ctx context.Context) error {
	if c.deps.History == nil {
		return nil
	}
	if err := c.deps.History.Clear(ctx, c.owner); err != nil {
		return apperrors.Wrap("history_error", "failed to clear valuation history", err)
	}
	return nil
}

// Reset drops the request state and history, used on logout.
func (c *Coordinator) Reset(ctx context.Context) error {
	c.Clear()
	return c.ClearHistory(ctx)
}

func failureReason(err error) string {
	var statusErr *StatusError
	switch {
	case errors.As(err, &statusErr):
		return statusErr.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	default:
		return ReasonRequestFailed
	}
}
