package valuation

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/drive-value/pkg/lifecycle"
	"github.com/yanqian/drive-value/pkg/metrics"
)

const testVIN = "JF1GR8H6XBL831881"

func TestCoordinatorSubmitSuccess(t *testing.T) {
	client := &stubClient{respond: fixtureResponse}
	history := newStubHistory()
	archive := &stubArchive{}
	c, outcomes := newTestCoordinator(client, history, archive, Config{})

	var seen []lifecycle.Status
	cancel := c.Subscribe(func(s RequestState) { seen = append(seen, s.Status) })
	defer cancel()

	state := c.Submit(context.Background(), Parameters{VIN: " jf1gr8h6xbl831881 "})
	require.Equal(t, lifecycle.StatusSucceeded, state.Status)
	require.NotNil(t, state.Value)
	require.Equal(t, "Subaru", state.Value.Vehicle.Make)
	require.Equal(t, []lifecycle.Status{lifecycle.StatusPending, lifecycle.StatusSucceeded}, seen)

	require.Len(t, client.requests(), 1)
	require.Equal(t, Request{VIN: testVIN, Condition: "good"}, client.requests()[0])

	entries, err := c.History(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, testVIN, entries[0].VIN)
	require.Equal(t, ConditionGood, entries[0].Condition)
	require.Len(t, archive.keys, 1)
	require.Contains(t, archive.keys[0], "reports/"+testVIN+"/")

	require.Equal(t, metrics.OutcomeSnapshot{Submitted: 1, Succeeded: 1}, outcomes.Snapshot())
}

func TestCoordinatorRejectsInvalidVINWithoutNetwork(t *testing.T) {
	client := &stubClient{respond: fixtureResponse}
	c, outcomes := newTestCoordinator(client, newStubHistory(), nil, Config{})

	var seen []lifecycle.Status
	cancel := c.Subscribe(func(s RequestState) { seen = append(seen, s.Status) })
	defer cancel()

	state := c.Submit(context.Background(), Parameters{VIN: "ABC123"})
	require.Equal(t, lifecycle.StatusFailed, state.Status)
	require.Equal(t, "VIN must be exactly 17 characters", state.Reason)
	require.Empty(t, client.requests())
	require.Equal(t, []lifecycle.Status{lifecycle.StatusFailed}, seen)
	require.Equal(t, int64(1), outcomes.Snapshot().Rejected)
}

func TestCoordinatorFailureReasons(t *testing.T) {
	cases := []struct {
		name    string
		respond func(ctx context.Context, req Request) ([]byte, error)
		timeout time.Duration
		reason  string
	}{
		{
			name: "status",
			respond: func(context.Context, Request) ([]byte, error) {
				return nil, &StatusError{StatusCode: 502, Body: "bad gateway"}
			},
			reason: "API request failed: 502",
		},
		{
			name: "timeout",
			respond: func(ctx context.Context, _ Request) ([]byte, error) {
				<-ctx.Done()
				return nil, fmt.Errorf("call valuation api: %w", ctx.Err())
			},
			timeout: 10 * time.Millisecond,
			reason:  ReasonTimeout,
		},
		{
			name: "transport",
			respond: func(context.Context, Request) ([]byte, error) {
				return nil, fmt.Errorf("dial tcp: connection refused")
			},
			reason: ReasonRequestFailed,
		},
		{
			name: "no analysis",
			respond: func(context.Context, Request) ([]byte, error) {
				return []byte(`{"vehicle":{"make":"Subaru"}}`), nil
			},
			reason: ReasonNoAnalysis,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			history := newStubHistory()
			c, outcomes := newTestCoordinator(&stubClient{respond: tc.respond}, history, nil, Config{Timeout: tc.timeout})

			state := c.Submit(context.Background(), Parameters{VIN: testVIN})
			require.Equal(t, lifecycle.StatusFailed, state.Status)
			require.Equal(t, tc.reason, state.Reason)
			require.Nil(t, state.Value)
			require.Equal(t, int64(1), outcomes.Snapshot().Failed)

			entries, err := c.History(context.Background())
			require.NoError(t, err)
			require.Empty(t, entries)
		})
	}
}

func TestCoordinatorClearDiscardsInFlightResult(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	client := &stubClient{respond: func(ctx context.Context, req Request) ([]byte, error) {
		close(started)
		<-release
		return fixtureResponse(ctx, req)
	}}
	c, outcomes := newTestCoordinator(client, newStubHistory(), nil, Config{})

	done := make(chan RequestState, 1)
	go func() { done <- c.Submit(context.Background(), Parameters{VIN: testVIN}) }()

	<-started
	require.Equal(t, lifecycle.StatusPending, c.State().Status)
	c.Clear()
	close(release)

	state := <-done
	require.Equal(t, lifecycle.StatusIdle, state.Status)
	require.Equal(t, lifecycle.StatusIdle, c.State().Status)
	entries, err := c.History(context.Background())
	require.NoError(t, err)
	require.Empty(t, entries)
	require.Equal(t, int64(1), outcomes.Snapshot().Stale)
}

func TestCoordinatorLatestSubmissionWins(t *testing.T) {
	const otherVIN = "1HGCM82633A004352"
	firstStarted := make(chan struct{})
	releaseFirst := make(chan struct{})
	client := &stubClient{respond: func(ctx context.Context, req Request) ([]byte, error) {
		if req.VIN == testVIN {
			close(firstStarted)
			<-releaseFirst
		}
		return fixtureResponse(ctx, req)
	}}
	c, _ := newTestCoordinator(client, newStubHistory(), nil, Config{})

	done := make(chan RequestState, 1)
	go func() { done <- c.Submit(context.Background(), Parameters{VIN: testVIN}) }()
	<-firstStarted

	second := c.Submit(context.Background(), Parameters{VIN: otherVIN})
	require.Equal(t, lifecycle.StatusSucceeded, second.Status)
	close(releaseFirst)
	<-done

	final := c.State()
	require.Equal(t, lifecycle.StatusSucceeded, final.Status)
	require.Equal(t, otherVIN, final.Value.Vehicle.VIN)
	require.Equal(t, second.Seq, final.Seq)
}

func TestCoordinatorHistoryCapacity(t *testing.T) {
	client := &stubClient{respond: fixtureResponse}
	c, _ := newTestCoordinator(client, newStubHistory(), nil, Config{})

	for i := 0; i < 12; i++ {
		vin := fmt.Sprintf("JF1GR8H6XBL8318%02d", i)
		state := c.Submit(context.Background(), Parameters{VIN: vin})
		require.Equal(t, lifecycle.StatusSucceeded, state.Status)
	}

	entries, err := c.History(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, DefaultHistoryCapacity)
	require.Equal(t, "JF1GR8H6XBL831811", entries[0].VIN)
	require.Equal(t, "JF1GR8H6XBL831802", entries[len(entries)-1].VIN)

	require.NoError(t, c.Reset(context.Background()))
	entries, err = c.History(context.Background())
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestPrependDedupesVIN(t *testing.T) {
	entries := []HistoryEntry{{VIN: "B"}, {VIN: "A"}, {VIN: "C"}}
	out := Prepend(entries, HistoryEntry{VIN: "a"}, AppendOptions{Capacity: 3, DedupeVIN: true})
	require.Equal(t, []string{"a", "B", "C"}, vins(out))

	out = Prepend(entries, HistoryEntry{VIN: "D"}, AppendOptions{Capacity: 2})
	require.Equal(t, []string{"D", "B"}, vins(out))
}

func vins(entries []HistoryEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.VIN)
	}
	return out
}

func newTestCoordinator(client Client, history HistoryStore, archive Archive, cfg Config) (*Coordinator, *metrics.Outcomes) {
	outcomes := metrics.NewOutcomes()
	deps := Dependencies{Client: client, History: history, Outcomes: outcomes}
	if archive != nil {
		deps.Archive = archive
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewCoordinator("session-1", cfg, deps, logger), outcomes
}

func fixtureResponse(_ context.Context, req Request) ([]byte, error) {
	return []byte(fmt.Sprintf(`{
  "vehicle": {"year": 2011, "make": "Subaru", "model": "Impreza", "vin": %q},
  "ai_valuation": {"market_values": {"private_party_value": {"min": 18000, "max": 22000, "suggested_ai_price": 20000}}}
}`, req.VIN)), nil
}

type stubClient struct {
	mu      sync.Mutex
	calls   []Request
	respond func(ctx context.Context, req Request) ([]byte, error)
}

func (s *stubClient) Valuate(ctx context.Context, req Request) ([]byte, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	s.mu.Unlock()
	return s.respond(ctx, req)
}

func (s *stubClient) requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.calls...)
}

type stubHistory struct {
	mu      sync.Mutex
	entries map[string][]HistoryEntry
}

func newStubHistory() *stubHistory {
	return &stubHistory{entries: make(map[string][]HistoryEntry)}
}

func (s *stubHistory) Append(_ context.Context, owner string, entry HistoryEntry, opts AppendOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[owner] = Prepend(s.entries[owner], entry, opts)
	return nil
}

func (s *stubHistory) List(_ context.Context, owner string, limit int) ([]HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.entries[owner]
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return append([]HistoryEntry{}, entries...), nil
}

func (s *stubHistory) Clear(_ context.Context, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, owner)
	return nil
}

type stubArchive struct {
	keys []string
}

func (s *stubArchive) Save(_ context.Context, key string, _ []byte) error {
	s.keys = append(s.keys, key)
	return nil
}
