package tracker

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradelog/journal"
)

func ptr(f float64) *float64 { return &f }

// stepClock returns a clock that advances one minute per call.
func stepClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	cur := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		cur = cur.Add(time.Minute)
		return cur
	}
}

func newTestTracker(t *testing.T) (*Tracker, *journal.SQLite) {
	t.Helper()

	store, err := journal.NewSQLite(filepath.Join(t.TempDir(), "tracker.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return New(store, WithClock(stepClock(start))), store
}

func newSession(t *testing.T, tr *Tracker, userID, name string, capital float64) journal.SessionRecord {
	t.Helper()
	s, err := tr.CreateSession(context.Background(), userID, journal.SessionInput{Name: name, InitialCapital: ptr(capital)})
	require.NoError(t, err)
	return s
}

func addTrade(t *testing.T, tr *Tracker, userID, sessionID string, margin, pl float64) journal.TradeRecord {
	t.Helper()
	rec, err := tr.AddTrade(context.Background(), userID, sessionID, journal.TradeInput{
		Margin:     ptr(margin),
		ProfitLoss: ptr(pl),
	})
	require.NoError(t, err)
	return rec
}

func TestCreateSession(t *testing.T) {
	t.Parallel()
	tr, _ := newTestTracker(t)
	ctx := context.Background()

	s := newSession(t, tr, "u1", "  BTC 5 Minute ", 1000)
	assert.Equal(t, "BTC 5 Minute", s.Name)
	assert.Equal(t, 1000.0, s.CurrentCapital)

	_, err := tr.CreateSession(ctx, "u1", journal.SessionInput{Name: "", InitialCapital: ptr(10)})
	assert.ErrorIs(t, err, journal.ErrInvalidSession)

	list, err := tr.ListSessions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, s.ID, list[0].ID)
}

func TestAddTradeWritesCapitalThrough(t *testing.T) {
	t.Parallel()
	tr, store := newTestTracker(t)
	ctx := context.Background()

	s := newSession(t, tr, "u1", "Gold", 1000)
	addTrade(t, tr, "u1", s.ID, 100, 50)
	addTrade(t, tr, "u1", s.ID, 200, -20)

	got, err := store.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.InDelta(t, 1030.0, got.CurrentCapital, 1e-9)
	assert.Equal(t, 1000.0, got.InitialCapital)
}

func TestDeleteTradeRestoresCapital(t *testing.T) {
	t.Parallel()
	tr, store := newTestTracker(t)
	ctx := context.Background()

	s := newSession(t, tr, "u1", "Gold", 1000)
	keep := addTrade(t, tr, "u1", s.ID, 100, 50)
	drop := addTrade(t, tr, "u1", s.ID, 100, -75)

	require.NoError(t, tr.DeleteTrade(ctx, "u1", drop.ID))

	got, err := store.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.InDelta(t, 1050.0, got.CurrentCapital, 1e-9)

	trades, err := tr.ListTrades(ctx, "u1", s.ID)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, keep.ID, trades[0].ID)

	err = tr.DeleteTrade(ctx, "u1", drop.ID)
	assert.ErrorIs(t, err, journal.ErrNotFound)
}

func TestAddTradeRejectsInvalidInput(t *testing.T) {
	t.Parallel()
	tr, _ := newTestTracker(t)
	ctx := context.Background()

	s := newSession(t, tr, "u1", "Gold", 1000)

	_, err := tr.AddTrade(ctx, "u1", s.ID, journal.TradeInput{ProfitLoss: ptr(10)})
	assert.ErrorIs(t, err, journal.ErrInvalidTradeInput)

	_, err = tr.AddTrade(ctx, "u1", s.ID, journal.TradeInput{Margin: ptr(100), ProfitLoss: ptr(10), ROI: ptr(50)})
	assert.ErrorIs(t, err, journal.ErrInvalidTradeInput)

	trades, err := tr.ListTrades(ctx, "u1", s.ID)
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestOwnershipIsEnforced(t *testing.T) {
	t.Parallel()
	tr, _ := newTestTracker(t)
	ctx := context.Background()

	s := newSession(t, tr, "alice", "Gold", 1000)
	trade := addTrade(t, tr, "alice", s.ID, 100, 10)

	_, err := tr.GetSession(ctx, "bob", s.ID)
	assert.ErrorIs(t, err, journal.ErrNotFound)

	_, err = tr.AddTrade(ctx, "bob", s.ID, journal.TradeInput{Margin: ptr(1), ProfitLoss: ptr(1)})
	assert.ErrorIs(t, err, journal.ErrNotFound)

	assert.ErrorIs(t, tr.DeleteTrade(ctx, "bob", trade.ID), journal.ErrNotFound)
	assert.ErrorIs(t, tr.DeleteSession(ctx, "bob", s.ID), journal.ErrNotFound)

	_, err = tr.Stats(ctx, "bob", s.ID)
	assert.ErrorIs(t, err, journal.ErrNotFound)

	// still intact for the owner
	st, err := tr.Stats(ctx, "alice", s.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, st.TotalTrades)
}

func TestStatsEndToEnd(t *testing.T) {
	t.Parallel()
	tr, _ := newTestTracker(t)
	ctx := context.Background()

	s := newSession(t, tr, "u1", "Mixed", 1000)
	addTrade(t, tr, "u1", s.ID, 100, 50)
	addTrade(t, tr, "u1", s.ID, 200, -50)

	st, err := tr.Stats(ctx, "u1", s.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, st.TotalTrades)
	assert.Equal(t, 0.0, st.NetProfitLoss)
	assert.Equal(t, 1000.0, st.CurrentCapital)
	assert.Equal(t, 50.0, st.WinRate)
	assert.Equal(t, 300.0, st.TotalMarginUsed)

	again, err := tr.Stats(ctx, "u1", s.ID)
	require.NoError(t, err)
	assert.Equal(t, st, again)

	addTrade(t, tr, "u1", s.ID, 100, 25)
	after, err := tr.Stats(ctx, "u1", s.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, after.TotalTrades)
	assert.Equal(t, 1025.0, after.CurrentCapital)
}

func TestStatsRepairsDriftedCapital(t *testing.T) {
	t.Parallel()
	tr, store := newTestTracker(t)
	ctx := context.Background()

	s := newSession(t, tr, "u1", "Drift", 500)
	addTrade(t, tr, "u1", s.ID, 100, 40)

	// a fresh tracker has nothing cached for the session
	tr2 := New(store)
	require.NoError(t, store.UpdateSessionCapital(ctx, s.ID, 1, time.Now()))

	st, err := tr2.Stats(ctx, "u1", s.ID)
	require.NoError(t, err)
	assert.Equal(t, 540.0, st.CurrentCapital)

	got, err := store.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 540.0, got.CurrentCapital)
}

func TestStatsEmptySession(t *testing.T) {
	t.Parallel()
	tr, _ := newTestTracker(t)

	s := newSession(t, tr, "u1", "Empty", 0)
	st, err := tr.Stats(context.Background(), "u1", s.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, st.TotalTrades)
	assert.Equal(t, 0.0, st.WinRate)
	assert.Equal(t, 0.0, st.NetProfitLossPercentage)
}

func TestDashboard(t *testing.T) {
	t.Parallel()
	tr, _ := newTestTracker(t)
	ctx := context.Background()

	s := newSession(t, tr, "u1", "Charts", 1000)
	addTrade(t, tr, "u1", s.ID, 100, 50)
	addTrade(t, tr, "u1", s.ID, 100, -20)

	d, err := tr.Dashboard(ctx, "u1", s.ID)
	require.NoError(t, err)
	require.Len(t, d.Capital, 2)
	assert.Equal(t, 1050.0, d.Capital[0].Capital)
	assert.Equal(t, 1030.0, d.Capital[1].Capital)
	assert.Equal(t, 50.0, d.Distribution.Profit)
	assert.Equal(t, 20.0, d.Distribution.Loss)
	require.Len(t, d.Days, 1)
	assert.Equal(t, "2024-03-01", d.Days[0].Date)
	assert.Equal(t, 2, d.Days[0].Trades)
	require.Len(t, d.Timeline, 2)
	assert.Equal(t, 100.0, d.Timeline[0].WinRate)
	assert.Equal(t, 50.0, d.Timeline[1].WinRate)

	addTrade(t, tr, "u1", s.ID, 100, 5)
	d, err = tr.Dashboard(ctx, "u1", s.ID)
	require.NoError(t, err)
	assert.Len(t, d.Capital, 3)
}

func TestDeleteSessionRemovesTrades(t *testing.T) {
	t.Parallel()
	tr, store := newTestTracker(t)
	ctx := context.Background()

	s := newSession(t, tr, "u1", "Gone", 1000)
	trade := addTrade(t, tr, "u1", s.ID, 100, 10)

	require.NoError(t, tr.DeleteSession(ctx, "u1", s.ID))

	_, err := tr.GetSession(ctx, "u1", s.ID)
	assert.ErrorIs(t, err, journal.ErrNotFound)
	_, err = store.GetTrade(ctx, trade.ID)
	assert.ErrorIs(t, err, journal.ErrNotFound)
}

// failingStore fails capital updates so the write-through error path can
// be observed.
type failingStore struct {
	*journal.SQLite
}

func (f failingStore) UpdateSessionCapital(ctx context.Context, id string, capital float64, at time.Time) error {
	return &journal.StoreError{Op: "update session capital", Kind: journal.WriteError, Err: errors.New("disk full")}
}

func TestAddTradeSurfacesStoreWriteError(t *testing.T) {
	t.Parallel()
	_, store := newTestTracker(t)
	tr := New(failingStore{store})
	ctx := context.Background()

	s := newSession(t, tr, "u1", "Broken", 1000)
	_, err := tr.AddTrade(ctx, "u1", s.ID, journal.TradeInput{Margin: ptr(100), ProfitLoss: ptr(10)})
	require.Error(t, err)
	assert.ErrorIs(t, err, journal.ErrStoreWrite)
	assert.Contains(t, err.Error(), "disk full")
}

// interleavingStore runs hook inside the first GetSession call, letting a
// second write land between a caller's session read and its trade write.
type interleavingStore struct {
	*journal.SQLite
	hook func()
}

func (s *interleavingStore) GetSession(ctx context.Context, id string) (journal.SessionRecord, error) {
	if h := s.hook; h != nil {
		s.hook = nil
		h()
	}
	return s.SQLite.GetSession(ctx, id)
}

func TestAddTradeWriteThroughUsesFreshSessionRow(t *testing.T) {
	t.Parallel()
	_, sqlite := newTestTracker(t)
	store := &interleavingStore{SQLite: sqlite}
	tr := New(store, WithClock(stepClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))))
	ctx := context.Background()

	s := newSession(t, tr, "u1", "Interleaved", 1000)
	store.hook = func() { addTrade(t, tr, "u1", s.ID, 100, 50) }

	// the session snapshot read here still says 1000; after both trades
	// the recomputed capital is 1000 again
	addTrade(t, tr, "u1", s.ID, 100, -50)

	got, err := sqlite.GetSession(ctx, s.ID)
	require.NoError(t, err)
	trades, err := sqlite.ListTrades(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, trades, 2)

	want := got.InitialCapital
	for _, trade := range trades {
		want += trade.ProfitLoss
	}
	assert.Equal(t, want, got.CurrentCapital)
	assert.Equal(t, 1000.0, got.CurrentCapital)
}

func TestDeleteTradeWriteThroughUsesFreshSessionRow(t *testing.T) {
	t.Parallel()
	_, sqlite := newTestTracker(t)
	store := &interleavingStore{SQLite: sqlite}
	tr := New(store, WithClock(stepClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))))
	ctx := context.Background()

	s := newSession(t, tr, "u1", "Interleaved", 1000)
	gone := addTrade(t, tr, "u1", s.ID, 100, 30)

	store.hook = func() { addTrade(t, tr, "u1", s.ID, 100, -30) }
	require.NoError(t, tr.DeleteTrade(ctx, "u1", gone.ID))

	got, err := sqlite.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 970.0, got.CurrentCapital)
}

func TestStatsSeeWritesFromAnotherTracker(t *testing.T) {
	t.Parallel()
	_, store := newTestTracker(t)
	ctx := context.Background()

	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	server := New(store, WithClock(stepClock(start)))
	cli := New(store, WithClock(stepClock(start.Add(time.Hour))))

	s := newSession(t, server, "u1", "Shared", 1000)

	st, err := server.Stats(ctx, "u1", s.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, st.TotalTrades)
	d, err := server.Dashboard(ctx, "u1", s.ID)
	require.NoError(t, err)
	assert.Empty(t, d.Capital)

	addTrade(t, cli, "u1", s.ID, 100, 50)

	st, err = server.Stats(ctx, "u1", s.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, st.TotalTrades)
	assert.Equal(t, 1050.0, st.CurrentCapital)
	d, err = server.Dashboard(ctx, "u1", s.ID)
	require.NoError(t, err)
	assert.Len(t, d.Capital, 1)

	// a break-even trade leaves the capital alone but still changes the row
	addTrade(t, cli, "u1", s.ID, 100, 0)

	st, err = server.Stats(ctx, "u1", s.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, st.TotalTrades)
	assert.Equal(t, 1050.0, st.CurrentCapital)
}
