// Package tracker is the service layer over a journal.Store. It owns the
// rule that a session's persisted current capital always matches its
// trades, and caches derived statistics per version of the session row.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/rustyeddy/tradelog/journal"
	"github.com/rustyeddy/tradelog/logger"
	"github.com/rustyeddy/tradelog/stats"
)

const (
	defaultCacheTTL     = 5 * time.Minute
	defaultCacheCleanup = 10 * time.Minute
)

// Tracker coordinates session and trade writes with stats recomputation.
type Tracker struct {
	store journal.Store
	cache *cache.Cache
	now   func() time.Time
	loc   *time.Location

	// writeMu serialises trade writes with their capital write-through.
	writeMu sync.Mutex
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithLocation sets the zone used for per-day keys and CSV dates.
func WithLocation(loc *time.Location) Option {
	return func(t *Tracker) {
		if loc != nil {
			t.loc = loc
		}
	}
}

// WithCacheTTL overrides how long computed stats are kept.
func WithCacheTTL(ttl time.Duration) Option {
	return func(t *Tracker) { t.cache = cache.New(ttl, 2*ttl) }
}

func New(store journal.Store, opts ...Option) *Tracker {
	t := &Tracker{
		store: store,
		cache: cache.New(defaultCacheTTL, defaultCacheCleanup),
		now:   time.Now,
		loc:   time.UTC,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Store exposes the underlying store to collaborators that only read.
func (t *Tracker) Store() journal.Store { return t.store }

// Location is the zone used for date keys.
func (t *Tracker) Location() *time.Location { return t.loc }

func (t *Tracker) CreateSession(ctx context.Context, userID string, in journal.SessionInput) (journal.SessionRecord, error) {
	s, err := in.Build(userID, t.now())
	if err != nil {
		return journal.SessionRecord{}, err
	}
	s, err = t.store.CreateSession(ctx, s)
	if err != nil {
		return journal.SessionRecord{}, fmt.Errorf("create session: %w", err)
	}
	logger.FromContext(ctx).Info("session created", "session_id", s.ID, "name", s.Name)
	return s, nil
}

func (t *Tracker) ListSessions(ctx context.Context, userID string) ([]journal.SessionRecord, error) {
	sessions, err := t.store.ListSessions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// GetSession returns the session if userID owns it. A session owned by
// someone else is reported as not found.
func (t *Tracker) GetSession(ctx context.Context, userID, sessionID string) (journal.SessionRecord, error) {
	s, err := t.store.GetSession(ctx, sessionID)
	if err != nil {
		return journal.SessionRecord{}, err
	}
	if s.UserID != userID {
		return journal.SessionRecord{}, fmt.Errorf("session %q %w", sessionID, journal.ErrNotFound)
	}
	return s, nil
}

// DeleteSession removes the session and, through the store, its trades.
func (t *Tracker) DeleteSession(ctx context.Context, userID, sessionID string) error {
	s, err := t.GetSession(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	if err := t.store.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	t.cache.Delete(key("stats", s))
	t.cache.Delete(key("dashboard", s))
	logger.FromContext(ctx).Info("session deleted", "session_id", sessionID)
	return nil
}

// AddTrade validates in, stores it and brings the session's current
// capital back in line with its trades.
func (t *Tracker) AddTrade(ctx context.Context, userID, sessionID string, in journal.TradeInput) (journal.TradeRecord, error) {
	s, err := t.GetSession(ctx, userID, sessionID)
	if err != nil {
		return journal.TradeRecord{}, err
	}
	tr, err := in.Build(s.ID, t.now())
	if err != nil {
		return journal.TradeRecord{}, err
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	tr, err = t.store.AddTrade(ctx, tr)
	if err != nil {
		return journal.TradeRecord{}, fmt.Errorf("add trade: %w", err)
	}
	if _, err := t.sync(ctx, s.ID, true); err != nil {
		return journal.TradeRecord{}, err
	}
	logger.FromContext(ctx).Info("trade added",
		"session_id", s.ID, "trade_id", tr.ID, "profit_loss", tr.ProfitLoss)
	return tr, nil
}

// DeleteTrade removes one trade from a session owned by userID.
func (t *Tracker) DeleteTrade(ctx context.Context, userID, tradeID string) error {
	tr, err := t.store.GetTrade(ctx, tradeID)
	if err != nil {
		return err
	}
	s, err := t.GetSession(ctx, userID, tr.SessionID)
	if errors.Is(err, journal.ErrNotFound) {
		return fmt.Errorf("trade %q %w", tradeID, journal.ErrNotFound)
	}
	if err != nil {
		return err
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if err := t.store.DeleteTrade(ctx, tradeID); err != nil {
		return fmt.Errorf("delete trade: %w", err)
	}
	if _, err := t.sync(ctx, s.ID, true); err != nil {
		return err
	}
	logger.FromContext(ctx).Info("trade deleted", "session_id", s.ID, "trade_id", tradeID)
	return nil
}

// ListTrades returns the session's trades newest first.
func (t *Tracker) ListTrades(ctx context.Context, userID, sessionID string) ([]journal.TradeRecord, error) {
	if _, err := t.GetSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	trades, err := t.store.ListTrades(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}
	return trades, nil
}

// Stats returns the session's statistics, recomputing them when the
// session row changed since they were cached. Trade writes made through
// any tracker on the same store change the row.
func (t *Tracker) Stats(ctx context.Context, userID, sessionID string) (stats.SessionStats, error) {
	s, err := t.GetSession(ctx, userID, sessionID)
	if err != nil {
		return stats.SessionStats{}, err
	}

	if v, ok := t.cache.Get(key("stats", s)); ok {
		return v.(stats.SessionStats), nil
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return t.sync(ctx, s.ID, false)
}

// Dashboard returns stats plus every chart series for the session.
func (t *Tracker) Dashboard(ctx context.Context, userID, sessionID string) (stats.Dashboard, error) {
	s, err := t.GetSession(ctx, userID, sessionID)
	if err != nil {
		return stats.Dashboard{}, err
	}

	k := key("dashboard", s)
	if v, ok := t.cache.Get(k); ok {
		return v.(stats.Dashboard), nil
	}

	trades, err := t.store.ListTrades(ctx, s.ID)
	if err != nil {
		return stats.Dashboard{}, fmt.Errorf("list trades: %w", err)
	}
	d := stats.BuildDashboard(trades, s.InitialCapital, t.loc)
	t.cache.SetDefault(k, d)
	return d, nil
}

// sync re-reads the session row and its trades, recomputes the stats and
// writes the current capital through when it drifted. Callers hold
// writeMu. touch stamps updated_at even when the capital is unchanged, so
// every trade write moves the row version the cache is keyed on.
func (t *Tracker) sync(ctx context.Context, sessionID string, touch bool) (stats.SessionStats, error) {
	s, err := t.store.GetSession(ctx, sessionID)
	if err != nil {
		return stats.SessionStats{}, fmt.Errorf("reload session: %w", err)
	}
	trades, err := t.store.ListTrades(ctx, s.ID)
	if err != nil {
		return stats.SessionStats{}, fmt.Errorf("list trades: %w", err)
	}
	st := stats.Compute(trades, s.InitialCapital)

	drifted := stats.CapitalDrifted(s.CurrentCapital, st.CurrentCapital)
	if drifted || touch {
		now := t.now().UTC()
		if err := t.store.UpdateSessionCapital(ctx, s.ID, st.CurrentCapital, now); err != nil {
			return stats.SessionStats{}, fmt.Errorf("update capital: %w", err)
		}
		if drifted {
			logger.FromContext(ctx).Debug("current capital written through",
				"session_id", s.ID, "from", s.CurrentCapital, "to", st.CurrentCapital)
		}
		s.CurrentCapital, s.UpdatedAt = st.CurrentCapital, now
	}

	t.cache.SetDefault(key("stats", s), st)
	return st, nil
}

// key names a cache entry for one version of the session row.
func key(kind string, s journal.SessionRecord) string {
	return fmt.Sprintf("%s:%s:%d:%g", kind, s.ID, s.UpdatedAt.UnixNano(), s.CurrentCapital)
}
