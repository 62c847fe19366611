package assistant

import (
	"context"
	"fmt"
	"time"

	"github.com/rustyeddy/tradelog/journal"
	"github.com/rustyeddy/tradelog/stats"
)

const (
	DefaultRecentSessions = 5
	DefaultRecentTrades   = 10
)

// RecentTrade is a trade annotated with its session's name.
type RecentTrade struct {
	journal.TradeRecord
	SessionName string `json:"session_name"`
}

// ChatContext is the bounded summary of a user's history handed to the
// text backend.
type ChatContext struct {
	TotalSessions  int                     `json:"total_sessions"`
	TotalTrades    int                     `json:"total_trades"`
	Overall        stats.SessionStats      `json:"overall"`
	RecentSessions []journal.SessionRecord `json:"recent_sessions"`
	RecentTrades   []RecentTrade           `json:"recent_trades"`
	Current        *journal.SessionRecord  `json:"current,omitempty"`
	CurrentStats   *stats.SessionStats     `json:"current_stats,omitempty"`
	GeneratedAt    time.Time               `json:"generated_at"`
}

// ContextBuilder assembles a ChatContext from the store.
type ContextBuilder struct {
	store          journal.Store
	recentSessions int
	recentTrades   int
	now            func() time.Time
}

func NewContextBuilder(store journal.Store, recentSessions, recentTrades int) *ContextBuilder {
	return &ContextBuilder{
		store:          store,
		recentSessions: recentSessions,
		recentTrades:   recentTrades,
		now:            time.Now,
	}
}

// Build summarises every session and trade userID owns. Aggregates cover
// all trades, not just the current session; the overall figures carry no
// capital baseline, so only counts, P/L, margin and ROI are meaningful.
// currentSessionID is optional and ignored when it is not the user's.
func (b *ContextBuilder) Build(ctx context.Context, userID, currentSessionID string) (ChatContext, error) {
	sessions, err := b.store.ListSessions(ctx, userID)
	if err != nil {
		return ChatContext{}, fmt.Errorf("list sessions: %w", err)
	}
	trades, err := b.store.ListUserTrades(ctx, userID)
	if err != nil {
		return ChatContext{}, fmt.Errorf("list trades: %w", err)
	}

	names := make(map[string]string, len(sessions))
	for _, s := range sessions {
		names[s.ID] = s.Name
	}

	cc := ChatContext{
		TotalSessions:  len(sessions),
		TotalTrades:    len(trades),
		Overall:        stats.Compute(trades, 0),
		RecentSessions: head(sessions, b.recentSessions),
		RecentTrades:   []RecentTrade{},
		GeneratedAt:    b.now(),
	}
	for _, t := range head(trades, b.recentTrades) {
		cc.RecentTrades = append(cc.RecentTrades, RecentTrade{TradeRecord: t, SessionName: names[t.SessionID]})
	}

	if currentSessionID != "" {
		for i := range sessions {
			if sessions[i].ID != currentSessionID {
				continue
			}
			cur := sessions[i]
			var own []journal.TradeRecord
			for _, t := range trades {
				if t.SessionID == cur.ID {
					own = append(own, t)
				}
			}
			st := stats.Compute(own, cur.InitialCapital)
			cc.Current, cc.CurrentStats = &cur, &st
			break
		}
	}
	return cc, nil
}

// head returns at most n leading elements, never nil.
func head[T any](xs []T, n int) []T {
	if n < 0 || n > len(xs) {
		n = len(xs)
	}
	out := make([]T, n)
	copy(out, xs[:n])
	return out
}
