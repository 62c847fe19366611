// journal/journal.go
package journal

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Side is the direction a trade was entered in.
type Side string

const (
	Long  Side = "Long"
	Short Side = "Short"
)

// ParseSide accepts "long"/"short" in any case. An empty string means Long.
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "long":
		return Long, nil
	case "short":
		return Short, nil
	}
	return "", fmt.Errorf("%w: entry side %q must be Long or Short", ErrInvalidTradeInput, s)
}

// TradeRecord is one closed trade inside a session. Trades are never
// edited in place; they are only added or deleted.
type TradeRecord struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	Margin     float64   `json:"margin"`
	ROI        float64   `json:"roi"`
	EntrySide  Side      `json:"entry_side"`
	ProfitLoss float64   `json:"profit_loss"`
	Comment    string    `json:"comments,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// SessionRecord is a named capital bucket owned by one user.
//
// CurrentCapital always equals InitialCapital plus the sum of ProfitLoss
// over the session's trades; the tracker rewrites it after every trade
// insert or delete.
type SessionRecord struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Name           string    `json:"name"`
	InitialCapital float64   `json:"initial_capital"`
	CurrentCapital float64   `json:"current_capital"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Store is the persistence collaborator for sessions and trades.
//
// List methods return rows newest first (created_at descending).
// FindSessions does a Unicode case-insensitive substring match on the session
// name and returns matches in insertion order.
type Store interface {
	CreateSession(ctx context.Context, s SessionRecord) (SessionRecord, error)
	GetSession(ctx context.Context, id string) (SessionRecord, error)
	ListSessions(ctx context.Context, userID string) ([]SessionRecord, error)
	FindSessions(ctx context.Context, userID, nameFragment string) ([]SessionRecord, error)
	UpdateSessionCapital(ctx context.Context, id string, capital float64, updatedAt time.Time) error
	DeleteSession(ctx context.Context, id string) error

	AddTrade(ctx context.Context, t TradeRecord) (TradeRecord, error)
	GetTrade(ctx context.Context, id string) (TradeRecord, error)
	ListTrades(ctx context.Context, sessionID string) ([]TradeRecord, error)
	ListUserTrades(ctx context.Context, userID string) ([]TradeRecord, error)
	DeleteTrade(ctx context.Context, id string) error

	Close() error
}
