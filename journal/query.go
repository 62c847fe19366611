package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/tradelog/pkg/id"
)

const tradeColumns = `t.id, t.session_id, t.margin, t.roi, t.entry_side, t.profit_loss, t.comments, t.created_at`

// AddTrade inserts a trade and returns the stored row.
func (j *SQLite) AddTrade(ctx context.Context, t TradeRecord) (TradeRecord, error) {
	if t.ID == "" {
		t.ID = id.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO trades
		(id, session_id, margin, roi, entry_side, profit_loss, comments, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.SessionID, t.Margin, t.ROI, string(t.EntrySide),
		t.ProfitLoss, t.Comment, t.CreatedAt.UTC(),
	)
	if err != nil {
		return TradeRecord{}, writeErr("add trade", err)
	}
	return t, nil
}

// GetTrade returns a single trade record by ID.
func (j *SQLite) GetTrade(ctx context.Context, tradeID string) (TradeRecord, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT `+tradeColumns+`
		FROM trades t
		WHERE t.id = ?`, tradeID)

	rec, err := scanTrade(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TradeRecord{}, fmt.Errorf("trade %q %w", tradeID, ErrNotFound)
		}
		return TradeRecord{}, readErr("get trade", err)
	}
	return rec, nil
}

// ListTrades returns the trades of one session, newest first.
func (j *SQLite) ListTrades(ctx context.Context, sessionID string) ([]TradeRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT `+tradeColumns+`
		FROM trades t
		WHERE t.session_id = ?
		ORDER BY t.created_at DESC, t.id DESC`, sessionID)
	if err != nil {
		return nil, readErr("list trades", err)
	}
	return collectTrades("list trades", rows)
}

// ListUserTrades returns every trade across all of a user's sessions,
// newest first.
func (j *SQLite) ListUserTrades(ctx context.Context, userID string) ([]TradeRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT `+tradeColumns+`
		FROM trades t
		JOIN trading_sessions s ON s.id = t.session_id
		WHERE s.user_id = ?
		ORDER BY t.created_at DESC, t.id DESC`, userID)
	if err != nil {
		return nil, readErr("list user trades", err)
	}
	return collectTrades("list user trades", rows)
}

func (j *SQLite) DeleteTrade(ctx context.Context, tradeID string) error {
	res, err := j.db.ExecContext(ctx, `DELETE FROM trades WHERE id = ?`, tradeID)
	if err != nil {
		return writeErr("delete trade", err)
	}
	return expectRow(res, "delete trade", "trade", tradeID)
}

func scanTrade(row rowScanner) (TradeRecord, error) {
	var (
		rec  TradeRecord
		side string
	)
	err := row.Scan(
		&rec.ID,
		&rec.SessionID,
		&rec.Margin,
		&rec.ROI,
		&side,
		&rec.ProfitLoss,
		&rec.Comment,
		&rec.CreatedAt,
	)
	rec.EntrySide = Side(side)
	return rec, err
}

func collectTrades(op string, rows *sql.Rows) ([]TradeRecord, error) {
	defer rows.Close()

	out := []TradeRecord{}
	for rows.Next() {
		rec, err := scanTrade(rows)
		if err != nil {
			return nil, readErr(op, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, readErr(op, err)
	}
	return out, nil
}
