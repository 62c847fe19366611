package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/tradelog/pkg/id"
)

// driverName is go-sqlite3 with a unicode_lower(text) SQL function.
// SQLite's own lower() and LIKE only fold ASCII.
const driverName = "sqlite3_tradelog"

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("unicode_lower", strings.ToLower, true)
		},
	})
}

// SQLite is a Store backed by a single SQLite file.
type SQLite struct {
	db *sql.DB
}

var _ Store = (*SQLite)(nil)

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open(driverName, path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	// One writer at a time avoids SQLITE_BUSY on concurrent requests.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

const sessionColumns = `id, user_id, name, initial_capital, current_capital, created_at, updated_at`

func (j *SQLite) CreateSession(ctx context.Context, s SessionRecord) (SessionRecord, error) {
	if s.ID == "" {
		s.ID = id.New()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = s.CreatedAt
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO trading_sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.Name, s.InitialCapital, s.CurrentCapital,
		s.CreatedAt.UTC(), s.UpdatedAt.UTC(),
	)
	if err != nil {
		return SessionRecord{}, writeErr("create session", err)
	}
	return s, nil
}

func (j *SQLite) GetSession(ctx context.Context, sessionID string) (SessionRecord, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM trading_sessions
		WHERE id = ?`, sessionID)

	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SessionRecord{}, fmt.Errorf("session %q %w", sessionID, ErrNotFound)
		}
		return SessionRecord{}, readErr("get session", err)
	}
	return s, nil
}

func (j *SQLite) ListSessions(ctx context.Context, userID string) ([]SessionRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM trading_sessions
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, readErr("list sessions", err)
	}
	return collectSessions("list sessions", rows)
}

func (j *SQLite) FindSessions(ctx context.Context, userID, nameFragment string) ([]SessionRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM trading_sessions
		WHERE user_id = ? AND instr(unicode_lower(name), unicode_lower(?)) > 0
		ORDER BY rowid ASC`, userID, nameFragment)
	if err != nil {
		return nil, readErr("find sessions", err)
	}
	return collectSessions("find sessions", rows)
}

func (j *SQLite) UpdateSessionCapital(ctx context.Context, sessionID string, capital float64, updatedAt time.Time) error {
	res, err := j.db.ExecContext(ctx, `
		UPDATE trading_sessions
		SET current_capital = ?, updated_at = ?
		WHERE id = ?`, capital, updatedAt.UTC(), sessionID)
	if err != nil {
		return writeErr("update session capital", err)
	}
	return expectRow(res, "update session capital", "session", sessionID)
}

func (j *SQLite) DeleteSession(ctx context.Context, sessionID string) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return writeErr("delete session", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM trades WHERE session_id = ?`, sessionID); err != nil {
		return writeErr("delete session trades", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM trading_sessions WHERE id = ?`, sessionID)
	if err != nil {
		return writeErr("delete session", err)
	}
	if err := expectRow(res, "delete session", "session", sessionID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return writeErr("delete session", err)
	}
	return nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (SessionRecord, error) {
	var s SessionRecord
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.Name,
		&s.InitialCapital,
		&s.CurrentCapital,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	return s, err
}

func collectSessions(op string, rows *sql.Rows) ([]SessionRecord, error) {
	defer rows.Close()

	out := []SessionRecord{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, readErr(op, err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, readErr(op, err)
	}
	return out, nil
}

func expectRow(res sql.Result, op, what, key string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return writeErr(op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %q %w", what, key, ErrNotFound)
	}
	return nil
}
