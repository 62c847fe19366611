// journal/schema.go
package journal

const Schema = `
CREATE TABLE IF NOT EXISTS trading_sessions (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	name TEXT NOT NULL,
	initial_capital REAL NOT NULL,
	current_capital REAL NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS trades (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES trading_sessions(id) ON DELETE CASCADE,
	margin REAL NOT NULL,
	roi REAL NOT NULL,
	entry_side TEXT NOT NULL CHECK (entry_side IN ('Long', 'Short')),
	profit_loss REAL NOT NULL,
	comments TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_user ON trading_sessions(user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_trades_session ON trades(session_id, created_at);
`
