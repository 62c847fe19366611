package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradelog/config"
	"github.com/rustyeddy/tradelog/journal"
	"github.com/rustyeddy/tradelog/stats"
	"github.com/rustyeddy/tradelog/tracker"
)

const testUser = "cli-user"

// run executes the root command with args and returns what it printed.
// Package level flag variables survive between executions, so they are
// put back to their defaults first.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	cfgFile, envFile, dbPath, userID = "", ".env", "", testUser
	sessionCapital = ""
	tradeMargin, tradePL, tradeSide, tradeComment, tradeROI = "", "", "long", "", ""
	statsDays, statsJSON = false, false
	exportFormat, exportOutput = "json", ""
	chatSession = ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, "", args...)
	require.NoError(t, err, out)
	return out
}

func onlySession(t *testing.T, db string) journal.SessionRecord {
	t.Helper()
	store, err := journal.NewSQLite(db)
	require.NoError(t, err)
	defer store.Close()

	sessions, err := store.ListSessions(context.Background(), testUser)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	return sessions[0]
}

func TestSessionAndTradeCommands(t *testing.T) {
	db := filepath.Join(t.TempDir(), "cli.db")

	out := mustRun(t, "--db", db, "--user", testUser, "session", "create", "BTC", "5", "Minute", "--capital", "1,000")
	assert.Contains(t, out, `✓ Created session "BTC 5 Minute"`)
	assert.Contains(t, out, "$1,000.00")

	s := onlySession(t, db)

	out = mustRun(t, "--db", db, "--user", testUser, "trade", "add", s.ID, "--margin", "100", "--pl", "25", "--side", "long", "--comment", "breakout")
	assert.Contains(t, out, "✓ Recorded Long trade")
	assert.Contains(t, out, "+25.00%")
	assert.Contains(t, out, "capital now $1,025.00")

	mustRun(t, "--db", db, "--user", testUser, "trade", "add", s.ID, "--margin", "200", "--pl", "-50", "--side", "short")

	out = mustRun(t, "--db", db, "--user", testUser, "session", "list")
	assert.Contains(t, out, "BTC 5 Minute")
	assert.Contains(t, out, "$975.00")

	out = mustRun(t, "--db", db, "--user", testUser, "trade", "list", s.ID)
	assert.Contains(t, out, "** Trade: Short")
	assert.Contains(t, out, "** Trade: Long")
	assert.Contains(t, out, "- breakout")

	out = mustRun(t, "--db", db, "--user", testUser, "stats", s.ID, "--days")
	assert.Contains(t, out, "2 (1 won, 1 lost)")
	assert.Contains(t, out, "50.0%")
	assert.Contains(t, out, "-$25.00 (-2.50%)")
	assert.Contains(t, out, "$300.00")
	assert.Contains(t, out, "DATE")

	out = mustRun(t, "--db", db, "--user", testUser, "stats", s.ID, "--json")
	var d stats.Dashboard
	require.NoError(t, json.Unmarshal([]byte(out), &d))
	assert.Equal(t, 2, d.Stats.TotalTrades)
	assert.InDelta(t, 975.0, d.Stats.CurrentCapital, 1e-9)
	require.Len(t, d.Capital, 2)
	assert.InDelta(t, 1025.0, d.Capital[0].Capital, 1e-9)

	out = mustRun(t, "--db", db, "--user", testUser, "session", "show", s.ID)
	assert.Contains(t, out, "* SESSION: BTC 5 Minute")

	trades := func() []journal.TradeRecord {
		store, err := journal.NewSQLite(db)
		require.NoError(t, err)
		defer store.Close()
		ts, err := store.ListTrades(context.Background(), s.ID)
		require.NoError(t, err)
		return ts
	}
	ts := trades()
	require.Len(t, ts, 2)

	out = mustRun(t, "--db", db, "--user", testUser, "trade", "delete", ts[0].ID)
	assert.Contains(t, out, "✓ Deleted trade")
	assert.InDelta(t, 1025.0, onlySession(t, db).CurrentCapital, 1e-9)

	out = mustRun(t, "--db", db, "--user", testUser, "session", "delete", s.ID)
	assert.Contains(t, out, "✓ Deleted session")

	out = mustRun(t, "--db", db, "--user", testUser, "session", "list")
	assert.Contains(t, out, "No sessions yet")
}

func TestTradeAddRejectsBadInput(t *testing.T) {
	db := filepath.Join(t.TempDir(), "cli.db")
	mustRun(t, "--db", db, "--user", testUser, "session", "create", "Gold", "--capital", "500")
	s := onlySession(t, db)

	tests := []struct {
		name string
		args []string
		want error
	}{
		{"non numeric margin", []string{"--margin", "abc", "--pl", "1"}, journal.ErrInvalidTradeInput},
		{"bad side", []string{"--margin", "10", "--pl", "1", "--side", "sideways"}, journal.ErrInvalidTradeInput},
		{"inconsistent roi", []string{"--margin", "100", "--pl", "10", "--roi", "50"}, journal.ErrInvalidTradeInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--db", db, "--user", testUser, "trade", "add", s.ID}, tt.args...)
			_, err := run(t, "", args...)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.InDelta(t, 500.0, onlySession(t, db).CurrentCapital, 1e-9)
}

func TestOtherUsersSessionsAreHidden(t *testing.T) {
	db := filepath.Join(t.TempDir(), "cli.db")
	mustRun(t, "--db", db, "--user", testUser, "session", "create", "Mine", "--capital", "100")
	s := onlySession(t, db)

	_, err := run(t, "", "--db", db, "--user", "someone-else", "stats", s.ID)
	assert.ErrorIs(t, err, journal.ErrNotFound)

	_, err = run(t, "", "--db", db, "--user", "someone-else", "session", "delete", s.ID)
	assert.ErrorIs(t, err, journal.ErrNotFound)
}

func TestExportAndImportCommands(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "cli.db")
	mustRun(t, "--db", db, "--user", testUser, "session", "create", "ETH", "Scalps", "--capital", "2000")
	s := onlySession(t, db)
	mustRun(t, "--db", db, "--user", testUser, "trade", "add", s.ID, "--margin", "400", "--pl", "40", "--side", "short")

	out := mustRun(t, "--db", db, "--user", testUser, "export", s.ID, "--format", "csv", "--output", "-")
	assert.True(t, strings.HasPrefix(out, "Date,Margin,ROI %,Entry Side,P/L,Comments"), out)

	path := filepath.Join(dir, tracker.ExportFileName(s.Name, tracker.FormatJSON))
	out = mustRun(t, "--db", db, "--user", testUser, "export", s.ID, "--output", path)
	assert.Contains(t, out, "✓ Exported to")

	other := filepath.Join(dir, "other.db")
	out = mustRun(t, "--db", other, "--user", testUser, "session", "import", path)
	assert.Contains(t, out, `✓ Imported session "ETH Scalps"`)
	assert.Contains(t, out, "$2,040.00")

	_, err := run(t, "", "--db", db, "--user", testUser, "export", s.ID, "--format", "xlsx")
	assert.Error(t, err)
}

func fakeLLM(t *testing.T, content string) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		})
	}))
	t.Cleanup(ts.Close)
	return ts
}

func writeConfig(t *testing.T, llmURL string) string {
	t.Helper()
	c := config.Default()
	c.LLM.BaseURL = llmURL
	c.Log.Level = "error"
	path := filepath.Join(t.TempDir(), "tradelog.yaml")
	require.NoError(t, c.SaveToFile(path))
	return path
}

func TestChatCommand(t *testing.T) {
	db := filepath.Join(t.TempDir(), "cli.db")
	cfgPath := writeConfig(t, fakeLLM(t, "Your win rate is fine.").URL)
	mustRun(t, "--db", db, "--user", testUser, "session", "create", "Gold", "Breakouts", "--capital", "100")

	out := mustRun(t, "--config", cfgPath, "--db", db, "--user", testUser, "chat", "switch", "to", "gold")
	assert.Contains(t, out, `✅ Switched to "Gold Breakouts" session!`)

	out = mustRun(t, "--config", cfgPath, "--db", db, "--user", testUser, "chat", "How am I doing?")
	assert.Contains(t, out, "Sydney: Your win rate is fine.")

	out, err := run(t, "load the gold session\nhow am I doing?\nexit\n",
		"--config", cfgPath, "--db", db, "--user", testUser, "chat")
	require.NoError(t, err, out)
	assert.Contains(t, out, "How's your trading going today?")
	assert.Contains(t, out, "Switched to")
	assert.Contains(t, out, "Your win rate is fine.")
}

func TestChatBackendFailureShowsGenericMessage(t *testing.T) {
	db := filepath.Join(t.TempDir(), "cli.db")
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream secret detail", http.StatusInternalServerError)
	}))
	t.Cleanup(failing.Close)
	cfgPath := writeConfig(t, failing.URL)

	_, err := run(t, "", "--config", cfgPath, "--db", db, "--user", testUser, "chat", "How am I doing?")
	require.Error(t, err)
	assert.Equal(t, "Failed to get Sydney's response", err.Error())

	out, err := run(t, "How am I doing?\nexit\n", "--config", cfgPath, "--db", db, "--user", testUser, "chat")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Failed to get Sydney's response\n")
	assert.NotContains(t, out, "upstream secret detail")
}

func TestSummaryCommand(t *testing.T) {
	db := filepath.Join(t.TempDir(), "cli.db")
	cfgPath := writeConfig(t, fakeLLM(t, "A disciplined session.").URL)
	mustRun(t, "--db", db, "--user", testUser, "session", "create", "Gold", "--capital", "100")
	s := onlySession(t, db)

	out := mustRun(t, "--config", cfgPath, "--db", db, "--user", testUser, "summary", s.ID)
	assert.Equal(t, "A disciplined session.\n", out)
}

func TestConfigCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tradelog.yaml")

	out := mustRun(t, "config", "init", "--output", path)
	assert.Contains(t, out, "✓ Created default configuration")
	_, err := os.Stat(path)
	require.NoError(t, err)

	out = mustRun(t, "config", "validate", "--file", path)
	assert.Contains(t, out, "✓ Configuration valid")
	assert.Contains(t, out, "Store: ./tradelog.sqlite")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("server:\n  addr: \"\"\n"), 0o644))
	_, err = run(t, "", "config", "validate", "--file", bad)
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out := mustRun(t, "version")
	assert.Contains(t, out, "tradelog version "+version)
}
