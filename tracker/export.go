package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"
	"text/template"
	"time"

	"github.com/rustyeddy/tradelog/journal"
	"github.com/rustyeddy/tradelog/stats"
)

// Format is an export file format.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatOrg  Format = "org"
)

// ParseFormat accepts json, csv or org in any case; empty means json.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatCSV, FormatOrg:
		return f, nil
	}
	return "", fmt.Errorf("unsupported export format %q (want json, csv or org)", s)
}

// ContentType is the MIME type served for f.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatOrg:
		return "text/plain; charset=utf-8"
	}
	return "application/json; charset=utf-8"
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// ExportFileName turns "BTC 5 Minute" into BTC_5_Minute_trading_session.<ext>.
func ExportFileName(sessionName string, f Format) string {
	return whitespaceRun.ReplaceAllString(sessionName, "_") + "_trading_session." + string(f)
}

// SessionExport is the document written by a JSON export and read back
// by Import.
type SessionExport struct {
	Session    ExportedSession    `json:"session"`
	Trades     []ExportedTrade    `json:"trades"`
	Statistics stats.SessionStats `json:"statistics"`
}

type ExportedSession struct {
	Name           string    `json:"name"`
	InitialCapital float64   `json:"initial_capital"`
	CurrentCapital float64   `json:"current_capital"`
	CreatedAt      time.Time `json:"created_at"`
}

type ExportedTrade struct {
	Margin     float64      `json:"margin"`
	ROI        float64      `json:"roi"`
	EntrySide  journal.Side `json:"entry_side"`
	ProfitLoss float64      `json:"profit_loss"`
	Comment    string       `json:"comments"`
	CreatedAt  time.Time    `json:"created_at"`
}

// NewSessionExport assembles the export document for one session.
func NewSessionExport(s journal.SessionRecord, trades []journal.TradeRecord, st stats.SessionStats) SessionExport {
	out := SessionExport{
		Session: ExportedSession{
			Name:           s.Name,
			InitialCapital: s.InitialCapital,
			CurrentCapital: s.CurrentCapital,
			CreatedAt:      s.CreatedAt,
		},
		Trades:     make([]ExportedTrade, 0, len(trades)),
		Statistics: st,
	}
	for _, t := range trades {
		out.Trades = append(out.Trades, ExportedTrade{
			Margin:     t.Margin,
			ROI:        t.ROI,
			EntrySide:  t.EntrySide,
			ProfitLoss: t.ProfitLoss,
			Comment:    t.Comment,
			CreatedAt:  t.CreatedAt,
		})
	}
	return out
}

// Export writes the session in format f to w and returns the suggested
// file name.
func (t *Tracker) Export(ctx context.Context, userID, sessionID string, f Format, w io.Writer) (string, error) {
	s, err := t.GetSession(ctx, userID, sessionID)
	if err != nil {
		return "", err
	}
	trades, err := t.store.ListTrades(ctx, s.ID)
	if err != nil {
		return "", fmt.Errorf("list trades: %w", err)
	}
	st := stats.Compute(trades, s.InitialCapital)

	switch f {
	case FormatCSV:
		err = journal.WriteTradesCSV(w, trades, t.loc)
	case FormatOrg:
		err = writeSessionOrg(w, s, trades, st)
	default:
		f = FormatJSON
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(NewSessionExport(s, trades, st))
	}
	if err != nil {
		return "", fmt.Errorf("export %s: %w", f, err)
	}
	return ExportFileName(s.Name, f), nil
}

// Import reads a JSON export and recreates it as a new session owned by
// userID. Every trade is validated before anything is written; trade
// timestamps from the file are kept.
func (t *Tracker) Import(ctx context.Context, userID string, r io.Reader) (journal.SessionRecord, error) {
	var doc SessionExport
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return journal.SessionRecord{}, fmt.Errorf("%w: invalid JSON file: %v", journal.ErrInvalidSession, err)
	}

	capital := doc.Session.InitialCapital
	s, err := journal.SessionInput{Name: doc.Session.Name, InitialCapital: &capital}.Build(userID, t.now())
	if err != nil {
		return journal.SessionRecord{}, err
	}

	trades := make([]journal.TradeRecord, 0, len(doc.Trades))
	for i, et := range doc.Trades {
		margin, pl := et.Margin, et.ProfitLoss
		in := journal.TradeInput{
			Margin:     &margin,
			ProfitLoss: &pl,
			EntrySide:  string(et.EntrySide),
			Comment:    et.Comment,
		}
		// a zero roi is treated as absent and derived
		if et.ROI != 0 {
			roi := et.ROI
			in.ROI = &roi
		}
		created := et.CreatedAt
		if created.IsZero() {
			created = t.now()
		}
		tr, err := in.Build(s.ID, created)
		if err != nil {
			return journal.SessionRecord{}, fmt.Errorf("trade %d: %w", i+1, err)
		}
		trades = append(trades, tr)
	}

	s, err = t.store.CreateSession(ctx, s)
	if err != nil {
		return journal.SessionRecord{}, fmt.Errorf("create session: %w", err)
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	for _, tr := range trades {
		if _, err := t.store.AddTrade(ctx, tr); err != nil {
			// leave nothing half imported
			_ = t.store.DeleteSession(ctx, s.ID)
			return journal.SessionRecord{}, fmt.Errorf("add trade: %w", err)
		}
	}
	st, err := t.sync(ctx, s.ID, true)
	if err != nil {
		return journal.SessionRecord{}, err
	}
	s.CurrentCapital = st.CurrentCapital
	return s, nil
}

var orgFuncs = template.FuncMap{
	"money": stats.FormatCurrency,
	"pct":   stats.FormatPercentage,
	"trades": func(ts []journal.TradeRecord) string {
		return journal.FormatTradesOrg(ts)
	},
}

type orgView struct {
	Session journal.SessionRecord
	Stats   stats.SessionStats
	Trades  []journal.TradeRecord
}

func writeSessionOrg(w io.Writer, s journal.SessionRecord, trades []journal.TradeRecord, st stats.SessionStats) error {
	tmpl, err := template.New("session").Funcs(orgFuncs).Parse(SessionOrgTemplate)
	if err != nil {
		return err
	}
	return tmpl.Execute(w, orgView{Session: s, Stats: st, Trades: stats.Chronological(trades)})
}

// SessionOrgTemplate renders a session as an Org-mode entry with its
// trades as sub-headings.
const SessionOrgTemplate = `* SESSION: {{.Session.Name}}
:PROPERTIES:
:SESSION_ID:  {{.Session.ID}}
:START_BAL:   {{printf "%.2f" .Session.InitialCapital}}
:END_BAL:     {{printf "%.2f" .Stats.CurrentCapital}}
:NET_PL:      {{printf "%.2f" .Stats.NetProfitLoss}}
:RETURN_PCT:  {{printf "%.2f" .Stats.NetProfitLossPercentage}}
:TRADES:      {{.Stats.TotalTrades}}
:WINS:        {{.Stats.WinningTrades}}
:LOSSES:      {{.Stats.LosingTrades}}
:WIN_RATE:    {{printf "%.2f" .Stats.WinRate}}
:CREATED:     [{{.Session.CreatedAt.Format "2006-01-02 Mon 15:04"}}]
:END:

** Performance Summary
- Current Capital:  *{{money .Stats.CurrentCapital}}*
- Net P/L:          *{{money .Stats.NetProfitLoss}}* ({{pct .Stats.NetProfitLossPercentage}})
- Win Rate:         *{{printf "%.1f" .Stats.WinRate}}%*
- Margin Used:      *{{money .Stats.TotalMarginUsed}}*
- Average ROI:      *{{pct .Stats.AverageROI}}*
{{if .Trades}}
{{trades .Trades}}{{end}}`
