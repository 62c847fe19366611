package assistant

import (
	"bytes"
	"encoding/json"
	"text/template"
	"time"

	"github.com/rustyeddy/tradelog/journal"
	"github.com/rustyeddy/tradelog/stats"
)

var promptFuncs = template.FuncMap{
	"json": func(v any) (string, error) {
		b, err := json.MarshalIndent(v, "", "  ")
		return string(b), err
	},
	"money": func(x float64) string { return stats.FormatCurrency(x) },
	"date":  func(t time.Time) string { return t.Format("2006-01-02") },
}

var (
	chatTmpl    = template.Must(template.New("chat").Funcs(promptFuncs).Parse(chatPrompt))
	summaryTmpl = template.Must(template.New("summary").Funcs(promptFuncs).Parse(summaryPrompt))
)

type chatView struct {
	Persona string
	Context ChatContext
	Message string
}

type summaryView struct {
	Persona string
	Session journal.SessionRecord
	Stats   stats.SessionStats
	Trades  []journal.TradeRecord
}

// ChatPrompt renders the instruction document for a general question.
func ChatPrompt(persona string, cc ChatContext, message string) (string, error) {
	var buf bytes.Buffer
	err := chatTmpl.Execute(&buf, chatView{Persona: persona, Context: cc, Message: message})
	return buf.String(), err
}

// SummaryPrompt renders the instruction document for a session summary.
func SummaryPrompt(persona string, s journal.SessionRecord, st stats.SessionStats, trades []journal.TradeRecord) (string, error) {
	var buf bytes.Buffer
	err := summaryTmpl.Execute(&buf, summaryView{Persona: persona, Session: s, Stats: st, Trades: trades})
	return buf.String(), err
}

const chatPrompt = `You are {{.Persona}}, an AI trading assistant for a personal trading journal. You are helpful, friendly, and knowledgeable about trading.

User's Trading Data Summary:
- Total Sessions: {{.Context.TotalSessions}}
- Total Trades: {{.Context.TotalTrades}}
- Total P/L: {{money .Context.Overall.NetProfitLoss}}
- Win Rate: {{printf "%.1f" .Context.Overall.WinRate}}%
- Winning Trades: {{.Context.Overall.WinningTrades}}
- Losing Trades: {{.Context.Overall.LosingTrades}}
{{- with .Context.Current}}

Currently Viewing: {{.Name}} (initial {{money .InitialCapital}}, current {{money .CurrentCapital}})
{{- end}}
{{- with .Context.CurrentStats}}
- Session Trades: {{.TotalTrades}}, Net P/L: {{money .NetProfitLoss}}, Win Rate: {{printf "%.1f" .WinRate}}%
{{- end}}

Recent Sessions: {{json .Context.RecentSessions}}
Recent Trades: {{json .Context.RecentTrades}}

You can:
1. Analyze their trading performance and provide insights
2. Answer questions about specific trades or sessions
3. Provide psychological feedback on trading patterns
4. Chat freely about anything (jokes, general questions, etc.)
5. Help with trading education and tips
6. Detect risky behavior patterns

Be conversational, helpful, and provide actionable advice. Format your responses clearly and use specific data from their trading history when relevant.

Current date: {{date .Context.GeneratedAt}}

User message: {{.Message}}`

const summaryPrompt = `You are {{.Persona}}, an AI trading analyst. Generate a comprehensive summary for this trading session.

Session Details:
- Name: {{.Session.Name}}
- Initial Capital: {{money .Session.InitialCapital}}
- Current Capital: {{money .Stats.CurrentCapital}}
- Created: {{date .Session.CreatedAt}}

Trading Performance:
- Total Trades: {{.Stats.TotalTrades}}
- Net P/L: {{money .Stats.NetProfitLoss}}
- Win Rate: {{printf "%.1f" .Stats.WinRate}}%
- Winning Trades: {{.Stats.WinningTrades}}
- Losing Trades: {{.Stats.LosingTrades}}
- Total Margin Used: {{money .Stats.TotalMarginUsed}}
- Average ROI: {{printf "%.2f" .Stats.AverageROI}}%

Individual Trades:
{{json .Trades}}

Please provide:
1. A concise performance summary
2. Key insights and patterns
3. Areas for improvement
4. Psychological observations about trading behavior
5. Specific recommendations for future sessions

Keep the summary professional, actionable, and under 500 words. Write in a friendly, helpful tone as {{.Persona}}.`
