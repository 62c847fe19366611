// journal/csv.go
package journal

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"
)

var csvHeader = []string{"Date", "Margin", "ROI %", "Entry Side", "P/L", "Comments"}

// WriteTradesCSV writes one row per trade. Dates are rendered as
// YYYY-MM-DD in loc (UTC when nil).
func WriteTradesCSV(w io.Writer, trades []TradeRecord, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, t := range trades {
		err := cw.Write([]string{
			t.CreatedAt.In(loc).Format("2006-01-02"),
			f(t.Margin),
			f(t.ROI),
			string(t.EntrySide),
			f(t.ProfitLoss),
			guardFormula(t.Comment),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 2, 64)
}

// guardFormula keeps spreadsheets from evaluating a comment as a formula.
func guardFormula(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return s
	}
	switch trimmed[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}
