package journal

import (
	"fmt"
	"strings"
	"time"
)

// FormatTradeOrg renders a TradeRecord as an Org-mode block suitable for
// pasting into a journal. Structured facts go in a PROPERTIES drawer and
// the comment, if any, becomes the Notes section.
func FormatTradeOrg(t TradeRecord) string {
	heading := fmt.Sprintf("** Trade: %s %s (%s)", t.EntrySide, outcome(t.ProfitLoss), shortID(t.ID))

	var b strings.Builder
	b.WriteString(heading)
	b.WriteString("\n")
	b.WriteString(":PROPERTIES:\n")
	b.WriteString(fmt.Sprintf(":TRADE_ID: %s\n", t.ID))
	b.WriteString(fmt.Sprintf(":SESSION_ID: %s\n", t.SessionID))
	b.WriteString(fmt.Sprintf(":ENTRY_SIDE: %s\n", t.EntrySide))
	b.WriteString(fmt.Sprintf(":MARGIN: %.2f\n", t.Margin))
	b.WriteString(fmt.Sprintf(":ROI_PCT: %.2f\n", t.ROI))
	b.WriteString(fmt.Sprintf(":PROFIT_LOSS: %.2f\n", t.ProfitLoss))
	b.WriteString(fmt.Sprintf(":CREATED: %s\n", t.CreatedAt.UTC().Format(time.RFC3339)))
	b.WriteString(":END:\n")
	if t.Comment != "" {
		b.WriteString("\n*** Notes\n")
		b.WriteString("- " + t.Comment + "\n")
	}

	return b.String()
}

// FormatTradesOrg renders multiple trades separated by blank lines.
func FormatTradesOrg(trades []TradeRecord) string {
	var b strings.Builder
	for i, t := range trades {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(FormatTradeOrg(t))
	}
	return b.String()
}

func outcome(pl float64) string {
	switch {
	case pl > 0:
		return "WIN"
	case pl < 0:
		return "LOSS"
	}
	return "FLAT"
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}
