package journal

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatTradeOrg(t *testing.T) {
	t.Parallel()

	trade := TradeRecord{
		ID:         "01HX7ABCDEFGHJKMNPQRSTVWXY",
		SessionID:  "S1",
		Margin:     1000,
		ROI:        2.5,
		EntrySide:  Long,
		ProfitLoss: 25,
		Comment:    "trend-following",
		CreatedAt:  time.Date(2024, 3, 15, 10, 30, 45, 0, time.UTC),
	}

	result := FormatTradeOrg(trade)

	assert.Contains(t, result, "** Trade: Long WIN (01HX7ABC)")
	assert.Contains(t, result, ":PROPERTIES:")
	assert.Contains(t, result, ":TRADE_ID: 01HX7ABCDEFGHJKMNPQRSTVWXY")
	assert.Contains(t, result, ":SESSION_ID: S1")
	assert.Contains(t, result, ":MARGIN: 1000.00")
	assert.Contains(t, result, ":ROI_PCT: 2.50")
	assert.Contains(t, result, ":PROFIT_LOSS: 25.00")
	assert.Contains(t, result, ":CREATED: 2024-03-15T10:30:45Z")
	assert.Contains(t, result, ":END:")
	assert.Contains(t, result, "*** Notes\n- trend-following")
}

func TestFormatTradeOrgOutcomes(t *testing.T) {
	t.Parallel()

	loss := FormatTradeOrg(TradeRecord{ID: "short", EntrySide: Short, ProfitLoss: -1})
	assert.Contains(t, loss, "** Trade: Short LOSS (short)")
	assert.NotContains(t, loss, "*** Notes")

	flat := FormatTradeOrg(TradeRecord{ID: "flat", EntrySide: Long})
	assert.Contains(t, flat, "FLAT")
}

func TestFormatTradesOrg(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", FormatTradesOrg(nil))

	out := FormatTradesOrg([]TradeRecord{{ID: "a", EntrySide: Long}, {ID: "b", EntrySide: Short}})
	assert.Equal(t, 2, strings.Count(out, "** Trade:"))
}
