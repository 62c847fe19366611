package journal

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTradesCSV(t *testing.T) {
	t.Parallel()

	trades := []TradeRecord{
		{
			ID: "T1", Margin: 100, ROI: 50, EntrySide: Long, ProfitLoss: 50,
			Comment:   "clean breakout, held",
			CreatedAt: time.Date(2024, 3, 15, 23, 30, 0, 0, time.UTC),
		},
		{
			ID: "T2", Margin: 200, ROI: -25, EntrySide: Short, ProfitLoss: -50,
			Comment:   "=HYPERLINK(\"x\")",
			CreatedAt: time.Date(2024, 3, 16, 1, 0, 0, 0, time.UTC),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteTradesCSV(&buf, trades, nil))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Date,Margin,ROI %,Entry Side,P/L,Comments", lines[0])
	assert.Equal(t, `2024-03-15,100.00,50.00,Long,50.00,"clean breakout, held"`, lines[1])
	assert.Equal(t, `2024-03-16,200.00,-25.00,Short,-50.00,"'=HYPERLINK(""x"")"`, lines[2])
}

func TestWriteTradesCSVLocation(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+2", 2*3600)
	trades := []TradeRecord{{
		Margin: 1, EntrySide: Long,
		CreatedAt: time.Date(2024, 3, 15, 23, 30, 0, 0, time.UTC),
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteTradesCSV(&buf, trades, loc))
	assert.Contains(t, buf.String(), "2024-03-16,")
}

func TestGuardFormula(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", guardFormula(""))
	assert.Equal(t, "plain", guardFormula("plain"))
	assert.Equal(t, "'-5 loss", guardFormula("-5 loss"))
	assert.Equal(t, "'@cmd", guardFormula("@cmd"))
}
