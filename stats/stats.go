// Package stats derives session performance figures from a trade list.
//
// Everything here is pure: no I/O, no errors, deterministic output for a
// given input. Callers are expected to have validated trade amounts.
package stats

import (
	"github.com/rustyeddy/tradelog/journal"
)

// SessionStats is the derived, never persisted view of a session.
type SessionStats struct {
	TotalTrades             int     `json:"total_trades"`
	WinningTrades           int     `json:"winning_trades"`
	LosingTrades            int     `json:"losing_trades"`
	WinRate                 float64 `json:"win_rate"`
	CurrentCapital          float64 `json:"current_capital"`
	NetProfitLoss           float64 `json:"net_profit_loss"`
	NetProfitLossPercentage float64 `json:"net_profit_loss_percentage"`
	TotalMarginUsed         float64 `json:"total_margin_used"`
	AverageROI              float64 `json:"average_roi"`
}

// Compute builds SessionStats for trades against initialCapital.
//
// AverageROI is the mean of the stored per-trade ROI values. It is not
// NetProfitLoss / TotalMarginUsed; with unequal margins the two differ.
// NetProfitLossPercentage is 0 when initialCapital is 0.
func Compute(trades []journal.TradeRecord, initialCapital float64) SessionStats {
	s := SessionStats{
		TotalTrades:    len(trades),
		CurrentCapital: initialCapital,
	}
	if s.TotalTrades == 0 {
		return s
	}

	var roiSum float64
	for _, t := range trades {
		switch {
		case t.ProfitLoss > 0:
			s.WinningTrades++
		case t.ProfitLoss < 0:
			s.LosingTrades++
		}
		s.NetProfitLoss += t.ProfitLoss
		s.TotalMarginUsed += t.Margin
		roiSum += t.ROI
	}

	s.WinRate = float64(s.WinningTrades) / float64(s.TotalTrades) * 100
	s.CurrentCapital = initialCapital + s.NetProfitLoss
	s.NetProfitLossPercentage = percentOf(s.CurrentCapital-initialCapital, initialCapital)
	s.AverageROI = roiSum / float64(s.TotalTrades)

	return s
}

// AggregateReturn is NetProfitLoss as a percentage of TotalMarginUsed.
// It is a margin-weighted return and is reported separately from
// AverageROI.
func (s SessionStats) AggregateReturn() float64 {
	return percentOf(s.NetProfitLoss, s.TotalMarginUsed)
}

// CapitalDrifted reports whether a persisted capital value differs from
// the recomputed one by more than float rounding.
func CapitalDrifted(persisted, recomputed float64) bool {
	const eps = 1e-9
	d := persisted - recomputed
	return d > eps || d < -eps
}

func percentOf(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return part / whole * 100
}
