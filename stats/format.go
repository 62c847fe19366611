package stats

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
)

// FormatCurrency renders a dollar amount as $1,234.56 (or -$1,234.56).
func FormatCurrency(amount float64) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return "$0.00"
	}
	cents := int64(math.Round(math.Abs(amount) * 100))
	sign := ""
	if amount < 0 && cents != 0 {
		sign = "-"
	}
	return fmt.Sprintf("%s$%s.%02d", sign, humanize.Comma(cents/100), cents%100)
}

// FormatPercentage renders a percentage with two decimals and an
// explicit + for non-negative values, e.g. +12.50% or -3.00%.
func FormatPercentage(value float64) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		value = 0
	}
	sign := ""
	if value >= 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, value)
}

// Formatted is the display form of SessionStats.
type Formatted struct {
	WinRate                 string `json:"win_rate"`
	CurrentCapital          string `json:"current_capital"`
	NetProfitLoss           string `json:"net_profit_loss"`
	NetProfitLossPercentage string `json:"net_profit_loss_percentage"`
	TotalMarginUsed         string `json:"total_margin_used"`
	AverageROI              string `json:"average_roi"`
}

func (s SessionStats) Format() Formatted {
	return Formatted{
		WinRate:                 fmt.Sprintf("%.1f%%", s.WinRate),
		CurrentCapital:          FormatCurrency(s.CurrentCapital),
		NetProfitLoss:           FormatCurrency(s.NetProfitLoss),
		NetProfitLossPercentage: FormatPercentage(s.NetProfitLossPercentage),
		TotalMarginUsed:         FormatCurrency(s.TotalMarginUsed),
		AverageROI:              FormatPercentage(s.AverageROI),
	}
}
