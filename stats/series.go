package stats

import (
	"sort"
	"time"

	"github.com/rustyeddy/tradelog/journal"
)

// DateLayout keys per-day aggregation.
const DateLayout = "2006-01-02"

// CapitalPoint is the running capital after a trade.
type CapitalPoint struct {
	Trade      int          `json:"trade"`
	Capital    float64      `json:"capital"`
	ProfitLoss float64      `json:"profit_loss"`
	ROI        float64      `json:"roi"`
	Margin     float64      `json:"margin"`
	Side       journal.Side `json:"side"`
	Date       string       `json:"date"`
}

// Distribution splits outcomes by sign. Loss is reported as a positive
// magnitude; break-even trades are in neither bucket.
type Distribution struct {
	Profit      float64 `json:"profit"`
	Loss        float64 `json:"loss"`
	ProfitCount int     `json:"profit_count"`
	LossCount   int     `json:"loss_count"`
}

// DayPerformance accumulates all trades created on one calendar day.
type DayPerformance struct {
	Date       string  `json:"date"`
	ProfitLoss float64 `json:"profit_loss"`
	Trades     int     `json:"trades"`
	Volume     float64 `json:"volume"`
}

// TimelinePoint carries prefix aggregates up to and including a trade.
type TimelinePoint struct {
	Trade            int     `json:"trade"`
	ProfitLoss       float64 `json:"profit_loss"`
	CumulativeProfit float64 `json:"cumulative_profit"`
	WinRate          float64 `json:"win_rate"`
	ROI              float64 `json:"roi"`
	Date             string  `json:"date"`
}

// Dashboard bundles the stats and every chart series for one session.
type Dashboard struct {
	Stats        SessionStats     `json:"stats"`
	Capital      []CapitalPoint   `json:"capital"`
	Distribution Distribution     `json:"distribution"`
	Days         []DayPerformance `json:"days"`
	Timeline     []TimelinePoint  `json:"timeline"`
}

// BuildDashboard computes stats and all series in one pass over a
// chronologically sorted copy of trades.
func BuildDashboard(trades []journal.TradeRecord, initialCapital float64, loc *time.Location) Dashboard {
	ordered := Chronological(trades)
	return Dashboard{
		Stats:        Compute(ordered, initialCapital),
		Capital:      CapitalCurve(ordered, initialCapital, loc),
		Distribution: PLDistribution(ordered),
		Days:         ByDay(ordered, loc),
		Timeline:     Timeline(ordered, loc),
	}
}

// Chronological returns a copy of trades ordered oldest first. Store
// reads come back newest first; the series below index trades in the
// order they happened.
func Chronological(trades []journal.TradeRecord) []journal.TradeRecord {
	out := make([]journal.TradeRecord, len(trades))
	copy(out, trades)
	sort.SliceStable(out, func(i, k int) bool {
		if out[i].CreatedAt.Equal(out[k].CreatedAt) {
			return out[i].ID < out[k].ID
		}
		return out[i].CreatedAt.Before(out[k].CreatedAt)
	})
	return out
}

// CapitalCurve returns capital after each trade, 1-indexed, in the order
// given.
func CapitalCurve(trades []journal.TradeRecord, initialCapital float64, loc *time.Location) []CapitalPoint {
	out := make([]CapitalPoint, 0, len(trades))
	capital := initialCapital
	for i, t := range trades {
		capital += t.ProfitLoss
		out = append(out, CapitalPoint{
			Trade:      i + 1,
			Capital:    capital,
			ProfitLoss: t.ProfitLoss,
			ROI:        t.ROI,
			Margin:     t.Margin,
			Side:       t.EntrySide,
			Date:       dateKey(t.CreatedAt, loc),
		})
	}
	return out
}

func PLDistribution(trades []journal.TradeRecord) Distribution {
	var d Distribution
	for _, t := range trades {
		switch {
		case t.ProfitLoss > 0:
			d.Profit += t.ProfitLoss
			d.ProfitCount++
		case t.ProfitLoss < 0:
			d.Loss -= t.ProfitLoss
			d.LossCount++
		}
	}
	return d
}

// ByDay groups trades by calendar day in loc. Days appear in the order
// they are first seen.
func ByDay(trades []journal.TradeRecord, loc *time.Location) []DayPerformance {
	out := []DayPerformance{}
	index := map[string]int{}
	for _, t := range trades {
		key := dateKey(t.CreatedAt, loc)
		i, ok := index[key]
		if !ok {
			index[key] = len(out)
			out = append(out, DayPerformance{Date: key})
			i = len(out) - 1
		}
		out[i].ProfitLoss += t.ProfitLoss
		out[i].Trades++
		out[i].Volume += t.Margin
	}
	return out
}

// Timeline returns, for each trade, the cumulative P/L and the win rate
// over the prefix ending at that trade.
func Timeline(trades []journal.TradeRecord, loc *time.Location) []TimelinePoint {
	out := make([]TimelinePoint, 0, len(trades))
	var (
		cumulative float64
		wins       int
	)
	for i, t := range trades {
		cumulative += t.ProfitLoss
		if t.ProfitLoss > 0 {
			wins++
		}
		out = append(out, TimelinePoint{
			Trade:            i + 1,
			ProfitLoss:       t.ProfitLoss,
			CumulativeProfit: cumulative,
			WinRate:          float64(wins) / float64(i+1) * 100,
			ROI:              t.ROI,
			Date:             dateKey(t.CreatedAt, loc),
		})
	}
	return out
}

func dateKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DateLayout)
}
