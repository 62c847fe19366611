package journal

import (
	"fmt"
	"html"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rustyeddy/tradelog/pkg/id"
)

// ROITolerance is how far (in percentage points) a caller supplied ROI
// may drift from profitLoss / margin * 100 before the trade is rejected.
const ROITolerance = 0.01

var strictPolicy = bluemonday.StrictPolicy()

// TradeInput is an unvalidated trade as submitted by a form or request.
// Pointer fields distinguish "missing" from zero.
type TradeInput struct {
	Margin     *float64 `json:"margin"`
	ProfitLoss *float64 `json:"profit_loss"`
	ROI        *float64 `json:"roi,omitempty"`
	EntrySide  string   `json:"entry_side"`
	Comment    string   `json:"comments,omitempty"`
}

// ParseTradeInput builds a TradeInput from raw text fields. Missing or
// non-numeric amounts are reported as ErrInvalidTradeInput.
func ParseTradeInput(margin, profitLoss, side, comment string) (TradeInput, error) {
	m, err := parseAmount("margin", margin)
	if err != nil {
		return TradeInput{}, err
	}
	pl, err := parseAmount("profit_loss", profitLoss)
	if err != nil {
		return TradeInput{}, err
	}
	return TradeInput{Margin: &m, ProfitLoss: &pl, EntrySide: side, Comment: comment}, nil
}

func parseAmount(field, s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: %s is required", ErrInvalidTradeInput, field)
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not a number", ErrInvalidTradeInput, field, s)
	}
	return v, nil
}

// Build validates the input and returns the trade to insert. ROI is
// derived from profit/loss and margin; a supplied ROI must agree with it.
func (in TradeInput) Build(sessionID string, now time.Time) (TradeRecord, error) {
	if sessionID == "" {
		return TradeRecord{}, fmt.Errorf("%w: session id is required", ErrInvalidTradeInput)
	}
	if in.Margin == nil {
		return TradeRecord{}, fmt.Errorf("%w: margin is required", ErrInvalidTradeInput)
	}
	if in.ProfitLoss == nil {
		return TradeRecord{}, fmt.Errorf("%w: profit_loss is required", ErrInvalidTradeInput)
	}
	margin, pl := *in.Margin, *in.ProfitLoss
	if !finite(margin) || !finite(pl) {
		return TradeRecord{}, fmt.Errorf("%w: amounts must be finite numbers", ErrInvalidTradeInput)
	}
	if margin <= 0 {
		return TradeRecord{}, fmt.Errorf("%w: margin must be positive", ErrInvalidTradeInput)
	}

	side, err := ParseSide(in.EntrySide)
	if err != nil {
		return TradeRecord{}, err
	}

	roi := DeriveROI(margin, pl)
	if in.ROI != nil && math.Abs(*in.ROI-roi) > ROITolerance {
		return TradeRecord{}, fmt.Errorf("%w: roi %.4f does not match profit_loss/margin (%.4f)",
			ErrInvalidTradeInput, *in.ROI, roi)
	}

	return TradeRecord{
		ID:         id.NewAt(now),
		SessionID:  sessionID,
		Margin:     margin,
		ROI:        roi,
		EntrySide:  side,
		ProfitLoss: pl,
		Comment:    SanitizeText(in.Comment),
		CreatedAt:  now.UTC(),
	}, nil
}

// SessionInput is an unvalidated new session.
type SessionInput struct {
	Name           string   `json:"name"`
	InitialCapital *float64 `json:"initial_capital"`
}

func (in SessionInput) Build(userID string, now time.Time) (SessionRecord, error) {
	if userID == "" {
		return SessionRecord{}, fmt.Errorf("%w: user id is required", ErrInvalidSession)
	}
	name := SanitizeText(in.Name)
	if name == "" {
		return SessionRecord{}, fmt.Errorf("%w: name is required", ErrInvalidSession)
	}
	if in.InitialCapital == nil {
		return SessionRecord{}, fmt.Errorf("%w: initial_capital is required", ErrInvalidSession)
	}
	capital := *in.InitialCapital
	if !finite(capital) || capital < 0 {
		return SessionRecord{}, fmt.Errorf("%w: initial_capital must be a number >= 0", ErrInvalidSession)
	}

	now = now.UTC()
	return SessionRecord{
		ID:             id.NewAt(now),
		UserID:         userID,
		Name:           name,
		InitialCapital: capital,
		CurrentCapital: capital,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// DeriveROI returns profitLoss as a percentage of margin, or 0 when
// margin is not positive.
func DeriveROI(margin, profitLoss float64) float64 {
	if margin <= 0 {
		return 0
	}
	return profitLoss / margin * 100
}

// ROIConsistent reports whether t.ROI agrees with its margin and P/L.
func ROIConsistent(t TradeRecord) bool {
	if t.Margin <= 0 {
		return true
	}
	return math.Abs(t.ROI-DeriveROI(t.Margin, t.ProfitLoss)) <= ROITolerance
}

// SanitizeText strips markup and unprintable runes from user supplied
// text and trims surrounding whitespace.
func SanitizeText(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || r == '\t' || r == '\n' {
			return r
		}
		return -1
	}, s)
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(s)))
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
