// Package suppliers derives vendor scorecards from the delivery ledger.
package suppliers

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ScoringEvent is one finalized delivery observation. Reversed ledger
// entries never become events; returns and reversals are corrections, not
// supplier performance.
type ScoringEvent struct {
	Supplier  string
	Delivered time.Time
	Expected  time.Time
	Damaged   int
	Wrong     int
	Open      int
	Overage   int
}

// Defective reports whether the delivery carried quality defects.
func (e ScoringEvent) Defective() bool {
	return e.Damaged > 0 || e.Wrong > 0
}

// OnTime reports whether the delivery arrived on or before the expected
// day. Events without an expected date report false and are excluded from
// the on-time ratio.
func (e ScoringEvent) OnTime() bool {
	if e.Expected.IsZero() {
		return false
	}
	expected := time.Date(e.Expected.Year(), e.Expected.Month(), e.Expected.Day(), 0, 0, 0, 0, e.Expected.Location())
	delivered := time.Date(e.Delivered.Year(), e.Delivered.Month(), e.Delivered.Day(), 0, 0, 0, 0, e.Delivered.Location())
	return !delivered.After(expected)
}

// Scorecard aggregates a supplier's delivery performance. Rates are
// incidence ratios in [0,1]; Score is a composite in [0,100].
type Scorecard struct {
	Supplier     string          `json:"supplier"`
	Deliveries   int             `json:"deliveries"`
	Dated        int             `json:"dated"`
	OnTimeRate   decimal.Decimal `json:"onTimeRate"`
	DefectRate   decimal.Decimal `json:"defectRate"`
	ShortageRate decimal.Decimal `json:"shortageRate"`
	OverageRate  decimal.Decimal `json:"overageRate"`
	Score        decimal.Decimal `json:"score"`
}

// ErrNotFound indicates the ledger holds no deliveries for the supplier.
var ErrNotFound = errors.New("suppliers: no deliveries for supplier")
