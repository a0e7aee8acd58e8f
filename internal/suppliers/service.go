package suppliers

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
)

// Composite score weights. Defects weigh heaviest; a supplier that ships
// broken goods on time still scores badly.
var (
	weightDefect   = decimal.NewFromInt(40)
	weightLate     = decimal.NewFromInt(25)
	weightShortage = decimal.NewFromInt(20)
	weightOverage  = decimal.NewFromInt(15)
	perfectScore   = decimal.NewFromInt(100)
)

// LedgerPort exposes the delivery history as scoring observations.
type LedgerPort interface {
	ScoringEvents(ctx context.Context) ([]ScoringEvent, error)
}

// Service computes supplier scorecards on demand. Scores are a pure
// projection of the ledger, never stored.
type Service struct {
	ledger LedgerPort
}

// NewService constructs the scoring service.
func NewService(ledger LedgerPort) *Service {
	return &Service{ledger: ledger}
}

// Scorecards returns one card per supplier, sorted by name.
func (s *Service) Scorecards(ctx context.Context) ([]Scorecard, error) {
	events, err := s.ledger.ScoringEvents(ctx)
	if err != nil {
		return nil, err
	}
	grouped := make(map[string][]ScoringEvent)
	for _, evt := range events {
		if evt.Supplier == "" {
			continue
		}
		grouped[evt.Supplier] = append(grouped[evt.Supplier], evt)
	}
	cards := make([]Scorecard, 0, len(grouped))
	for supplier, supplierEvents := range grouped {
		cards = append(cards, buildScorecard(supplier, supplierEvents))
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].Supplier < cards[j].Supplier })
	return cards, nil
}

// ScorecardFor returns the card of a single supplier.
func (s *Service) ScorecardFor(ctx context.Context, supplier string) (Scorecard, error) {
	cards, err := s.Scorecards(ctx)
	if err != nil {
		return Scorecard{}, err
	}
	for _, card := range cards {
		if card.Supplier == supplier {
			return card, nil
		}
	}
	return Scorecard{}, ErrNotFound
}

func buildScorecard(supplier string, events []ScoringEvent) Scorecard {
	card := Scorecard{Supplier: supplier, Deliveries: len(events)}
	defective, short, over, dated, onTime := 0, 0, 0, 0, 0
	for _, evt := range events {
		if evt.Defective() {
			defective++
		}
		if evt.Open > 0 {
			short++
		}
		if evt.Overage > 0 {
			over++
		}
		if !evt.Expected.IsZero() {
			dated++
			if evt.OnTime() {
				onTime++
			}
		}
	}
	card.Dated = dated

	total := decimal.NewFromInt(int64(len(events)))
	card.DefectRate = ratio(defective, total)
	card.ShortageRate = ratio(short, total)
	card.OverageRate = ratio(over, total)

	lateRate := decimal.Zero
	if dated > 0 {
		datedTotal := decimal.NewFromInt(int64(dated))
		card.OnTimeRate = ratio(onTime, datedTotal)
		lateRate = decimal.NewFromInt(1).Sub(card.OnTimeRate)
	} else {
		// No expected dates on record: punctuality is unknown, not bad.
		card.OnTimeRate = decimal.NewFromInt(1)
	}

	penalty := weightDefect.Mul(card.DefectRate).
		Add(weightShortage.Mul(card.ShortageRate)).
		Add(weightOverage.Mul(card.OverageRate)).
		Add(weightLate.Mul(lateRate))
	score := perfectScore.Sub(penalty)
	if score.IsNegative() {
		score = decimal.Zero
	}
	card.Score = score.Round(1)
	return card
}

func ratio(count int, total decimal.Decimal) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(count)).Div(total).Round(4)
}
