package suppliers

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type stubLedger struct {
	events []ScoringEvent
}

func (s stubLedger) ScoringEvents(ctx context.Context) ([]ScoringEvent, error) {
	return s.events, nil
}

func day(d int) time.Time {
	return time.Date(2026, time.September, d, 12, 0, 0, 0, time.UTC)
}

func TestPerfectSupplier(t *testing.T) {
	svc := NewService(stubLedger{events: []ScoringEvent{
		{Supplier: "Würth GmbH", Delivered: day(1), Expected: day(1)},
		{Supplier: "Würth GmbH", Delivered: day(3), Expected: day(4)},
	}})

	card, err := svc.ScorecardFor(context.Background(), "Würth GmbH")
	require.NoError(t, err)
	require.Equal(t, 2, card.Deliveries)
	require.True(t, card.Score.Equal(decimal.NewFromInt(100)), "got %s", card.Score)
	require.True(t, card.OnTimeRate.Equal(decimal.NewFromInt(1)))
	require.True(t, card.DefectRate.IsZero())
}

func TestDefectsWeighHeaviest(t *testing.T) {
	svc := NewService(stubLedger{events: []ScoringEvent{
		{Supplier: "A", Delivered: day(1), Expected: day(1), Damaged: 2},
		{Supplier: "A", Delivered: day(2), Expected: day(2)},
	}})

	card, err := svc.ScorecardFor(context.Background(), "A")
	require.NoError(t, err)
	// Half the deliveries defective: 100 - 40*0.5 = 80.
	require.True(t, card.Score.Equal(decimal.NewFromInt(80)), "got %s", card.Score)
}

func TestLateAndShortDeliveries(t *testing.T) {
	svc := NewService(stubLedger{events: []ScoringEvent{
		{Supplier: "B", Delivered: day(5), Expected: day(2), Open: 3},
	}})

	card, err := svc.ScorecardFor(context.Background(), "B")
	require.NoError(t, err)
	// Fully late and fully short: 100 - 25 - 20 = 55.
	require.True(t, card.Score.Equal(decimal.NewFromInt(55)), "got %s", card.Score)
	require.True(t, card.OnTimeRate.IsZero())
}

func TestUndatedDeliveriesDoNotCountAsLate(t *testing.T) {
	svc := NewService(stubLedger{events: []ScoringEvent{
		{Supplier: "C", Delivered: day(1)},
	}})

	card, err := svc.ScorecardFor(context.Background(), "C")
	require.NoError(t, err)
	require.Zero(t, card.Dated)
	require.True(t, card.Score.Equal(decimal.NewFromInt(100)), "got %s", card.Score)
}

func TestScoreFloorsAtZero(t *testing.T) {
	svc := NewService(stubLedger{events: []ScoringEvent{
		{Supplier: "D", Delivered: day(9), Expected: day(1), Damaged: 1, Open: 2, Overage: 1},
	}})

	card, err := svc.ScorecardFor(context.Background(), "D")
	require.NoError(t, err)
	// 100 - 40 - 25 - 20 - 15 = 0; any further penalty would clamp.
	require.True(t, card.Score.Equal(decimal.Zero), "got %s", card.Score)
}

func TestScorecardsSortedBySupplier(t *testing.T) {
	svc := NewService(stubLedger{events: []ScoringEvent{
		{Supplier: "Zeta", Delivered: day(1)},
		{Supplier: "Alpha", Delivered: day(1)},
		{Supplier: ""},
	}})

	cards, err := svc.Scorecards(context.Background())
	require.NoError(t, err)
	require.Len(t, cards, 2, "unattributed deliveries are skipped")
	require.Equal(t, "Alpha", cards[0].Supplier)
	require.Equal(t, "Zeta", cards[1].Supplier)

	_, err = svc.ScorecardFor(context.Background(), "Niemand")
	require.ErrorIs(t, err, ErrNotFound)
}
