package orders

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryOrderRepo struct {
	orders map[string]PurchaseOrder
}

func newMemoryOrderRepo() *memoryOrderRepo {
	return &memoryOrderRepo{orders: make(map[string]PurchaseOrder)}
}

func (r *memoryOrderRepo) GetOrder(ctx context.Context, id string) (PurchaseOrder, error) {
	order, ok := r.orders[id]
	if !ok {
		return PurchaseOrder{}, ErrNotFound
	}
	return order, nil
}

func (r *memoryOrderRepo) ListOrders(ctx context.Context) ([]PurchaseOrder, error) {
	orders := make([]PurchaseOrder, 0, len(r.orders))
	for _, order := range r.orders {
		orders = append(orders, order)
	}
	return orders, nil
}

func (r *memoryOrderRepo) SaveOrder(ctx context.Context, order PurchaseOrder) error {
	r.orders[order.ID] = order
	return nil
}

type stubReceipts struct {
	ensured   []string
	refreshed []string
	archived  []string
	cancelled []string
	batchIDs  []string
}

func (s *stubReceipts) EnsureMaster(ctx context.Context, orderID string, expected time.Time) error {
	s.ensured = append(s.ensured, orderID)
	return nil
}

func (s *stubReceipts) RefreshPreDelivery(ctx context.Context, orderID string, expected time.Time) error {
	s.refreshed = append(s.refreshed, orderID)
	return nil
}

func (s *stubReceipts) ArchiveReceipts(ctx context.Context, orderID string) ([]string, error) {
	s.archived = append(s.archived, orderID)
	return s.batchIDs, nil
}

func (s *stubReceipts) CancelReceipts(ctx context.Context, orderID string) ([]string, error) {
	s.cancelled = append(s.cancelled, orderID)
	return s.batchIDs, nil
}

type stubTickets struct {
	calls  [][]string
	closed int
}

func (s *stubTickets) CloseForBatches(ctx context.Context, batchIDs []string, note string) (int, error) {
	s.calls = append(s.calls, batchIDs)
	return s.closed, nil
}

func TestCreateOrder(t *testing.T) {
	repo := newMemoryOrderRepo()
	receipts := &stubReceipts{}
	svc := NewService(repo, receipts, nil, nil)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, CreateOrderInput{
		ID:       "PO-1",
		Supplier: "Würth GmbH",
		Lines:    []LineInput{{SKU: "EL-018", Name: "Akku 18V", Quantity: 10}},
	})
	require.NoError(t, err)
	require.Equal(t, StatusOpen, order.Status)
	require.Equal(t, []string{"PO-1"}, receipts.ensured)

	_, err = svc.CreateOrder(ctx, CreateOrderInput{ID: "PO-1", Supplier: "Doppelt", Lines: []LineInput{{SKU: "X", Quantity: 1}}})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateOrder(ctx, CreateOrderInput{Supplier: "Ohne Zeilen"})
	require.ErrorIs(t, err, ErrValidation)
}

func TestCreateOrderIdentityStatus(t *testing.T) {
	repo := newMemoryOrderRepo()
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, CreateOrderInput{
		Supplier: "Bosch",
		Identity: StatusProject,
		Lines:    []LineInput{{SKU: "EL-018", Quantity: 5}},
	})
	require.NoError(t, err)
	require.Equal(t, StatusProject, order.Status)
	require.True(t, order.Status.Identity())
	require.NotEmpty(t, order.ID)
}

func TestLineOperations(t *testing.T) {
	repo := newMemoryOrderRepo()
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, CreateOrderInput{ID: "PO-2", Supplier: "Meier", Lines: []LineInput{{SKU: "A", Quantity: 1}}})
	require.NoError(t, err)

	order, err = svc.AddLine(ctx, order.ID, LineInput{SKU: "B", Name: "Nachtrag", Quantity: 2})
	require.NoError(t, err)
	require.Len(t, order.Lines, 2)
	require.True(t, order.Lines[1].AddedLater)

	order, err = svc.RemoveLine(ctx, order.ID, "A")
	require.NoError(t, err)
	require.True(t, order.Lines[0].Removed)
	require.Len(t, order.ActiveLines(), 1)

	_, err = svc.RemoveLine(ctx, order.ID, "A")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestArchiveCascadeIdempotent(t *testing.T) {
	repo := newMemoryOrderRepo()
	receipts := &stubReceipts{batchIDs: []string{"batch-1", "batch-2"}}
	tickets := &stubTickets{closed: 2}
	svc := NewService(repo, receipts, tickets, nil)
	ctx := context.Background()

	_, err := svc.CreateOrder(ctx, CreateOrderInput{ID: "PO-3", Supplier: "Meier", Lines: []LineInput{{SKU: "A", Quantity: 1}}})
	require.NoError(t, err)

	result, err := svc.Archive(ctx, "PO-3")
	require.NoError(t, err)
	require.False(t, result.AlreadyDone)
	require.Equal(t, 2, result.BatchesFlagged)
	require.Equal(t, 2, result.TicketsClosed)

	result, err = svc.Archive(ctx, "PO-3")
	require.NoError(t, err)
	require.True(t, result.AlreadyDone)
	require.Len(t, receipts.archived, 1, "cascade must not run twice")
	require.Len(t, tickets.calls, 1)
}

func TestCancelAfterPartialReportsResidual(t *testing.T) {
	repo := newMemoryOrderRepo()
	receipts := &stubReceipts{batchIDs: []string{"batch-1"}}
	tickets := &stubTickets{closed: 1}
	svc := NewService(repo, receipts, tickets, nil)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, CreateOrderInput{ID: "PO-4", Supplier: "Meier", Lines: []LineInput{{SKU: "A", Quantity: 10}}})
	require.NoError(t, err)

	order.Lines[0].QuantityReceived = 6
	require.NoError(t, repo.SaveOrder(ctx, order))

	result, err := svc.Cancel(ctx, "PO-4")
	require.NoError(t, err)
	require.Len(t, result.ResidualReceived, 1)
	require.Equal(t, 6, result.ResidualReceived[0].QuantityReceived)

	got, err := svc.Get(ctx, "PO-4")
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, got.Status)
	require.True(t, got.Archived)
	require.Equal(t, 6, got.Lines[0].QuantityReceived, "residual stays on the cancelled order")

	result, err = svc.Cancel(ctx, "PO-4")
	require.NoError(t, err)
	require.True(t, result.AlreadyDone)
	require.Len(t, receipts.cancelled, 1)
}
