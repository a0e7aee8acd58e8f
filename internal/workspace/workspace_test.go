package workspace

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jecastrom/lager-build-sub000/internal/catalog"
	"github.com/jecastrom/lager-build-sub000/internal/orders"
	"github.com/jecastrom/lager-build-sub000/internal/platform/store"
	"github.com/jecastrom/lager-build-sub000/internal/receiving"
	"github.com/jecastrom/lager-build-sub000/internal/shared"
	"github.com/jecastrom/lager-build-sub000/internal/tickets"
)

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	ws := New(st, nil, 0)

	order := orders.PurchaseOrder{
		ID:           "PO-1",
		Supplier:     "Würth GmbH",
		Status:       orders.StatusPartial,
		CreatedAt:    time.Date(2026, time.August, 20, 8, 0, 0, 0, time.UTC),
		ExpectedDate: time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC),
		Lines:        []orders.Line{{SKU: "X", Name: "Akku", Quantity: 10, QuantityReceived: 6}},
	}
	require.NoError(t, ws.SaveOrder(ctx, order))

	master := receiving.ReceiptMaster{
		ID:      "m-1",
		OrderID: "PO-1",
		Status:  receiving.StatusPartial,
		Deliveries: []receiving.DeliveryLog{{
			ID: "batch-1", NoteNumber: "LS-101",
			Date:  time.Date(2026, time.August, 30, 10, 0, 0, 0, time.UTC),
			Lines: []receiving.DeliveryLine{{SKU: "X", Received: 6, Accepted: 6, Linked: true, Ordered: 10, Open: 4}},
		}},
	}
	require.NoError(t, ws.SaveMaster(ctx, master))
	require.NoError(t, ws.AppendHeader(ctx, receiving.ReceiptHeader{BatchID: "batch-1", OrderID: "PO-1", NoteNumber: "LS-101", Quantity: 6, Status: receiving.StatusPartial}))
	require.NoError(t, ws.SaveItem(ctx, catalog.StockItem{ID: "i-1", SKU: "X", Name: "Akku", Stock: 6}))
	require.NoError(t, ws.AppendStockLog(ctx, catalog.StockLog{ID: "l-1", ItemID: "i-1", SKU: "X", Action: catalog.ActionAdd, Quantity: 6, Context: catalog.ContextPONormal}))
	require.NoError(t, ws.SaveTicket(ctx, tickets.Ticket{ID: "t-1", BatchID: "batch-1", Subject: "Fehlmenge", Status: tickets.StatusOpen, Messages: []tickets.Message{{ID: "m", Author: "System", Text: "4 offen", System: true}}}))
	require.NoError(t, ws.AppendTimeline(ctx, tickets.TimelineComment{ID: "c-1", BatchID: "batch-1", Author: "System", Text: "Fehlmenge:\n- X: 4 offen"}))
	cfg := tickets.DefaultTriggerConfig()
	cfg.TicketOnOverage = false
	require.NoError(t, ws.SetTriggerConfig(ctx, cfg))
	require.NoError(t, ws.Record(ctx, shared.NewAuditEntry("mara", "ORDER_CREATE", "orders", "PO-1", nil)))

	// A second workspace on the same store sees identical state.
	restored := New(st, nil, 0)
	require.NoError(t, restored.Load(ctx))

	gotOrder, err := restored.GetOrder(ctx, "PO-1")
	require.NoError(t, err)
	require.Equal(t, order, gotOrder)

	gotMaster, err := restored.GetMasterByOrder(ctx, "PO-1")
	require.NoError(t, err)
	require.Equal(t, master, gotMaster)

	headers, err := restored.ListHeaders(ctx, "PO-1")
	require.NoError(t, err)
	require.Len(t, headers, 1)
	require.Equal(t, 6, headers[0].Quantity)

	item, err := restored.GetItemBySKU(ctx, "X")
	require.NoError(t, err)
	require.Equal(t, 6, item.Stock)

	logs, err := restored.ListStockLogs(ctx, "i-1")
	require.NoError(t, err)
	require.Len(t, logs, 1)

	ticket, err := restored.GetTicket(ctx, "t-1")
	require.NoError(t, err)
	require.Len(t, ticket.Messages, 1)
	require.True(t, ticket.Messages[0].System)

	comments, err := restored.ListTimeline(ctx, "batch-1")
	require.NoError(t, err)
	require.Len(t, comments, 1)

	gotCfg, err := restored.TriggerConfig(ctx)
	require.NoError(t, err)
	require.False(t, gotCfg.TicketOnOverage, "persisted config wins over defaults")

	trail, err := restored.Trail(ctx)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	require.Equal(t, "ORDER_CREATE", trail[0].Action)
}

func TestAuditTrailCap(t *testing.T) {
	ctx := context.Background()
	ws := New(store.NewMemory(), nil, 5)

	for i := 0; i < 8; i++ {
		entry := shared.NewAuditEntry("", fmt.Sprintf("ACTION_%d", i), "orders", "", nil)
		require.NoError(t, ws.Record(ctx, entry))
	}

	trail, err := ws.Trail(ctx)
	require.NoError(t, err)
	require.Len(t, trail, 5)
	require.Equal(t, "ACTION_3", trail[0].Action, "oldest entries are dropped first")
	require.Equal(t, "ACTION_7", trail[4].Action)

	require.Error(t, ws.Record(ctx, shared.AuditEntry{}), "entries without action are rejected")
}

func TestDefensiveCopies(t *testing.T) {
	ctx := context.Background()
	ws := New(nil, nil, 0)

	order := orders.PurchaseOrder{ID: "PO-1", Supplier: "A", Status: orders.StatusOpen, Lines: []orders.Line{{SKU: "X", Quantity: 10}}}
	require.NoError(t, ws.SaveOrder(ctx, order))

	// Mutating the caller's copy must not leak into the workspace.
	order.Lines[0].Quantity = 99
	got, err := ws.GetOrder(ctx, "PO-1")
	require.NoError(t, err)
	require.Equal(t, 10, got.Lines[0].Quantity)

	// Mutating a returned copy must not leak either.
	got.Lines[0].QuantityReceived = 7
	again, err := ws.GetOrder(ctx, "PO-1")
	require.NoError(t, err)
	require.Zero(t, again.Lines[0].QuantityReceived)
}

func TestTriggerConfigDefaultsWhenUnset(t *testing.T) {
	ws := New(nil, nil, 0)
	cfg, err := ws.TriggerConfig(context.Background())
	require.NoError(t, err)
	require.Equal(t, tickets.DefaultTriggerConfig(), cfg)
}

func TestSeedTriggerConfig(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	ws := New(st, nil, 0)

	seeded := tickets.DefaultTriggerConfig()
	seeded.TicketOnShortage = false
	require.NoError(t, ws.SeedTriggerConfig(ctx, seeded))

	got, err := ws.TriggerConfig(ctx)
	require.NoError(t, err)
	require.False(t, got.TicketOnShortage, "startup defaults take effect when nothing is stored")

	// The seed persists: a fresh workspace on the same store sees it.
	restored := New(st, nil, 0)
	require.NoError(t, restored.Load(ctx))
	got, err = restored.TriggerConfig(ctx)
	require.NoError(t, err)
	require.False(t, got.TicketOnShortage)

	// An operator's stored choice survives later seeding attempts.
	operator := tickets.DefaultTriggerConfig()
	operator.TicketOnOverage = false
	require.NoError(t, restored.SetTriggerConfig(ctx, operator))
	require.NoError(t, restored.SeedTriggerConfig(ctx, tickets.DefaultTriggerConfig()))
	got, err = restored.TriggerConfig(ctx)
	require.NoError(t, err)
	require.False(t, got.TicketOnOverage)
	require.True(t, got.TicketOnShortage, "the operator config replaced the seed entirely")
}

func TestScoringEventsProjection(t *testing.T) {
	ctx := context.Background()
	ws := New(nil, nil, 0)

	expected := time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, ws.SaveOrder(ctx, orders.PurchaseOrder{ID: "PO-1", Supplier: "Würth GmbH", Status: orders.StatusCompleted, ExpectedDate: expected}))
	require.NoError(t, ws.SaveMaster(ctx, receiving.ReceiptMaster{
		ID: "m-1", OrderID: "PO-1",
		Deliveries: []receiving.DeliveryLog{
			{ID: "b-1", Date: expected, Lines: []receiving.DeliveryLine{{SKU: "X", Damaged: 1, Open: 2}}},
			{ID: "b-2", Date: expected, Reversed: true, Lines: []receiving.DeliveryLine{{SKU: "X", Damaged: 5}}},
			{ID: "b-3", Date: expected, Return: true, Lines: []receiving.DeliveryLine{{SKU: "X", Accepted: -2}}},
		},
	}))
	// Unlinked master: no supplier attribution, no events.
	require.NoError(t, ws.SaveMaster(ctx, receiving.ReceiptMaster{
		ID:         "m-2",
		Deliveries: []receiving.DeliveryLog{{ID: "b-4", Date: expected, Lines: []receiving.DeliveryLine{{SKU: "Y", Received: 1}}}},
	}))

	events, err := ws.ScoringEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1, "reversed, return, and unlinked entries are skipped")
	require.Equal(t, "Würth GmbH", events[0].Supplier)
	require.Equal(t, 1, events[0].Damaged)
	require.Equal(t, 2, events[0].Open)
	require.Equal(t, expected, events[0].Expected)
}

func TestSnapshotIsIndependent(t *testing.T) {
	ctx := context.Background()
	ws := New(nil, nil, 0)

	require.NoError(t, ws.SaveOrder(ctx, orders.PurchaseOrder{ID: "PO-1", Supplier: "A", Status: orders.StatusOpen, Lines: []orders.Line{{SKU: "X", Quantity: 10}}}))

	snap := ws.Snapshot()
	require.Len(t, snap.Orders, 1)
	snap.Orders[0].Lines[0].Quantity = 99

	got, err := ws.GetOrder(ctx, "PO-1")
	require.NoError(t, err)
	require.Equal(t, 10, got.Lines[0].Quantity)
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	ws := New(st, nil, 0)

	require.NoError(t, ws.SaveOrder(ctx, orders.PurchaseOrder{ID: "PO-1", Supplier: "A", Status: orders.StatusOpen}))
	require.NoError(t, ws.Reset(ctx))

	_, err := ws.GetOrder(ctx, "PO-1")
	require.ErrorIs(t, err, orders.ErrNotFound)

	restored := New(st, nil, 0)
	require.NoError(t, restored.Load(ctx))
	list, err := restored.ListOrders(ctx)
	require.NoError(t, err)
	require.Empty(t, list)
}
