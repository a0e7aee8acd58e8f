// Command seed populates a workspace with demo data through the public
// services, so every posting runs the same reconciliation, status and
// ticket paths as real input.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/jecastrom/lager-build-sub000/internal/app"
	"github.com/jecastrom/lager-build-sub000/internal/catalog"
	"github.com/jecastrom/lager-build-sub000/internal/integration"
	"github.com/jecastrom/lager-build-sub000/internal/orders"
	"github.com/jecastrom/lager-build-sub000/internal/platform/store"
	"github.com/jecastrom/lager-build-sub000/internal/receiving"
	"github.com/jecastrom/lager-build-sub000/internal/tickets"
	"github.com/jecastrom/lager-build-sub000/internal/workspace"
)

func main() {
	_ = godotenv.Load()
	cfg, err := app.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)
	if err := seed(context.Background(), cfg, logger); err != nil {
		logger.Error("seed failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("workspace seeded")
}

func seed(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	var st store.Store
	if cfg.RedisAddr != "" {
		redisStore, err := store.NewRedis(ctx, cfg.RedisAddr, cfg.StoreNamespace)
		if err != nil {
			return err
		}
		defer redisStore.Close()
		st = redisStore
	} else {
		return fmt.Errorf("seeding needs REDIS_ADDR, an in-memory workspace dies with the process")
	}

	ws := workspace.New(st, logger, cfg.AuditTrailCap)
	if err := ws.Load(ctx); err != nil {
		return err
	}
	if err := ws.Reset(ctx); err != nil {
		return err
	}
	if err := ws.SeedTriggerConfig(ctx, cfg.AutomationDefaults()); err != nil {
		return err
	}

	catalogSvc := catalog.NewService(ws, ws)
	ticketSvc := tickets.NewService(ws, ws)
	receivingSvc := receiving.NewService(ws, catalogSvc, nil, ws, logger)
	orderSvc := orders.NewService(ws, receivingSvc, ticketSvc, ws)
	generator := tickets.NewGenerator(ticketSvc, ws, logger)
	receivingSvc.SetIntegration(integration.NewHooks(generator))

	for _, input := range []catalog.CreateItemInput{
		{SKU: "AKKU-18V", Name: "Akku 18V 5Ah", System: "Akku-System", Stock: 4, MinStock: 6, Location: cfg.DefaultWarehouse, Manufacturer: "Bosch", Capacity: "5.0 Ah"},
		{SKU: "KBL-NYM-50", Name: "NYM-J 3x1,5 50m", System: "Elektro", Stock: 12, MinStock: 5, Location: cfg.DefaultWarehouse},
		{SKU: "SCHR-SPAX-4", Name: "Spax 4x40 (500)", System: "Befestigung", Stock: 30, MinStock: 10, Location: cfg.DefaultWarehouse, Manufacturer: "Spax"},
	} {
		if _, err := catalogSvc.CreateItem(ctx, input); err != nil {
			return err
		}
	}

	yesterday := time.Now().AddDate(0, 0, -1)
	order, err := orderSvc.CreateOrder(ctx, orders.CreateOrderInput{
		Supplier:     "Würth GmbH",
		ExpectedDate: yesterday,
		Lines: []orders.LineInput{
			{SKU: "AKKU-18V", Name: "Akku 18V 5Ah", Quantity: 10},
			{SKU: "SCHR-SPAX-4", Name: "Spax 4x40 (500)", Quantity: 20},
		},
	})
	if err != nil {
		return err
	}

	// A partial delivery with one damaged unit: exercises reconciliation,
	// status derivation and the quality ticket.
	if _, err := receivingSvc.PostDelivery(ctx, receiving.PostDeliveryInput{
		OrderID:    order.ID,
		NoteNumber: "LS-2026-0815",
		Warehouse:  cfg.DefaultWarehouse,
		Lines: []receiving.LineInput{
			{SKU: "AKKU-18V", Received: 6, Damaged: 1, Note: "Karton eingedrückt"},
			{SKU: "SCHR-SPAX-4", Received: 20},
		},
	}); err != nil {
		return err
	}

	// A second, fully open order stays in its pre-delivery badge.
	_, err = orderSvc.CreateOrder(ctx, orders.CreateOrderInput{
		Supplier:     "Sonepar",
		ExpectedDate: time.Now().AddDate(0, 0, 1),
		Lines:        []orders.LineInput{{SKU: "KBL-NYM-50", Name: "NYM-J 3x1,5 50m", Quantity: 8}},
	})
	return err
}
