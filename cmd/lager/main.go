package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/joho/godotenv"

	"github.com/jecastrom/lager-build-sub000/internal/app"
	"github.com/jecastrom/lager-build-sub000/internal/catalog"
	catalogexport "github.com/jecastrom/lager-build-sub000/internal/catalog/export"
	"github.com/jecastrom/lager-build-sub000/internal/integration"
	"github.com/jecastrom/lager-build-sub000/internal/orders"
	"github.com/jecastrom/lager-build-sub000/internal/platform/store"
	"github.com/jecastrom/lager-build-sub000/internal/receiving"
	"github.com/jecastrom/lager-build-sub000/internal/suppliers"
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
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, os.Args[1:]); err != nil {
		logger.Error("command failed", slog.Any("error", err))
		os.Exit(1)
	}
}

// services bundles the wired domain layer for command handlers.
type services struct {
	workspace *workspace.Workspace
	catalog   *catalog.Service
	orders    *orders.Service
	receiving *receiving.Service
	tickets   *tickets.Service
	suppliers *suppliers.Service
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) error {
	var st store.Store
	if cfg.RedisAddr != "" {
		redisStore, err := store.NewRedis(ctx, cfg.RedisAddr, cfg.StoreNamespace)
		if err != nil {
			return fmt.Errorf("connect store: %w", err)
		}
		defer redisStore.Close()
		st = redisStore
	} else {
		logger.Warn("no REDIS_ADDR configured, state will not survive this process")
		st = store.NewMemory()
	}

	ws := workspace.New(st, logger, cfg.AuditTrailCap)
	if err := ws.Load(ctx); err != nil {
		return fmt.Errorf("load workspace: %w", err)
	}
	if err := ws.SeedTriggerConfig(ctx, cfg.AutomationDefaults()); err != nil {
		return fmt.Errorf("seed automation config: %w", err)
	}

	svcs := wire(ws, logger)

	if len(args) == 0 {
		return usage()
	}
	switch args[0] {
	case "export-csv":
		return exportCSV(ctx, svcs, args[1:])
	case "min-stock":
		return minStock(ctx, svcs)
	case "scorecards":
		return scorecards(ctx, svcs)
	case "trail":
		return trail(ctx, svcs)
	case "reset":
		return ws.Reset(ctx)
	default:
		return usage()
	}
}

// wire connects every service against the workspace. The receiving service
// gets its integration handler after construction; the handler needs the
// ticket generator, which needs the workspace-backed ticket service.
func wire(ws *workspace.Workspace, logger *slog.Logger) *services {
	catalogSvc := catalog.NewService(ws, ws)
	ticketSvc := tickets.NewService(ws, ws)
	receivingSvc := receiving.NewService(ws, catalogSvc, nil, ws, logger)
	orderSvc := orders.NewService(ws, receivingSvc, ticketSvc, ws)
	generator := tickets.NewGenerator(ticketSvc, ws, logger)
	receivingSvc.SetIntegration(integration.NewHooks(generator))
	return &services{
		workspace: ws,
		catalog:   catalogSvc,
		orders:    orderSvc,
		receiving: receivingSvc,
		tickets:   ticketSvc,
		suppliers: suppliers.NewService(ws),
	}
}

func usage() error {
	fmt.Fprintln(os.Stderr, "usage: lager <export-csv [path] | min-stock | scorecards | trail | reset>")
	return nil
}

func exportCSV(ctx context.Context, svcs *services, args []string) error {
	items, err := svcs.workspace.ListItems(ctx)
	if err != nil {
		return err
	}
	out := os.Stdout
	if len(args) > 0 {
		f, err := os.Create(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	return catalogexport.WriteCatalogCSV(out, items)
}

func minStock(ctx context.Context, svcs *services) error {
	items, err := svcs.catalog.BelowMinimum(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SKU\tName\tBestand\tMindestbestand")
	for _, item := range items {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", item.SKU, item.Name, item.Stock, item.MinStock)
	}
	return w.Flush()
}

func scorecards(ctx context.Context, svcs *services) error {
	cards, err := svcs.suppliers.Scorecards(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "Lieferant\tLieferungen\tPünktlich\tMängel\tScore")
	for _, card := range cards {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n",
			card.Supplier, card.Deliveries, card.OnTimeRate, card.DefectRate, card.Score)
	}
	return w.Flush()
}

func trail(ctx context.Context, svcs *services) error {
	entries, err := svcs.workspace.Trail(ctx)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		fmt.Printf("%s %-22s %s/%s\n", entry.At.Format("02.01.2006 15:04"), entry.Action, entry.Entity, entry.EntityID)
	}
	return nil
}
