package main

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	orderoctopus "github.com/martijnmoret-ds/OrderOctopus"
	"github.com/martijnmoret-ds/OrderOctopus/internal/config"
	"github.com/martijnmoret-ds/OrderOctopus/internal/handler"
	"github.com/martijnmoret-ds/OrderOctopus/internal/middleware"
	"github.com/martijnmoret-ds/OrderOctopus/internal/repository"
	"github.com/martijnmoret-ds/OrderOctopus/internal/service"
	"github.com/martijnmoret-ds/OrderOctopus/internal/telegram"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Run migrations
	migrationsFS, err := fs.Sub(orderoctopus.MigrationsFS, "migrations")
	if err != nil {
		slog.Error("failed to load embedded migrations", "error", err)
		os.Exit(1)
	}
	if err := repository.RunMigrations(cfg.DatabaseURL, migrationsFS); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	queries := repository.New(pool)

	// Initialize services
	venueService := service.NewVenueService(pool, queries)
	menuService := service.NewMenuService(pool, queries)
	orderService := service.NewOrderService(pool, queries)
	billingService := service.NewBillingService(pool, queries)
	importService := service.NewMenuImportService(pool, queries, billingService)
	extractor := service.NewOpenRouterExtractor(cfg.OpenRouterKey, cfg.ExtractorModel, cfg.ExtractorTimeout)
	sessions := service.NewSessionStore(cfg.SessionTTL)

	// Handler pointer for use in default handler closure
	var h *handler.Handler

	opts := []bot.Option{
		bot.WithMiddlewares(
			middleware.Recover(),
			middleware.Logging(),
			middleware.VenueLoader(venueService),
		),
		bot.WithDefaultHandler(func(ctx context.Context, b *bot.Bot, update *models.Update) {
			if h == nil {
				return
			}
			h.HandleDefault(ctx, b, update)
		}),
	}

	b, err := bot.New(cfg.BotToken, opts...)
	if err != nil {
		slog.Error("failed to create bot", "error", err)
		os.Exit(1)
	}

	me, err := b.GetMe(ctx)
	if err != nil {
		slog.Error("failed to get bot info", "error", err)
		os.Exit(1)
	}

	notifier := telegram.NewNotifier(b)
	approvalService := service.NewApprovalService(orderService, billingService, venueService, notifier)
	orchestrator := service.NewOrchestrator(venueService, menuService, orderService, extractor, approvalService, sessions, cfg)

	h = handler.New(handler.Deps{
		Bot:             b,
		Cfg:             cfg,
		Orchestrator:    orchestrator,
		VenueService:    venueService,
		MenuService:     menuService,
		OrderService:    orderService,
		BillingService:  billingService,
		ApprovalService: approvalService,
		ImportService:   importService,
		BotUsername:     me.Username,
	})
	h.Register()

	// Plain text routes into the conversation
	b.RegisterHandler(bot.HandlerTypeMessageText, "", bot.MatchTypePrefix, func(ctx context.Context, b *bot.Bot, update *models.Update) {
		if update.Message == nil {
			return
		}
		if len(update.Message.Text) > 0 && update.Message.Text[0] == '/' {
			return
		}
		h.HandleTextPrivate(ctx, b, update)
	})

	// Expired session janitor
	go func() {
		ticker := time.NewTicker(config.SessionSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := sessions.Sweep(); removed > 0 {
					slog.Debug("swept idle sessions", "removed", removed)
				}
			}
		}
	}()

	slog.Info("starting bot", "username", me.Username, "id", me.ID)
	b.Start(ctx)

	slog.Info("bot stopped gracefully")
}
