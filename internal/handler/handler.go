package handler

import (
	"github.com/go-telegram/bot"

	"github.com/martijnmoret-ds/OrderOctopus/internal/config"
	"github.com/martijnmoret-ds/OrderOctopus/internal/service"
)

// Handler holds all dependencies needed by command and callback handlers.
type Handler struct {
	bot             *bot.Bot
	cfg             *config.Config
	orchestrator    *service.Orchestrator
	venueService    *service.VenueService
	menuService     *service.MenuService
	orderService    *service.OrderService
	billingService  *service.BillingService
	approvalService *service.ApprovalService
	importService   *service.MenuImportService
	bindings        *bindings
	botUsername     string
}

// Deps contains all dependencies required to construct a Handler.
type Deps struct {
	Bot             *bot.Bot
	Cfg             *config.Config
	Orchestrator    *service.Orchestrator
	VenueService    *service.VenueService
	MenuService     *service.MenuService
	OrderService    *service.OrderService
	BillingService  *service.BillingService
	ApprovalService *service.ApprovalService
	ImportService   *service.MenuImportService
	BotUsername     string
}

// New creates a new Handler from the provided dependencies.
func New(deps Deps) *Handler {
	return &Handler{
		bot:             deps.Bot,
		cfg:             deps.Cfg,
		orchestrator:    deps.Orchestrator,
		venueService:    deps.VenueService,
		menuService:     deps.MenuService,
		orderService:    deps.OrderService,
		billingService:  deps.BillingService,
		approvalService: deps.ApprovalService,
		importService:   deps.ImportService,
		bindings:        newBindings(),
		botUsername:     deps.BotUsername,
	}
}
