package service

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/martijnmoret-ds/OrderOctopus/internal/config"
	"github.com/martijnmoret-ds/OrderOctopus/internal/domain"
	"github.com/martijnmoret-ds/OrderOctopus/internal/repository"
)

type VenueService struct {
	db      *pgxpool.Pool
	queries *repository.Queries
}

func NewVenueService(db *pgxpool.Pool, queries *repository.Queries) *VenueService {
	return &VenueService{db: db, queries: queries}
}

func (s *VenueService) Get(ctx context.Context, id int64) (*domain.Venue, error) {
	return s.queries.GetVenue(ctx, id)
}

func (s *VenueService) GetByApprovalChat(ctx context.Context, chatID int64) (*domain.Venue, error) {
	return s.queries.GetVenueByApprovalChat(ctx, chatID)
}

// Register creates a venue with the starter credit grant and free-parse
// quota. The approval chat doubles as the staff command surface.
func (s *VenueService) Register(ctx context.Context, name string, approvalChatID int64, kitchenChatID *int64, language string) (*domain.Venue, error) {
	if language == "" {
		language = config.DefaultLanguage
	}
	return s.queries.CreateVenue(ctx, repository.CreateVenueParams{
		Name:           name,
		ApprovalChatID: approvalChatID,
		KitchenChatID:  kitchenChatID,
		Language:       language,
		Balance:        decimal.NewFromFloat(config.InitialFreeCredits),
		FreeParses:     config.MaxFreeMenuParses,
	})
}

func (s *VenueService) SetStatus(ctx context.Context, id int64, status domain.VenueStatus) error {
	return s.queries.SetVenueStatus(ctx, id, status)
}

func (s *VenueService) SetHours(ctx context.Context, id int64, hours domain.BusinessHours) error {
	return s.queries.SetVenueHours(ctx, id, hours)
}

// FlagLowBalance raises the standing shortfall alert and pauses new-order
// intake until the venue tops up.
func (s *VenueService) FlagLowBalance(ctx context.Context, id int64) error {
	if err := s.queries.SetVenueLowBalanceAlert(ctx, id, true); err != nil {
		return err
	}
	return s.queries.SetVenueStatus(ctx, id, domain.VenuePaused)
}

// ClearLowBalance drops the alert and resumes intake, called after a top-up.
func (s *VenueService) ClearLowBalance(ctx context.Context, id int64) error {
	if err := s.queries.SetVenueLowBalanceAlert(ctx, id, false); err != nil {
		return err
	}
	return s.queries.SetVenueStatus(ctx, id, domain.VenueActive)
}
