package service

import (
	"context"
	"fmt"
	"time"

	"custodia/internal/model"
	"custodia/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type CreateExpenseRequest struct {
	EntityType string          `json:"entity_type" binding:"required,oneof=STATION ZONE"`
	EntityID   string          `json:"entity_id" binding:"required"`
	Amount     decimal.Decimal `json:"amount"`
	Concept    string          `json:"concept" binding:"required"`
	Category   string          `json:"category"`
	Date       string          `json:"date" binding:"required"` // YYYY-MM-DD
}

type ExpenseResponse struct {
	ID          string  `json:"id"`
	StationID   *string `json:"station_id"`
	ZoneID      *string `json:"zone_id"`
	Amount      string  `json:"amount"`
	Concept     string  `json:"concept"`
	Category    string  `json:"category"`
	Date        string  `json:"date"`
	CreatorName string  `json:"creator_name,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

// ExpenseAvailability is the spending headroom of one entity for a month:
// the lesser of what the configured limit still allows and what the custody
// balance can cover, floored at zero.
type ExpenseAvailability struct {
	EntityType       string `json:"entity_type"`
	EntityID         string `json:"entity_id"`
	Year             int    `json:"year"`
	Month            int    `json:"month"`
	MonthlyCeiling   string `json:"monthly_ceiling"`
	AlreadySpent     string `json:"already_spent"`
	LimitAvailable   string `json:"limit_available"`
	CustodyAvailable string `json:"custody_available"`
	Available        string `json:"available"`
}

type ExpenseListFilter struct {
	StationID string
	ZoneID    string
	From      string
	To        string
}

// --- Interface ---

type ExpenseService interface {
	Create(ctx context.Context, actor Actor, req CreateExpenseRequest) (ExpenseResponse, error)
	Available(ctx context.Context, entityType model.EntityType, entityID uuid.UUID, year, month int) (ExpenseAvailability, decimal.Decimal, error)
	List(ctx context.Context, filter ExpenseListFilter, page, limit int) ([]ExpenseResponse, int64, error)
}

type expenseService struct {
	expenseRepo    repository.ExpenseRepository
	limitRepo      repository.LimitRepository
	stationRepo    repository.StationRepository
	settlementRepo repository.SettlementRepository
	balances       BalanceService
	txManager      repository.TransactionManager
	audit          *auditor
	log            zerolog.Logger
}

func NewExpenseService(
	expenseRepo repository.ExpenseRepository,
	limitRepo repository.LimitRepository,
	stationRepo repository.StationRepository,
	settlementRepo repository.SettlementRepository,
	balances BalanceService,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	log zerolog.Logger,
) ExpenseService {
	return &expenseService{
		expenseRepo:    expenseRepo,
		limitRepo:      limitRepo,
		stationRepo:    stationRepo,
		settlementRepo: settlementRepo,
		balances:       balances,
		txManager:      txManager,
		audit:          newAuditor(auditRepo, log),
		log:            log,
	}
}

// --- Implementation ---

// Available computes the validator inputs for one entity and month:
//
//	limitAvailable   = configured monthly ceiling − expenses already recorded
//	custodyAvailable = custody balance net of recorded expenses
//	available        = max(0, min(limitAvailable, custodyAvailable))
//
// Missing spending-limit configuration is a hard error, not an implicit
// unlimited budget.
func (s *expenseService) Available(ctx context.Context, entityType model.EntityType, entityID uuid.UUID, year, month int) (ExpenseAvailability, decimal.Decimal, error) {
	if err := validPeriod(year, month); err != nil {
		return ExpenseAvailability{}, decimal.Zero, err
	}
	from, to := monthRange(year, month)

	limit, err := s.limitRepo.ActiveFor(ctx, entityType, entityID, to)
	if err != nil {
		return ExpenseAvailability{}, decimal.Zero, fmt.Errorf("failed to load spending limit: %w", err)
	}
	if limit == nil {
		return ExpenseAvailability{}, decimal.Zero,
			fmt.Errorf("%w: no active spending limit for %s %s", ErrConfiguration, entityType, entityID)
	}

	var spent, custodyAvailable decimal.Decimal
	switch entityType {
	case model.EntityStation:
		spent, err = s.expenseRepo.SumForStation(ctx, entityID, from, to)
		if err != nil {
			return ExpenseAvailability{}, decimal.Zero, fmt.Errorf("failed to sum expenses: %w", err)
		}
		balance, balErr := s.balances.StationBalance(ctx, entityID, year, month)
		if balErr != nil {
			return ExpenseAvailability{}, decimal.Zero, balErr
		}
		custodyAvailable = balance.Balance
	case model.EntityZone:
		spent, err = s.expenseRepo.SumForZone(ctx, entityID, from, to)
		if err != nil {
			return ExpenseAvailability{}, decimal.Zero, fmt.Errorf("failed to sum expenses: %w", err)
		}
		balance, balErr := s.balances.ZoneBalance(ctx, entityID, year, month)
		if balErr != nil {
			return ExpenseAvailability{}, decimal.Zero, balErr
		}
		custodyAvailable = balance.Balance
	default:
		return ExpenseAvailability{}, decimal.Zero, fmt.Errorf("%w: unknown entity type %q", ErrValidation, entityType)
	}

	limitAvailable := roundAmount(limit.MonthlyCeiling.Sub(spent))
	custodyAvailable = roundAmount(custodyAvailable)

	available := decimal.Min(limitAvailable, custodyAvailable)
	if available.IsNegative() {
		available = decimal.Zero
	}

	return ExpenseAvailability{
		EntityType:       string(entityType),
		EntityID:         entityID.String(),
		Year:             year,
		Month:            month,
		MonthlyCeiling:   limit.MonthlyCeiling.StringFixed(4),
		AlreadySpent:     spent.StringFixed(4),
		LimitAvailable:   limitAvailable.StringFixed(4),
		CustodyAvailable: custodyAvailable.StringFixed(4),
		Available:        available.StringFixed(4),
	}, available, nil
}

func (s *expenseService) Create(ctx context.Context, actor Actor, req CreateExpenseRequest) (ExpenseResponse, error) {
	entityType := model.EntityType(req.EntityType)
	entityID, err := uuid.Parse(req.EntityID)
	if err != nil {
		return ExpenseResponse{}, fmt.Errorf("%w: invalid entity_id", ErrValidation)
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return ExpenseResponse{}, fmt.Errorf("%w: invalid date %q", ErrValidation, req.Date)
	}
	date = normalizeDate(date)
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return ExpenseResponse{}, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}

	expense := model.Expense{
		Amount:    req.Amount,
		Concept:   req.Concept,
		Category:  req.Category,
		SpentAt:   date,
		CreatedBy: actor.ID,
	}

	var zoneID uuid.UUID
	switch entityType {
	case model.EntityStation:
		station, findErr := s.stationRepo.FindByID(ctx, entityID)
		if findErr != nil {
			return ExpenseResponse{}, fmt.Errorf("%w: station not found", ErrValidation)
		}
		if !actor.HasStation(entityID) {
			return ExpenseResponse{}, fmt.Errorf("%w: actor is not assigned to station %s", ErrAuthorization, station.Name)
		}
		expense.StationID = &entityID
		zoneID = station.ZoneID
	case model.EntityZone:
		if !actor.HasZone(entityID) {
			return ExpenseResponse{}, fmt.Errorf("%w: actor is not assigned to this zone", ErrAuthorization)
		}
		expense.ZoneID = &entityID
		zoneID = entityID
	default:
		return ExpenseResponse{}, fmt.Errorf("%w: unknown entity type %q", ErrValidation, req.EntityType)
	}

	if err := s.ensureSettlementOpen(ctx, zoneID, date); err != nil {
		return ExpenseResponse{}, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		// Re-validated inside the transaction so concurrent expense inserts
		// cannot both pass the same headroom.
		_, available, availErr := s.Available(txCtx, entityType, entityID, date.Year(), int(date.Month()))
		if availErr != nil {
			return availErr
		}
		if roundAmount(req.Amount).GreaterThan(available) {
			return fmt.Errorf("%w: expense of %s exceeds available %s",
				ErrLimitExceeded, req.Amount.StringFixed(4), available.StringFixed(4))
		}

		if createErr := s.expenseRepo.Create(txCtx, &expense); createErr != nil {
			return fmt.Errorf("failed to create expense: %w", createErr)
		}
		s.audit.record(txCtx, actor.ID, model.ActionCreateExpense, "expense", expense.ID.String(),
			nil, expense, req.Concept)
		return nil
	})
	if err != nil {
		return ExpenseResponse{}, err
	}

	return toExpenseResponse(expense), nil
}

func (s *expenseService) List(ctx context.Context, filter ExpenseListFilter, page, limit int) ([]ExpenseResponse, int64, error) {
	repoFilter := repository.ExpenseFilter{}
	if filter.StationID != "" {
		id, err := uuid.Parse(filter.StationID)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: invalid station_id", ErrValidation)
		}
		repoFilter.StationID = &id
	}
	if filter.ZoneID != "" {
		id, err := uuid.Parse(filter.ZoneID)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: invalid zone_id", ErrValidation)
		}
		repoFilter.ZoneID = &id
	}
	if filter.From != "" {
		from, err := time.Parse("2006-01-02", filter.From)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: invalid from date", ErrValidation)
		}
		from = normalizeDate(from)
		repoFilter.From = &from
	}
	if filter.To != "" {
		to, err := time.Parse("2006-01-02", filter.To)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: invalid to date", ErrValidation)
		}
		to = normalizeDate(to)
		repoFilter.To = &to
	}

	expenses, total, err := s.expenseRepo.List(ctx, repoFilter, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list expenses: %w", err)
	}

	result := make([]ExpenseResponse, 0, len(expenses))
	for _, e := range expenses {
		result = append(result, toExpenseResponse(e))
	}
	return result, total, nil
}

// ensureSettlementOpen blocks expense capture once the zone's accounting
// settlement for the month is closed.
func (s *expenseService) ensureSettlementOpen(ctx context.Context, zoneID uuid.UUID, date time.Time) error {
	row, err := s.settlementRepo.FindZoneRow(ctx, zoneID, date.Year(), int(date.Month()))
	if err != nil {
		return fmt.Errorf("failed to check settlement: %w", err)
	}
	if row != nil && row.Status == model.SettlementClosed {
		return fmt.Errorf("%w: settlement %d-%02d is closed for this zone",
			ErrPeriodLocked, date.Year(), int(date.Month()))
	}
	return nil
}

// --- Helpers ---

func toExpenseResponse(e model.Expense) ExpenseResponse {
	resp := ExpenseResponse{
		ID:        e.ID.String(),
		Amount:    e.Amount.StringFixed(4),
		Concept:   e.Concept,
		Category:  e.Category,
		Date:      e.SpentAt.Format("2006-01-02"),
		CreatedAt: e.CreatedAt.Format(time.RFC3339),
	}
	if e.StationID != nil {
		s := e.StationID.String()
		resp.StationID = &s
	}
	if e.ZoneID != nil {
		s := e.ZoneID.String()
		resp.ZoneID = &s
	}
	if e.Creator != nil {
		resp.CreatorName = e.Creator.Username
	}
	return resp
}
