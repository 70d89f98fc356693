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

type SettlementRowResponse struct {
	ID              string  `json:"id"`
	ZoneID          string  `json:"zone_id"`
	StationID       *string `json:"station_id"`
	StationName     string  `json:"station_name,omitempty"`
	Year            int     `json:"year"`
	Month           int     `json:"month"`
	ShrinkageTotal  string  `json:"shrinkage_total"`
	DeliveriesTotal string  `json:"deliveries_total"`
	ExpensesTotal   string  `json:"expenses_total"`
	OpeningBalance  string  `json:"opening_balance"`
	ClosingBalance  string  `json:"closing_balance"`
	Difference      string  `json:"difference"`
	Status          string  `json:"status"`
	Observations    string  `json:"observations,omitempty"`
	ReopenReason    string  `json:"reopen_reason,omitempty"`
	ClosedAt        *string `json:"closed_at"`
}

// --- Interface ---

// SettlementService is the accounting close ("liquidación") of one zone and
// month. Closing requires the operational closure to be locked first;
// reopening is reserved for zone actors and flips every row to REOPENED
// instead of deleting anything.
type SettlementService interface {
	Close(ctx context.Context, actor Actor, zoneID uuid.UUID, year, month int, observations string) ([]SettlementRowResponse, error)
	Reopen(ctx context.Context, actor Actor, zoneID uuid.UUID, year, month int, reason string) ([]SettlementRowResponse, error)
	Rows(ctx context.Context, zoneID uuid.UUID, year, month int) ([]SettlementRowResponse, error)
	RowModels(ctx context.Context, zoneID uuid.UUID, year, month int) ([]model.MonthlySettlement, error)
}

type settlementService struct {
	settlementRepo repository.SettlementRepository
	closureRepo    repository.ClosureRepository
	stationRepo    repository.StationRepository
	deliveryRepo   repository.DeliveryRepository
	expenseRepo    repository.ExpenseRepository
	reportRepo     repository.ReportRepository
	balances       BalanceService
	txManager      repository.TransactionManager
	audit          *auditor
	log            zerolog.Logger
}

func NewSettlementService(
	settlementRepo repository.SettlementRepository,
	closureRepo repository.ClosureRepository,
	stationRepo repository.StationRepository,
	deliveryRepo repository.DeliveryRepository,
	expenseRepo repository.ExpenseRepository,
	reportRepo repository.ReportRepository,
	balances BalanceService,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	log zerolog.Logger,
) SettlementService {
	return &settlementService{
		settlementRepo: settlementRepo,
		closureRepo:    closureRepo,
		stationRepo:    stationRepo,
		deliveryRepo:   deliveryRepo,
		expenseRepo:    expenseRepo,
		reportRepo:     reportRepo,
		balances:       balances,
		txManager:      txManager,
		audit:          newAuditor(auditRepo, log),
		log:            log,
	}
}

// --- Implementation ---

func (s *settlementService) Close(ctx context.Context, actor Actor, zoneID uuid.UUID, year, month int, observations string) ([]SettlementRowResponse, error) {
	if err := validPeriod(year, month); err != nil {
		return nil, err
	}
	if !actor.HasZone(zoneID) {
		return nil, fmt.Errorf("%w: actor is not assigned to this zone", ErrAuthorization)
	}
	switch actor.Role {
	case model.RoleZone, model.RoleAdmin:
	default:
		return nil, fmt.Errorf("%w: role %s cannot close a settlement", ErrAuthorization, actor.Role)
	}

	from, to := monthRange(year, month)

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		closure, closErr := s.closureRepo.FindByZonePeriod(txCtx, zoneID, year, month)
		if closErr != nil {
			return fmt.Errorf("failed to load closure: %w", closErr)
		}
		if closure == nil || !closure.Closed {
			return fmt.Errorf("%w: operational closure %d-%02d must be closed before settlement",
				ErrPrerequisiteNotMet, year, month)
		}

		existing, findErr := s.settlementRepo.FindZoneRow(txCtx, zoneID, year, month)
		if findErr != nil {
			return fmt.Errorf("failed to load settlement: %w", findErr)
		}
		if existing != nil && existing.Status == model.SettlementClosed {
			return fmt.Errorf("%w: settlement %d-%02d is already closed", ErrInvalidTransition, year, month)
		}
		// Open or reopened rows are regenerated from scratch.
		if existing != nil {
			if delErr := s.settlementRepo.DeleteRows(txCtx, zoneID, year, month); delErr != nil {
				return fmt.Errorf("failed to clear settlement rows: %w", delErr)
			}
		}

		stations, stErr := s.stationRepo.ListActiveByZone(txCtx, zoneID)
		if stErr != nil {
			return fmt.Errorf("failed to list stations: %w", stErr)
		}

		now := time.Now()
		rows := make([]model.MonthlySettlement, 0, len(stations)+1)

		// A settlement does not block on stations still holding custody;
		// their balances are carried into the zone row's difference.
		shrinkageTotal := decimal.Zero
		stationDifference := decimal.Zero
		for _, station := range stations {
			balance, balErr := s.balances.StationBalance(txCtx, station.ID, year, month)
			if balErr != nil {
				return balErr
			}
			shrinkageTotal = shrinkageTotal.Add(balance.Shrinkage)
			if !balance.Balance.IsZero() {
				stationDifference = stationDifference.Add(balance.Balance)
			}

			stationID := station.ID
			rows = append(rows, model.MonthlySettlement{
				ZoneID:          zoneID,
				StationID:       &stationID,
				Year:            year,
				Month:           month,
				ShrinkageTotal:  balance.Shrinkage,
				DeliveriesTotal: balance.Deliveries,
				ExpensesTotal:   balance.Expenses,
				OpeningBalance:  decimal.Zero,
				ClosingBalance:  balance.Balance,
				Difference:      balance.Balance,
				Status:          model.SettlementClosed,
				Observations:    observations,
				ClosedBy:        &actor.ID,
				ClosedAt:        &now,
			})
		}

		opening := decimal.Zero
		prior, priorErr := s.settlementRepo.LastClosedZoneRowBefore(txCtx, zoneID, year, month)
		if priorErr != nil {
			return fmt.Errorf("failed to load prior settlement: %w", priorErr)
		}
		if prior != nil {
			opening = prior.ClosingBalance
		}

		received, rErr := s.deliveryRepo.SumConfirmedByZone(txCtx, zoneID, model.DeliveryStationToZone, from, to)
		if rErr != nil {
			return fmt.Errorf("failed to sum received deliveries: %w", rErr)
		}
		sent, sErr := s.deliveryRepo.SumConfirmedByZone(txCtx, zoneID, model.DeliveryZoneToDirection, from, to)
		if sErr != nil {
			return fmt.Errorf("failed to sum sent deliveries: %w", sErr)
		}
		zoneExpenses, eErr := s.expenseRepo.SumForZone(txCtx, zoneID, from, to)
		if eErr != nil {
			return fmt.Errorf("failed to sum zone expenses: %w", eErr)
		}

		closing := roundAmount(opening.Add(received).Sub(sent).Sub(zoneExpenses))
		zoneRow := model.MonthlySettlement{
			ZoneID:          zoneID,
			Year:            year,
			Month:           month,
			ShrinkageTotal:  roundAmount(shrinkageTotal),
			DeliveriesTotal: roundAmount(received.Add(sent)),
			ExpensesTotal:   roundAmount(zoneExpenses),
			OpeningBalance:  roundAmount(opening),
			ClosingBalance:  closing,
			Difference:      roundAmount(stationDifference),
			Status:          model.SettlementClosed,
			Observations:    observations,
			ClosedBy:        &actor.ID,
			ClosedAt:        &now,
		}
		rows = append([]model.MonthlySettlement{zoneRow}, rows...)

		if createErr := s.settlementRepo.CreateRows(txCtx, rows); createErr != nil {
			return fmt.Errorf("failed to persist settlement: %w", createErr)
		}

		s.audit.record(txCtx, actor.ID, model.ActionCloseSettlement, "monthly_settlement", rows[0].ID.String(),
			nil, rows[0], fmt.Sprintf("settlement close %d-%02d", year, month))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("zone_id", zoneID.String()).
		Int("year", year).Int("month", month).
		Msg("settlement closed")

	return s.Rows(ctx, zoneID, year, month)
}

// Reopen is reserved for zone actors and requires a reason; the zone row
// and every station row flip to REOPENED, keeping the audit trail intact.
func (s *settlementService) Reopen(ctx context.Context, actor Actor, zoneID uuid.UUID, year, month int, reason string) ([]SettlementRowResponse, error) {
	if err := validPeriod(year, month); err != nil {
		return nil, err
	}
	if actor.Role != model.RoleZone {
		return nil, fmt.Errorf("%w: only zone actors may reopen a settlement", ErrAuthorization)
	}
	if !actor.HasZone(zoneID) {
		return nil, fmt.Errorf("%w: actor is not assigned to this zone", ErrAuthorization)
	}
	if reason == "" {
		return nil, fmt.Errorf("%w: a reopen reason is required", ErrValidation)
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		zoneRow, findErr := s.settlementRepo.FindZoneRow(txCtx, zoneID, year, month)
		if findErr != nil {
			return fmt.Errorf("failed to load settlement: %w", findErr)
		}
		if zoneRow == nil || zoneRow.Status != model.SettlementClosed {
			return fmt.Errorf("%w: settlement %d-%02d is not closed", ErrInvalidTransition, year, month)
		}

		before := *zoneRow
		now := time.Now()
		if updErr := s.settlementRepo.UpdateStatusForPeriod(txCtx, zoneID, year, month, map[string]interface{}{
			"status":        model.SettlementReopened,
			"reopened_by":   actor.ID,
			"reopened_at":   now,
			"reopen_reason": reason,
		}); updErr != nil {
			return fmt.Errorf("failed to reopen settlement: %w", updErr)
		}

		s.audit.record(txCtx, actor.ID, model.ActionReopenSettlement, "monthly_settlement", zoneRow.ID.String(),
			before, map[string]interface{}{"status": model.SettlementReopened, "reason": reason},
			fmt.Sprintf("settlement reopen %d-%02d", year, month))
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.Rows(ctx, zoneID, year, month)
}

func (s *settlementService) Rows(ctx context.Context, zoneID uuid.UUID, year, month int) ([]SettlementRowResponse, error) {
	rows, err := s.settlementRepo.ListRows(ctx, zoneID, year, month)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlement rows: %w", err)
	}

	result := make([]SettlementRowResponse, 0, len(rows))
	for _, row := range rows {
		result = append(result, toSettlementResponse(row))
	}
	return result, nil
}

func (s *settlementService) RowModels(ctx context.Context, zoneID uuid.UUID, year, month int) ([]model.MonthlySettlement, error) {
	return s.settlementRepo.ListRows(ctx, zoneID, year, month)
}

// --- Helpers ---

func toSettlementResponse(row model.MonthlySettlement) SettlementRowResponse {
	resp := SettlementRowResponse{
		ID:              row.ID.String(),
		ZoneID:          row.ZoneID.String(),
		Year:            row.Year,
		Month:           row.Month,
		ShrinkageTotal:  row.ShrinkageTotal.StringFixed(4),
		DeliveriesTotal: row.DeliveriesTotal.StringFixed(4),
		ExpensesTotal:   row.ExpensesTotal.StringFixed(4),
		OpeningBalance:  row.OpeningBalance.StringFixed(4),
		ClosingBalance:  row.ClosingBalance.StringFixed(4),
		Difference:      row.Difference.StringFixed(4),
		Status:          string(row.Status),
		Observations:    row.Observations,
		ReopenReason:    row.ReopenReason,
	}
	if row.StationID != nil {
		s := row.StationID.String()
		resp.StationID = &s
	}
	if row.Station != nil {
		resp.StationName = row.Station.Name
	}
	if row.ClosedAt != nil {
		ts := row.ClosedAt.Format(time.RFC3339)
		resp.ClosedAt = &ts
	}
	return resp
}
