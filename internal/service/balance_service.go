package service

import (
	"context"
	"fmt"

	"custodia/internal/model"
	"custodia/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StationBalance breaks a station's custody balance into its components:
//
//	balance = approved shrinkage − confirmed station→zone deliveries − station expenses
type StationBalance struct {
	StationID  uuid.UUID       `json:"station_id"`
	Year       int             `json:"year"`
	Month      int             `json:"month"`
	Shrinkage  decimal.Decimal `json:"shrinkage"`
	Deliveries decimal.Decimal `json:"deliveries"`
	Expenses   decimal.Decimal `json:"expenses"`
	Balance    decimal.Decimal `json:"balance"`
}

// ZoneBalance breaks a zone's custody balance into its components:
//
//	balance = opening + confirmed station→zone received − confirmed zone→direction sent − zone expenses
//
// Opening is the closing balance of the most recent CLOSED zone settlement
// strictly before the month, zero when none exists.
type ZoneBalance struct {
	ZoneID   uuid.UUID       `json:"zone_id"`
	Year     int             `json:"year"`
	Month    int             `json:"month"`
	Opening  decimal.Decimal `json:"opening"`
	Received decimal.Decimal `json:"received"`
	Sent     decimal.Decimal `json:"sent"`
	Expenses decimal.Decimal `json:"expenses"`
	Balance  decimal.Decimal `json:"balance"`
}

// BalanceService is the pure read-time custody calculator. It never writes;
// a read concurrent with an uncommitted delivery or expense reflects only
// committed data.
type BalanceService interface {
	StationBalance(ctx context.Context, stationID uuid.UUID, year, month int) (StationBalance, error)
	ZoneBalance(ctx context.Context, zoneID uuid.UUID, year, month int) (ZoneBalance, error)
}

type balanceService struct {
	reportRepo     repository.ReportRepository
	deliveryRepo   repository.DeliveryRepository
	expenseRepo    repository.ExpenseRepository
	settlementRepo repository.SettlementRepository
}

func NewBalanceService(
	reportRepo repository.ReportRepository,
	deliveryRepo repository.DeliveryRepository,
	expenseRepo repository.ExpenseRepository,
	settlementRepo repository.SettlementRepository,
) BalanceService {
	return &balanceService{
		reportRepo:     reportRepo,
		deliveryRepo:   deliveryRepo,
		expenseRepo:    expenseRepo,
		settlementRepo: settlementRepo,
	}
}

// roundAmount fixes comparison precision: amounts are rounded to 4 decimals
// before any threshold check so near-equal decimal chains cannot produce
// false negatives.
func roundAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(4)
}

func (s *balanceService) StationBalance(ctx context.Context, stationID uuid.UUID, year, month int) (StationBalance, error) {
	if err := validPeriod(year, month); err != nil {
		return StationBalance{}, err
	}
	from, to := monthRange(year, month)

	shrinkage, err := s.reportRepo.SumApprovedShrinkage(ctx, stationID, from, to)
	if err != nil {
		return StationBalance{}, fmt.Errorf("failed to sum shrinkage: %w", err)
	}
	deliveries, err := s.deliveryRepo.SumConfirmedFromStation(ctx, stationID, from, to)
	if err != nil {
		return StationBalance{}, fmt.Errorf("failed to sum deliveries: %w", err)
	}
	expenses, err := s.expenseRepo.SumForStation(ctx, stationID, from, to)
	if err != nil {
		return StationBalance{}, fmt.Errorf("failed to sum expenses: %w", err)
	}

	return StationBalance{
		StationID:  stationID,
		Year:       year,
		Month:      month,
		Shrinkage:  roundAmount(shrinkage),
		Deliveries: roundAmount(deliveries),
		Expenses:   roundAmount(expenses),
		Balance:    roundAmount(shrinkage.Sub(deliveries).Sub(expenses)),
	}, nil
}

func (s *balanceService) ZoneBalance(ctx context.Context, zoneID uuid.UUID, year, month int) (ZoneBalance, error) {
	if err := validPeriod(year, month); err != nil {
		return ZoneBalance{}, err
	}
	from, to := monthRange(year, month)

	opening := decimal.Zero
	prior, err := s.settlementRepo.LastClosedZoneRowBefore(ctx, zoneID, year, month)
	if err != nil {
		return ZoneBalance{}, fmt.Errorf("failed to load prior settlement: %w", err)
	}
	if prior != nil {
		opening = prior.ClosingBalance
	}

	received, err := s.deliveryRepo.SumConfirmedByZone(ctx, zoneID, model.DeliveryStationToZone, from, to)
	if err != nil {
		return ZoneBalance{}, fmt.Errorf("failed to sum received deliveries: %w", err)
	}
	sent, err := s.deliveryRepo.SumConfirmedByZone(ctx, zoneID, model.DeliveryZoneToDirection, from, to)
	if err != nil {
		return ZoneBalance{}, fmt.Errorf("failed to sum sent deliveries: %w", err)
	}
	expenses, err := s.expenseRepo.SumForZone(ctx, zoneID, from, to)
	if err != nil {
		return ZoneBalance{}, fmt.Errorf("failed to sum zone expenses: %w", err)
	}

	return ZoneBalance{
		ZoneID:   zoneID,
		Year:     year,
		Month:    month,
		Opening:  roundAmount(opening),
		Received: roundAmount(received),
		Sent:     roundAmount(sent),
		Expenses: roundAmount(expenses),
		Balance:  roundAmount(opening.Add(received).Sub(sent).Sub(expenses)),
	}, nil
}
