package repository

import (
	"context"
	"errors"

	"custodia/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SettlementRepository interface {
	FindZoneRow(ctx context.Context, zoneID uuid.UUID, year, month int) (*model.MonthlySettlement, error)
	ListRows(ctx context.Context, zoneID uuid.UUID, year, month int) ([]model.MonthlySettlement, error)
	DeleteRows(ctx context.Context, zoneID uuid.UUID, year, month int) error
	CreateRows(ctx context.Context, rows []model.MonthlySettlement) error
	Save(ctx context.Context, row *model.MonthlySettlement) error
	UpdateStatusForPeriod(ctx context.Context, zoneID uuid.UUID, year, month int, updates map[string]interface{}) error
	LastClosedZoneRowBefore(ctx context.Context, zoneID uuid.UUID, year, month int) (*model.MonthlySettlement, error)
}

type settlementRepository struct {
	db *gorm.DB
}

func NewSettlementRepository(db *gorm.DB) SettlementRepository {
	return &settlementRepository{db: db}
}

func (r *settlementRepository) FindZoneRow(ctx context.Context, zoneID uuid.UUID, year, month int) (*model.MonthlySettlement, error) {
	var row model.MonthlySettlement
	err := GetDB(ctx, r.db).
		Where("zone_id = ? AND year = ? AND month = ? AND station_id IS NULL", zoneID, year, month).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *settlementRepository) ListRows(ctx context.Context, zoneID uuid.UUID, year, month int) ([]model.MonthlySettlement, error) {
	var rows []model.MonthlySettlement
	err := GetDB(ctx, r.db).
		Preload("Station").
		Preload("Zone").
		Where("zone_id = ? AND year = ? AND month = ?", zoneID, year, month).
		Order("station_id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *settlementRepository) DeleteRows(ctx context.Context, zoneID uuid.UUID, year, month int) error {
	return GetDB(ctx, r.db).
		Where("zone_id = ? AND year = ? AND month = ?", zoneID, year, month).
		Delete(&model.MonthlySettlement{}).Error
}

func (r *settlementRepository) CreateRows(ctx context.Context, rows []model.MonthlySettlement) error {
	if len(rows) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Create(&rows).Error
}

func (r *settlementRepository) Save(ctx context.Context, row *model.MonthlySettlement) error {
	return GetDB(ctx, r.db).Save(row).Error
}

func (r *settlementRepository) UpdateStatusForPeriod(ctx context.Context, zoneID uuid.UUID, year, month int, updates map[string]interface{}) error {
	return GetDB(ctx, r.db).Model(&model.MonthlySettlement{}).
		Where("zone_id = ? AND year = ? AND month = ?", zoneID, year, month).
		Updates(updates).Error
}

// LastClosedZoneRowBefore returns the most recent CLOSED zone-level row
// strictly before (year, month); nil if no prior closed settlement exists.
func (r *settlementRepository) LastClosedZoneRowBefore(ctx context.Context, zoneID uuid.UUID, year, month int) (*model.MonthlySettlement, error) {
	var row model.MonthlySettlement
	err := GetDB(ctx, r.db).
		Where("zone_id = ? AND station_id IS NULL AND status = ?", zoneID, model.SettlementClosed).
		Where("(year < ?) OR (year = ? AND month < ?)", year, year, month).
		Order("year DESC, month DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}
