package repository

import (
	"context"
	"errors"

	"custodia/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ClosureRepository interface {
	FindByZonePeriod(ctx context.Context, zoneID uuid.UUID, year, month int) (*model.OperationalClosure, error)
	Save(ctx context.Context, closure *model.OperationalClosure) error
	DeleteRollups(ctx context.Context, zoneID uuid.UUID, year, month int) error
	CreateRollups(ctx context.Context, rollups []model.MonthlyRollup) error
	ListRollups(ctx context.Context, zoneID uuid.UUID, year, month int) ([]model.MonthlyRollup, error)
}

type closureRepository struct {
	db *gorm.DB
}

func NewClosureRepository(db *gorm.DB) ClosureRepository {
	return &closureRepository{db: db}
}

func (r *closureRepository) FindByZonePeriod(ctx context.Context, zoneID uuid.UUID, year, month int) (*model.OperationalClosure, error) {
	var closure model.OperationalClosure
	err := GetDB(ctx, r.db).
		Where("zone_id = ? AND year = ? AND month = ?", zoneID, year, month).
		First(&closure).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &closure, nil
}

func (r *closureRepository) Save(ctx context.Context, closure *model.OperationalClosure) error {
	return GetDB(ctx, r.db).Save(closure).Error
}

func (r *closureRepository) DeleteRollups(ctx context.Context, zoneID uuid.UUID, year, month int) error {
	return GetDB(ctx, r.db).
		Where("zone_id = ? AND year = ? AND month = ?", zoneID, year, month).
		Delete(&model.MonthlyRollup{}).Error
}

func (r *closureRepository) CreateRollups(ctx context.Context, rollups []model.MonthlyRollup) error {
	if len(rollups) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Create(&rollups).Error
}

func (r *closureRepository) ListRollups(ctx context.Context, zoneID uuid.UUID, year, month int) ([]model.MonthlyRollup, error) {
	var rollups []model.MonthlyRollup
	err := GetDB(ctx, r.db).
		Preload("Station").
		Where("zone_id = ? AND year = ? AND month = ?", zoneID, year, month).
		Order("station_id, product").
		Find(&rollups).Error
	if err != nil {
		return nil, err
	}
	return rollups, nil
}
