package repository

import (
	"context"
	"time"

	"custodia/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ExpenseFilter narrows expense listings.
type ExpenseFilter struct {
	StationID *uuid.UUID
	ZoneID    *uuid.UUID
	From      *time.Time
	To        *time.Time
}

type ExpenseRepository interface {
	Create(ctx context.Context, expense *model.Expense) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Expense, error)
	List(ctx context.Context, filter ExpenseFilter, page, limit int) ([]model.Expense, int64, error)
	SumForStation(ctx context.Context, stationID uuid.UUID, from, to time.Time) (decimal.Decimal, error)
	SumForZone(ctx context.Context, zoneID uuid.UUID, from, to time.Time) (decimal.Decimal, error)
}

type expenseRepository struct {
	db *gorm.DB
}

func NewExpenseRepository(db *gorm.DB) ExpenseRepository {
	return &expenseRepository{db: db}
}

func (r *expenseRepository) Create(ctx context.Context, expense *model.Expense) error {
	return GetDB(ctx, r.db).Create(expense).Error
}

func (r *expenseRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Expense, error) {
	var expense model.Expense
	if err := GetDB(ctx, r.db).Preload("Station").Preload("Zone").First(&expense, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &expense, nil
}

func (r *expenseRepository) List(ctx context.Context, filter ExpenseFilter, page, limit int) ([]model.Expense, int64, error) {
	db := GetDB(ctx, r.db)

	apply := func(q *gorm.DB) *gorm.DB {
		if filter.StationID != nil {
			q = q.Where("station_id = ?", *filter.StationID)
		}
		if filter.ZoneID != nil {
			q = q.Where("zone_id = ?", *filter.ZoneID)
		}
		if filter.From != nil {
			q = q.Where("spent_at >= ?", *filter.From)
		}
		if filter.To != nil {
			q = q.Where("spent_at <= ?", *filter.To)
		}
		return q
	}

	var total int64
	if err := apply(db.Model(&model.Expense{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var expenses []model.Expense
	offset := (page - 1) * limit
	err := apply(db.Model(&model.Expense{})).
		Preload("Station").
		Preload("Creator").
		Order("spent_at DESC").
		Offset(offset).Limit(limit).
		Find(&expenses).Error
	if err != nil {
		return nil, 0, err
	}
	return expenses, total, nil
}

func (r *expenseRepository) SumForStation(ctx context.Context, stationID uuid.UUID, from, to time.Time) (decimal.Decimal, error) {
	return r.sum(ctx, "station_id = ?", stationID, from, to)
}

func (r *expenseRepository) SumForZone(ctx context.Context, zoneID uuid.UUID, from, to time.Time) (decimal.Decimal, error) {
	return r.sum(ctx, "zone_id = ?", zoneID, from, to)
}

func (r *expenseRepository) sum(ctx context.Context, scopeCond string, scopeID uuid.UUID, from, to time.Time) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := GetDB(ctx, r.db).Model(&model.Expense{}).
		Select("COALESCE(SUM(amount), 0)").
		Where(scopeCond, scopeID).
		Where("spent_at >= ? AND spent_at <= ?", from, to).
		Scan(&sum).Error
	if err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}
