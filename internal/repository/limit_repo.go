package repository

import (
	"context"
	"errors"
	"time"

	"custodia/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LimitRepository interface {
	Create(ctx context.Context, limit *model.SpendingLimit) error
	// ActiveFor resolves the spending limit effective for the entity at the
	// given date: the latest row with effective_from <= at. Nil when the
	// entity has no configured limit.
	ActiveFor(ctx context.Context, entityType model.EntityType, entityID uuid.UUID, at time.Time) (*model.SpendingLimit, error)
}

type limitRepository struct {
	db *gorm.DB
}

func NewLimitRepository(db *gorm.DB) LimitRepository {
	return &limitRepository{db: db}
}

func (r *limitRepository) Create(ctx context.Context, limit *model.SpendingLimit) error {
	return GetDB(ctx, r.db).Create(limit).Error
}

func (r *limitRepository) ActiveFor(ctx context.Context, entityType model.EntityType, entityID uuid.UUID, at time.Time) (*model.SpendingLimit, error) {
	scopeCond := "station_id = ?"
	if entityType == model.EntityZone {
		scopeCond = "zone_id = ?"
	}

	var limit model.SpendingLimit
	err := GetDB(ctx, r.db).
		Where(scopeCond, entityID).
		Where("effective_from <= ?", at).
		Order("effective_from DESC").
		First(&limit).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &limit, nil
}
