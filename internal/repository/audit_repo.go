package repository

import (
	"context"

	"custodia/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditFilter narrows audit listings for compliance display.
type AuditFilter struct {
	EntityType string
	EntityID   string
	ActorID    *uuid.UUID
	Action     string
}

type AuditRepository interface {
	Log(ctx context.Context, record *model.AuditRecord) error
	List(ctx context.Context, filter AuditFilter, page, limit int) ([]model.AuditRecord, int64, error)
}

type auditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Log(ctx context.Context, record *model.AuditRecord) error {
	return GetDB(ctx, r.db).Create(record).Error
}

func (r *auditRepository) List(ctx context.Context, filter AuditFilter, page, limit int) ([]model.AuditRecord, int64, error) {
	db := GetDB(ctx, r.db)

	apply := func(q *gorm.DB) *gorm.DB {
		if filter.EntityType != "" {
			q = q.Where("entity_type = ?", filter.EntityType)
		}
		if filter.EntityID != "" {
			q = q.Where("entity_id = ?", filter.EntityID)
		}
		if filter.ActorID != nil {
			q = q.Where("actor_id = ?", *filter.ActorID)
		}
		if filter.Action != "" {
			q = q.Where("action = ?", filter.Action)
		}
		return q
	}

	var total int64
	if err := apply(db.Model(&model.AuditRecord{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var records []model.AuditRecord
	offset := (page - 1) * limit
	err := apply(db.Model(&model.AuditRecord{})).
		Preload("Actor").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}
