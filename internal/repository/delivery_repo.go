package repository

import (
	"context"
	"time"

	"custodia/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DeliveryFilter narrows delivery listings.
type DeliveryFilter struct {
	Kind      model.DeliveryKind
	Status    model.DeliveryStatus
	StationID *uuid.UUID
	ZoneID    *uuid.UUID
	From      *time.Time
	To        *time.Time
}

type DeliveryRepository interface {
	Create(ctx context.Context, delivery *model.Delivery) error
	Save(ctx context.Context, delivery *model.Delivery) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Delivery, error)
	List(ctx context.Context, filter DeliveryFilter, page, limit int) ([]model.Delivery, int64, error)
	SumConfirmedFromStation(ctx context.Context, stationID uuid.UUID, from, to time.Time) (decimal.Decimal, error)
	SumConfirmedByZone(ctx context.Context, zoneID uuid.UUID, kind model.DeliveryKind, from, to time.Time) (decimal.Decimal, error)
}

type deliveryRepository struct {
	db *gorm.DB
}

func NewDeliveryRepository(db *gorm.DB) DeliveryRepository {
	return &deliveryRepository{db: db}
}

func (r *deliveryRepository) Create(ctx context.Context, delivery *model.Delivery) error {
	return GetDB(ctx, r.db).Create(delivery).Error
}

func (r *deliveryRepository) Save(ctx context.Context, delivery *model.Delivery) error {
	return GetDB(ctx, r.db).Save(delivery).Error
}

func (r *deliveryRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Delivery, error) {
	var delivery model.Delivery
	err := GetDB(ctx, r.db).
		Preload("Station").
		Preload("Zone").
		Preload("Initiator").
		Preload("Confirmer").
		Preload("Addressee").
		First(&delivery, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &delivery, nil
}

func (r *deliveryRepository) List(ctx context.Context, filter DeliveryFilter, page, limit int) ([]model.Delivery, int64, error) {
	db := GetDB(ctx, r.db)

	apply := func(q *gorm.DB) *gorm.DB {
		if filter.Kind != "" {
			q = q.Where("kind = ?", filter.Kind)
		}
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		if filter.StationID != nil {
			q = q.Where("station_id = ?", *filter.StationID)
		}
		if filter.ZoneID != nil {
			q = q.Where("zone_id = ?", *filter.ZoneID)
		}
		if filter.From != nil {
			q = q.Where("delivered_at >= ?", *filter.From)
		}
		if filter.To != nil {
			q = q.Where("delivered_at <= ?", *filter.To)
		}
		return q
	}

	var total int64
	if err := apply(db.Model(&model.Delivery{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var deliveries []model.Delivery
	offset := (page - 1) * limit
	err := apply(db.Model(&model.Delivery{})).
		Preload("Station").
		Preload("Initiator").
		Preload("Confirmer").
		Order("delivered_at DESC").
		Offset(offset).Limit(limit).
		Find(&deliveries).Error
	if err != nil {
		return nil, 0, err
	}
	return deliveries, total, nil
}

func (r *deliveryRepository) SumConfirmedFromStation(ctx context.Context, stationID uuid.UUID, from, to time.Time) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := GetDB(ctx, r.db).Model(&model.Delivery{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("kind = ? AND status = ?", model.DeliveryStationToZone, model.DeliveryConfirmed).
		Where("station_id = ?", stationID).
		Where("delivered_at >= ? AND delivered_at <= ?", from, to).
		Scan(&sum).Error
	if err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}

func (r *deliveryRepository) SumConfirmedByZone(ctx context.Context, zoneID uuid.UUID, kind model.DeliveryKind, from, to time.Time) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := GetDB(ctx, r.db).Model(&model.Delivery{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("kind = ? AND status = ?", kind, model.DeliveryConfirmed).
		Where("zone_id = ?", zoneID).
		Where("delivered_at >= ? AND delivered_at <= ?", from, to).
		Scan(&sum).Error
	if err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}
