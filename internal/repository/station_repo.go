package repository

import (
	"context"

	"custodia/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Station, error)
	ListActiveByZone(ctx context.Context, zoneID uuid.UUID) ([]model.Station, error)
	FindZone(ctx context.Context, id uuid.UUID) (*model.Zone, error)
}

type stationRepository struct {
	db *gorm.DB
}

func NewStationRepository(db *gorm.DB) StationRepository {
	return &stationRepository{db: db}
}

func (r *stationRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Station, error) {
	var station model.Station
	if err := GetDB(ctx, r.db).Preload("Zone").First(&station, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &station, nil
}

func (r *stationRepository) ListActiveByZone(ctx context.Context, zoneID uuid.UUID) ([]model.Station, error) {
	var stations []model.Station
	err := GetDB(ctx, r.db).
		Where("zone_id = ? AND active = ?", zoneID, true).
		Order("name").
		Find(&stations).Error
	if err != nil {
		return nil, err
	}
	return stations, nil
}

func (r *stationRepository) FindZone(ctx context.Context, id uuid.UUID) (*model.Zone, error) {
	var zone model.Zone
	if err := GetDB(ctx, r.db).First(&zone, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &zone, nil
}
