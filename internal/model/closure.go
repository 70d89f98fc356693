package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OperationalClosure locks sales-report capture for one zone and month.
// One row per (zone, year, month); reopening flips the flag back and stamps
// the reopener instead of deleting the row.
type OperationalClosure struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ZoneID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_closure_zone_period" json:"zone_id"`
	Zone   *Zone     `gorm:"foreignKey:ZoneID" json:"zone,omitempty"`
	Year   int       `gorm:"not null;uniqueIndex:idx_closure_zone_period" json:"year"`
	Month  int       `gorm:"not null;uniqueIndex:idx_closure_zone_period" json:"month"`

	Closed     bool       `gorm:"not null;default:false" json:"closed"`
	ClosedBy   *uuid.UUID `gorm:"type:uuid" json:"closed_by"`
	ClosedAt   *time.Time `json:"closed_at"`
	ReopenedBy *uuid.UUID `gorm:"type:uuid" json:"reopened_by"`
	ReopenedAt *time.Time `json:"reopened_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *OperationalClosure) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// MonthlyRollup is the per-station, per-product aggregate persisted by an
// operational close and recomputed from approved line items only. Rollups
// are deleted when the closure is reopened.
type MonthlyRollup struct {
	ID        uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	ZoneID    uuid.UUID   `gorm:"type:uuid;not null;index" json:"zone_id"`
	StationID uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_rollup_station_period" json:"station_id"`
	Station   *Station    `gorm:"foreignKey:StationID" json:"station,omitempty"`
	Year      int         `gorm:"not null;uniqueIndex:idx_rollup_station_period" json:"year"`
	Month     int         `gorm:"not null;uniqueIndex:idx_rollup_station_period" json:"month"`
	Product   FuelProduct `gorm:"type:varchar(10);not null;uniqueIndex:idx_rollup_station_period" json:"product"`

	LitersSold      decimal.Decimal `gorm:"type:decimal(18,4);default:0" json:"liters_sold"`
	SaleAmount      decimal.Decimal `gorm:"type:decimal(18,4);default:0" json:"sale_amount"`
	ShrinkageVolume decimal.Decimal `gorm:"type:decimal(18,4);default:0" json:"shrinkage_volume"`
	ShrinkageAmount decimal.Decimal `gorm:"type:decimal(18,4);default:0" json:"shrinkage_amount"`
	DaysApproved    int             `gorm:"default:0" json:"days_approved"`

	CreatedAt time.Time `json:"created_at"`
}

func (r *MonthlyRollup) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
