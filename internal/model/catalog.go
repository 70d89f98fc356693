package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Zone groups stations under one administration; closures and settlements
// are keyed per zone and calendar month.
type Zone struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(120);uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (z *Zone) BeforeCreate(tx *gorm.DB) error {
	if z.ID == uuid.Nil {
		z.ID = uuid.New()
	}
	return nil
}

// Station belongs to exactly one zone and flags which fuel products it sells.
type Station struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name   string    `gorm:"type:varchar(120);not null" json:"name"`
	ZoneID uuid.UUID `gorm:"type:uuid;not null;index" json:"zone_id"`
	Zone   *Zone     `gorm:"foreignKey:ZoneID" json:"zone,omitempty"`

	SellsPremium bool `gorm:"default:true" json:"sells_premium"`
	SellsMagna   bool `gorm:"default:true" json:"sells_magna"`
	SellsDiesel  bool `gorm:"default:true" json:"sells_diesel"`

	Active bool `gorm:"default:true;index" json:"active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Station) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// SellsProduct reports whether the station carries the given fuel product.
func (s *Station) SellsProduct(p FuelProduct) bool {
	switch p {
	case ProductPremium:
		return s.SellsPremium
	case ProductMagna:
		return s.SellsMagna
	case ProductDiesel:
		return s.SellsDiesel
	}
	return false
}
