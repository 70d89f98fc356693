package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// EntityType scopes expenses and spending limits to a station or a zone,
// never both.
type EntityType string

const (
	EntityStation EntityType = "STATION"
	EntityZone    EntityType = "ZONE"
)

// Expense is money deducted from an entity's custody balance. Creation is
// gated by the spending-limit validator and blocked once the period's
// accounting settlement is closed.
type Expense struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	StationID *uuid.UUID `gorm:"type:uuid;index" json:"station_id"`
	Station   *Station   `gorm:"foreignKey:StationID" json:"station,omitempty"`
	ZoneID    *uuid.UUID `gorm:"type:uuid;index" json:"zone_id"`
	Zone      *Zone      `gorm:"foreignKey:ZoneID" json:"zone,omitempty"`

	Amount   decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount"`
	Concept  string          `gorm:"type:text;not null" json:"concept"`
	Category string          `gorm:"type:varchar(60)" json:"category"`
	SpentAt  time.Time       `gorm:"type:date;not null;index" json:"spent_at"`

	CreatedBy uuid.UUID `gorm:"type:uuid;not null" json:"created_by"`
	Creator   *User     `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (e *Expense) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// SpendingLimit is the monthly expense ceiling for one station or zone,
// versioned by effective-from ordering; the active row for a date is the
// latest one effective at or before it.
type SpendingLimit struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	StationID *uuid.UUID `gorm:"type:uuid;index" json:"station_id"`
	ZoneID    *uuid.UUID `gorm:"type:uuid;index" json:"zone_id"`

	MonthlyCeiling decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"monthly_ceiling"`
	EffectiveFrom  time.Time       `gorm:"type:date;not null;index" json:"effective_from"`

	CreatedBy uuid.UUID `gorm:"type:uuid;not null" json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

func (l *SpendingLimit) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
