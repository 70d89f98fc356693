package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SettlementStatus enum. Reopened rows are kept, never deleted, so the
// reopen trail stays visible.
type SettlementStatus string

const (
	SettlementOpen     SettlementStatus = "OPEN"
	SettlementClosed   SettlementStatus = "CLOSED"
	SettlementReopened SettlementStatus = "REOPENED"
)

// MonthlySettlement ("liquidación") is the accounting close of one zone and
// month: one zone-level row (StationID nil) plus one row per station. The
// zone row's ClosingBalance carries forward as the next month's opening
// balance once the row is CLOSED.
type MonthlySettlement struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ZoneID    uuid.UUID  `gorm:"type:uuid;not null;index:idx_settlement_zone_period" json:"zone_id"`
	Zone      *Zone      `gorm:"foreignKey:ZoneID" json:"zone,omitempty"`
	StationID *uuid.UUID `gorm:"type:uuid;index" json:"station_id"`
	Station   *Station   `gorm:"foreignKey:StationID" json:"station,omitempty"`
	Year      int        `gorm:"not null;index:idx_settlement_zone_period" json:"year"`
	Month     int        `gorm:"not null;index:idx_settlement_zone_period" json:"month"`

	ShrinkageTotal  decimal.Decimal `gorm:"type:decimal(18,4);default:0" json:"shrinkage_total"`
	DeliveriesTotal decimal.Decimal `gorm:"type:decimal(18,4);default:0" json:"deliveries_total"`
	ExpensesTotal   decimal.Decimal `gorm:"type:decimal(18,4);default:0" json:"expenses_total"`
	OpeningBalance  decimal.Decimal `gorm:"type:decimal(18,4);default:0" json:"opening_balance"`
	ClosingBalance  decimal.Decimal `gorm:"type:decimal(18,4);default:0" json:"closing_balance"`
	Difference      decimal.Decimal `gorm:"type:decimal(18,4);default:0" json:"difference"`

	Status       SettlementStatus `gorm:"type:varchar(20);not null;default:'OPEN';index" json:"status"`
	Observations string           `gorm:"type:text" json:"observations"`

	ClosedBy   *uuid.UUID `gorm:"type:uuid" json:"closed_by"`
	ClosedAt   *time.Time `json:"closed_at"`
	ReopenedBy *uuid.UUID `gorm:"type:uuid" json:"reopened_by"`
	ReopenedAt *time.Time `json:"reopened_at"`
	ReopenReason string   `gorm:"type:text" json:"reopen_reason"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *MonthlySettlement) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// IsZoneRow reports whether this is the zone-level settlement row.
func (s *MonthlySettlement) IsZoneRow() bool { return s.StationID == nil }
