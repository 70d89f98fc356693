package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReportStatus enum. A pending report covers both capture and review; there
// is no separate under-review state.
type ReportStatus string

const (
	ReportPending  ReportStatus = "PENDING"
	ReportApproved ReportStatus = "APPROVED"
	ReportRejected ReportStatus = "REJECTED"
)

// FuelProduct enum constants
type FuelProduct string

const (
	ProductPremium FuelProduct = "PREMIUM"
	ProductMagna   FuelProduct = "MAGNA"
	ProductDiesel  FuelProduct = "DIESEL"
)

// FuelProducts lists every sellable product in stable order.
var FuelProducts = []FuelProduct{ProductPremium, ProductMagna, ProductDiesel}

// SalesReport is one station's daily fuel sales capture, one row per
// (station, calendar date). Reports are never physically deleted; review
// actions only mutate status and reviewer metadata.
type SalesReport struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	StationID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_station_report_date" json:"station_id"`
	Station    *Station  `gorm:"foreignKey:StationID" json:"station,omitempty"`
	ReportDate time.Time `gorm:"type:date;not null;uniqueIndex:idx_station_report_date;index" json:"report_date"`

	OilsAmount decimal.Decimal `gorm:"type:decimal(18,4);default:0" json:"oils_amount"`

	Status        ReportStatus `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	CreatedBy     uuid.UUID    `gorm:"type:uuid;not null" json:"created_by"`
	Creator       *User        `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	ReviewedBy    *uuid.UUID   `gorm:"type:uuid" json:"reviewed_by"`
	Reviewer      *User        `gorm:"foreignKey:ReviewedBy" json:"reviewer,omitempty"`
	ReviewedAt    *time.Time   `json:"reviewed_at"`
	ReviewComment string       `gorm:"type:text" json:"review_comment"`

	Items []FuelLineItem `gorm:"foreignKey:ReportID" json:"items,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *SalesReport) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// ItemFor returns the line item for the given product, nil if absent.
func (r *SalesReport) ItemFor(p FuelProduct) *FuelLineItem {
	for i := range r.Items {
		if r.Items[i].Product == p {
			return &r.Items[i]
		}
	}
	return nil
}

// FuelLineItem is the per-product accounting detail of a daily report.
// Raw capture inputs: Price, LitersSold, ShrinkageVolume, OpeningInventory
// (IIB, carried from the prior day's ReportedClosing except on the 1st),
// Purchases, CCT, DiscountVolume and ReportedClosing (IFFB). Everything
// else is derived at write time and must never be trusted from the caller.
type FuelLineItem struct {
	ID       uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	ReportID uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_report_product" json:"report_id"`
	Product  FuelProduct `gorm:"type:varchar(10);not null;uniqueIndex:idx_report_product" json:"product"`

	Price      decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"price"`
	LitersSold decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"liters_sold"`
	Amount     decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount"`

	ShrinkageVolume decimal.Decimal `gorm:"type:decimal(18,4);default:0" json:"shrinkage_volume"`
	ShrinkageAmount decimal.Decimal `gorm:"type:decimal(18,4);default:0" json:"shrinkage_amount"`
	ShrinkagePct    decimal.Decimal `gorm:"type:decimal(8,4);default:0" json:"shrinkage_pct"`

	OpeningInventory decimal.Decimal `gorm:"type:decimal(18,4);default:0" json:"opening_inventory"`
	Purchases        decimal.Decimal `gorm:"type:decimal(18,4);default:0" json:"purchases"`
	CCT              decimal.Decimal `gorm:"column:cct;type:decimal(18,4);default:0" json:"cct"`
	DiscountVolume   decimal.Decimal `gorm:"type:decimal(18,4);default:0" json:"discount_volume"`

	DC               decimal.Decimal `gorm:"column:dc;type:decimal(18,4);default:0" json:"dc"`
	DiscountDiff     decimal.Decimal `gorm:"type:decimal(18,4);default:0" json:"discount_diff"`
	ClosingInventory decimal.Decimal `gorm:"type:decimal(18,4);default:0" json:"closing_inventory"`
	ReportedClosing  decimal.Decimal `gorm:"type:decimal(18,4);default:0" json:"reported_closing"`

	EfficiencyReal   decimal.Decimal `gorm:"type:decimal(18,4);default:0" json:"efficiency_real"`
	EfficiencyAmount decimal.Decimal `gorm:"type:decimal(18,4);default:0" json:"efficiency_amount"`
	EfficiencyPct    decimal.Decimal `gorm:"type:decimal(8,4);default:0" json:"efficiency_pct"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (i *FuelLineItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
