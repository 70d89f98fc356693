package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DeliveryKind enum constants
type DeliveryKind string

const (
	DeliveryStationToZone   DeliveryKind = "STATION_TO_ZONE"
	DeliveryZoneToDirection DeliveryKind = "ZONE_TO_DIRECTION"
)

// DeliveryStatus enum. Confirmed is terminal; only confirmed deliveries
// count toward custody balances.
type DeliveryStatus string

const (
	DeliveryPendingSignature DeliveryStatus = "PENDING_SIGNATURE"
	DeliveryConfirmed        DeliveryStatus = "CONFIRMED"
)

// Delivery is a custody money handoff awaiting counter-signature.
// Station→zone deliveries carry an evidence attachment reference;
// zone→direction deliveries carry the direction-role addressee that must
// counter-sign them.
type Delivery struct {
	ID   uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	Kind DeliveryKind `gorm:"type:varchar(20);not null;index" json:"kind"`

	StationID *uuid.UUID `gorm:"type:uuid;index" json:"station_id"`
	Station   *Station   `gorm:"foreignKey:StationID" json:"station,omitempty"`
	ZoneID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"zone_id"`
	Zone      *Zone      `gorm:"foreignKey:ZoneID" json:"zone,omitempty"`

	Amount      decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount"`
	Concept     string          `gorm:"type:text" json:"concept"`
	DeliveredAt time.Time       `gorm:"type:date;not null;index" json:"delivered_at"`

	Status DeliveryStatus `gorm:"type:varchar(20);not null;default:'PENDING_SIGNATURE';index" json:"status"`

	// EvidencePath references a file written by the evidence store
	// collaborator; required for station→zone deliveries.
	EvidencePath string `gorm:"type:text" json:"evidence_path"`

	// AddresseeID is the direction-role user that must confirm a
	// zone→direction delivery.
	AddresseeID *uuid.UUID `gorm:"type:uuid" json:"addressee_id"`
	Addressee   *User      `gorm:"foreignKey:AddresseeID" json:"addressee,omitempty"`

	InitiatedBy uuid.UUID  `gorm:"type:uuid;not null" json:"initiated_by"`
	Initiator   *User      `gorm:"foreignKey:InitiatedBy" json:"initiator,omitempty"`
	ConfirmedBy *uuid.UUID `gorm:"type:uuid" json:"confirmed_by"`
	Confirmer   *User      `gorm:"foreignKey:ConfirmedBy" json:"confirmer,omitempty"`
	ConfirmedAt *time.Time `json:"confirmed_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (d *Delivery) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
