package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActionCreateReport     = "CREATE_REPORT"
	ActionUpdateReport     = "UPDATE_REPORT"
	ActionTransitionReport = "TRANSITION_REPORT"

	ActionInitiateDelivery = "INITIATE_DELIVERY"
	ActionConfirmDelivery  = "CONFIRM_DELIVERY"
	ActionCreateExpense    = "CREATE_EXPENSE"

	ActionCloseOperational  = "CLOSE_OPERATIONAL"
	ActionReopenOperational = "REOPEN_OPERATIONAL"
	ActionCloseSettlement   = "CLOSE_SETTLEMENT"
	ActionReopenSettlement  = "REOPEN_SETTLEMENT"
)

// AuditRecord tracks who did what to which entity, with before/after
// snapshots. Rows are append-only and never updated.
type AuditRecord struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	EntityType string     `gorm:"type:varchar(50);not null;index" json:"entity_type"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`
	ActorID    *uuid.UUID `gorm:"type:uuid;index" json:"actor_id"`
	Actor      *User      `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`

	// BeforeValue/AfterValue hold serialized JSON snapshots of the entity
	// around the mutation; BeforeValue is empty on creation.
	BeforeValue string `gorm:"type:jsonb" json:"before_value"`
	AfterValue  string `gorm:"type:jsonb" json:"after_value"`

	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

func (a *AuditRecord) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
