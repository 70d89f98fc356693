package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the authenticated actor referenced by reports, deliveries and audit
// records. Account management (login, password reset) lives in a separate
// service; this table only carries what custody operations need.
type User struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"username"`
	Email    string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Role     Role      `gorm:"type:varchar(20);not null" json:"role"`

	// ZoneID scopes ZONE-role actors; nil for direction and admin actors.
	ZoneID *uuid.UUID `gorm:"type:uuid;index" json:"zone_id"`
	Zone   *Zone      `gorm:"foreignKey:ZoneID" json:"-"`

	// Stations a STATION-role actor may capture and review reports for.
	Stations []Station `gorm:"many2many:user_stations" json:"stations,omitempty"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
