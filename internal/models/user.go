package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the marketplace account that owns listings and files reports.
// Accounts are provisioned by the auth service; this module only reads them
// and toggles the moderation flags.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"size:120" json:"name"`
	Email     string    `gorm:"size:255;uniqueIndex" json:"email"`
	IsAdmin   bool      `gorm:"default:false" json:"is_admin"`
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	IsBanned  bool      `gorm:"default:false" json:"is_banned"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
