package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Known admin roles. The role column itself is free-form.
const (
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
	RoleModerator  = "moderator"
)

// AdminGrant maps a provider subject to an admin role.
// UserID holds the subject, not the directory integer ID; the admins table
// has a unique constraint on it.
type AdminGrant struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string    `gorm:"column:user_id;type:uuid;not null;uniqueIndex" json:"user_id"`
	Role      string    `gorm:"size:50;not null" json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func (AdminGrant) TableName() string {
	return "admins"
}

func (g *AdminGrant) BeforeCreate(tx *gorm.DB) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	return nil
}

// HasRole reports whether the grant carries one of roles. No roles means any.
func (g *AdminGrant) HasRole(roles ...string) bool {
	if len(roles) == 0 {
		return true
	}
	for _, r := range roles {
		if g.Role == r {
			return true
		}
	}
	return false
}
