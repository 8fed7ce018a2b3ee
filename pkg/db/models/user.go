package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an authenticated account able to submit and work reimbursement
// requests. Site admins bypass per-division permission checks.
type User struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name       string    `gorm:"column:name;not null;uniqueIndex:ux_users_name"`
	AuthSource string    `gorm:"column:auth_source;not null;default:'local'"`
	IsAdmin    bool      `gorm:"column:is_admin;not null;default:false"`
	Pilots     []Pilot   `gorm:"foreignKey:UserID"`
	Groups     []Group   `gorm:"many2many:group_memberships"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
