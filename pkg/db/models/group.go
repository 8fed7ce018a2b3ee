package models

import (
	"time"

	"github.com/google/uuid"
)

// Group collects users so division permissions can be granted in bulk.
type Group struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name       string    `gorm:"column:name;not null;uniqueIndex:ux_groups_name"`
	AuthSource string    `gorm:"column:auth_source;not null;default:'local'"`
	Users      []User    `gorm:"many2many:group_memberships"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}
