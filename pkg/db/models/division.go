package models

import (
	"time"

	"github.com/google/uuid"
)

// Division is an isolated reimbursement pool with its own permission grants.
type Division struct {
	ID          uuid.UUID    `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string       `gorm:"column:name;not null;uniqueIndex:ux_divisions_name"`
	Permissions []Permission `gorm:"foreignKey:DivisionID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time    `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time    `gorm:"column:updated_at;autoUpdateTime"`
}
