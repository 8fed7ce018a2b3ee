package models

import (
	"time"

	"github.com/google/uuid"
)

// Pilot is an EVE character on a user's roster. The primary key is the
// character ID assigned by CCP, not a locally generated one.
type Pilot struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement:false"`
	Name      string    `gorm:"column:name;not null;uniqueIndex:ux_pilots_name"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;index:ix_pilots_user_id"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
