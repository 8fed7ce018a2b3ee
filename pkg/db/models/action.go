package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/valkyrie-fleet/srp-backend/pkg/enums"
)

// Action is an immutable entry in a request's audit trail. Status-changing
// actions move the request through its lifecycle; comments leave the status
// untouched. The serial primary key preserves creation order.
type Action struct {
	ID        int64            `gorm:"column:id;primaryKey;autoIncrement"`
	RequestID int64            `gorm:"column:request_id;not null;index:ix_actions_request_id"`
	UserID    uuid.UUID        `gorm:"column:user_id;type:uuid;not null"`
	Type      enums.ActionType `gorm:"column:type;type:text;not null"`
	Note      string           `gorm:"column:note;not null;default:''"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
}
