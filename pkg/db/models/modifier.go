package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/valkyrie-fleet/srp-backend/pkg/enums"
)

// Modifier adjusts a request's payout. Modifiers are never deleted; voiding
// records who cancelled the modifier and when, so the ledger stays auditable.
// The serial primary key preserves creation order, which payout evaluation
// depends on.
type Modifier struct {
	ID            int64              `gorm:"column:id;primaryKey;autoIncrement"`
	RequestID     int64              `gorm:"column:request_id;not null;index:ix_modifiers_request_id"`
	UserID        uuid.UUID          `gorm:"column:user_id;type:uuid;not null"`
	Kind          enums.ModifierKind `gorm:"column:kind;type:text;not null"`
	Value         decimal.Decimal    `gorm:"column:value;type:numeric(20,9);not null"`
	Note          string             `gorm:"column:note;not null;default:''"`
	VoidUserID    *uuid.UUID         `gorm:"column:void_user_id;type:uuid"`
	VoidTimestamp *time.Time         `gorm:"column:void_timestamp"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
}

// IsVoid reports whether the modifier has been cancelled and should be
// skipped during payout evaluation.
func (m *Modifier) IsVoid() bool {
	return m.VoidUserID != nil
}
