package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/valkyrie-fleet/srp-backend/pkg/enums"
)

// Request is a reimbursement request for a single killmail. The primary key
// is the external kill ID, which makes duplicate submissions a constraint
// violation rather than an application-level check.
type Request struct {
	ID                int64            `gorm:"column:id;primaryKey;autoIncrement:false"`
	CreatorID         uuid.UUID        `gorm:"column:creator_id;type:uuid;not null;index:ix_requests_creator_id"`
	DivisionID        uuid.UUID        `gorm:"column:division_id;type:uuid;not null;index:ix_requests_division_id"`
	PilotID           int64            `gorm:"column:pilot_id;not null"`
	PilotName         string           `gorm:"column:pilot_name;not null"`
	CorporationName   string           `gorm:"column:corporation_name;not null"`
	AllianceName      *string          `gorm:"column:alliance_name"`
	ShipType          string           `gorm:"column:ship_type;not null"`
	SystemName        string           `gorm:"column:system_name;not null"`
	ConstellationName string           `gorm:"column:constellation_name;not null"`
	RegionName        string           `gorm:"column:region_name;not null"`
	KillmailURL       string           `gorm:"column:killmail_url;not null"`
	KillTimestamp     time.Time        `gorm:"column:kill_timestamp;not null"`
	Details           string           `gorm:"column:details;not null;default:''"`
	Status            enums.ActionType `gorm:"column:status;type:text;not null;default:'evaluating'"`
	BasePayout        decimal.Decimal  `gorm:"column:base_payout;type:numeric(20,2);not null;default:0"`
	Actions           []Action         `gorm:"foreignKey:RequestID;constraint:OnDelete:CASCADE"`
	Modifiers         []Modifier       `gorm:"foreignKey:RequestID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
