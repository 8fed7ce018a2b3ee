package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/valkyrie-fleet/srp-backend/pkg/enums"
)

// Permission grants a capability within a single division to either a user or
// a group. The composite unique index makes grants idempotent at the database
// level.
type Permission struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	DivisionID  uuid.UUID            `gorm:"column:division_id;type:uuid;not null;uniqueIndex:ux_permissions_grant"`
	GranteeType enums.GranteeType    `gorm:"column:grantee_type;type:text;not null;uniqueIndex:ux_permissions_grant"`
	GranteeID   uuid.UUID            `gorm:"column:grantee_id;type:uuid;not null;uniqueIndex:ux_permissions_grant"`
	Type        enums.PermissionType `gorm:"column:type;type:text;not null;uniqueIndex:ux_permissions_grant"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime"`
}
