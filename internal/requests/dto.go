package requests

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/valkyrie-fleet/srp-backend/pkg/db/models"
	"github.com/valkyrie-fleet/srp-backend/pkg/enums"
	"github.com/valkyrie-fleet/srp-backend/pkg/pagination"
)

// SubmitInput carries a new reimbursement request.
type SubmitInput struct {
	KillmailURL string    `json:"killmail_url" validate:"required,url"`
	DivisionID  uuid.UUID `json:"division_id" validate:"required"`
	Details     string    `json:"details"`
}

// ListInput narrows and pages the request listing.
type ListInput struct {
	DivisionIDs      []uuid.UUID        `json:"division_ids"`
	Statuses         []enums.ActionType `json:"statuses"`
	PilotNames       []string           `json:"pilot_names"`
	CorporationNames []string           `json:"corporation_names"`
	AllianceNames    []string           `json:"alliance_names"`
	ShipTypes        []string           `json:"ship_types"`
	SystemNames      []string           `json:"system_names"`
	RegionNames      []string           `json:"region_names"`
	Pagination       pagination.Params  `json:"-"`
}

// RequestDetail pairs a request with its derived payout.
type RequestDetail struct {
	Request *models.Request `json:"request"`
	Payout  decimal.Decimal `json:"payout"`
}

// ListResult is one page of matching requests. TotalPayout folds the derived
// payouts of every non-rejected request matching the filter, not just the
// rows on this page.
type ListResult struct {
	Requests    []RequestDetail `json:"requests"`
	TotalPayout decimal.Decimal `json:"total_payout"`
	NextCursor  string          `json:"next_cursor,omitempty"`
}
