package killmail

import (
	"time"

	"github.com/shopspring/decimal"
)

// Canonical source adapter names.
const (
	SourceZKillboard       = "zkillboard"
	SourceZKillboardLegacy = "zkillboard-legacy"
	SourceESI              = "esi"
)

// Killmail is the canonical loss record produced by a source adapter. It is
// built once from an external payload, consumed to seed a reimbursement
// request, then discarded. Alliance fields stay nil when the victim flew
// without an alliance.
type Killmail struct {
	KillID            int64
	ShipTypeID        int64
	ShipName          string
	PilotID           int64
	PilotName         string
	CorporationID     int64
	CorporationName   string
	AllianceID        *int64
	AllianceName      *string
	Verified          bool
	SourceURL         string
	Source            string
	Value             decimal.Decimal
	Timestamp         time.Time
	SystemID          int64
	SystemName        string
	ConstellationName string
	RegionName        string
	Extra             map[string]string
}
