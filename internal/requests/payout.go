package requests

import (
	"github.com/shopspring/decimal"

	"github.com/valkyrie-fleet/srp-backend/pkg/db/models"
	"github.com/valkyrie-fleet/srp-backend/pkg/enums"
)

var one = decimal.NewFromInt(1)

// Payout computes the request's current payout: a left fold over the base
// payout and the non-void modifiers in creation order. Absolute modifiers
// add their value, relative modifiers multiply the running total by
// (1 + value). The result is derived on every call and never stored, so a
// ledger mutation is reflected immediately.
//
// Order matters: relative modifiers multiply the running total rather than
// the original base, so the same set applied in a different order yields a
// different result. The caller must supply modifiers in creation order.
func Payout(request *models.Request) decimal.Decimal {
	total := request.BasePayout
	for i := range request.Modifiers {
		modifier := &request.Modifiers[i]
		if modifier.IsVoid() {
			continue
		}
		switch modifier.Kind {
		case enums.ModifierKindAbsolute:
			total = total.Add(modifier.Value)
		case enums.ModifierKindRelative:
			total = total.Mul(one.Add(modifier.Value))
		}
	}
	return total
}
