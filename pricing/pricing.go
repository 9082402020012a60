// Package pricing computes cart summaries. Everything here is pure: the same
// lines and balances always give the same summary.
package pricing

import (
	"github.com/Kariqs/franchise-api/models"
	"github.com/shopspring/decimal"
)

var (
	DefaultFreeDeliveryThreshold = decimal.NewFromInt(2000)
	DefaultFlatDeliveryFee       = decimal.NewFromInt(100)
)

type Engine struct {
	FreeDeliveryThreshold decimal.Decimal
	FlatDeliveryFee       decimal.Decimal
}

func NewEngine(threshold, flatFee decimal.Decimal) Engine {
	return Engine{FreeDeliveryThreshold: threshold, FlatDeliveryFee: flatFee}
}

// LineTotal is unitPrice × quantity.
func LineTotal(l models.CartLine) decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// LineGST applies the line's own rate to its total.
func LineGST(l models.CartLine) decimal.Decimal {
	return LineTotal(l).Mul(l.GSTRate)
}

// DeliveryFee is waived once the subtotal reaches the threshold.
func (e Engine) DeliveryFee(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(e.FreeDeliveryThreshold) {
		return decimal.Zero
	}
	return e.FlatDeliveryFee
}

// ComputeSummary prices the lines and applies up to redeemPoints of the
// loyalty balance as a discount. One point is one currency unit and only
// whole points are spent, so the discount is capped by the floor of
// subtotal + GST.
func (e Engine) ComputeSummary(lines []models.CartLine, redeemPoints, loyaltyBalance int64) models.CartSummary {
	subtotal := decimal.Zero
	gst := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(LineTotal(l))
		gst = gst.Add(LineGST(l))
	}

	fee := e.DeliveryFee(subtotal)
	points := RedeemablePoints(redeemPoints, loyaltyBalance, subtotal.Add(gst))
	discount := decimal.NewFromInt(points)

	return models.CartSummary{
		Subtotal:        subtotal,
		GSTTotal:        gst,
		DeliveryFee:     fee,
		LoyaltyDiscount: discount,
		Total:           subtotal.Add(gst).Add(fee).Sub(discount),
		PointsToRedeem:  points,
	}
}

// RedeemablePoints is min(requested, balance, ⌊taxedSubtotal⌋), never negative.
func RedeemablePoints(requested, balance int64, taxedSubtotal decimal.Decimal) int64 {
	if requested <= 0 || balance <= 0 || !taxedSubtotal.IsPositive() {
		return 0
	}
	points := min(requested, balance)
	ceiling := taxedSubtotal.Floor().IntPart()
	return min(points, ceiling)
}
