package models

import "github.com/shopspring/decimal"

type CartLine struct {
	ItemID    string          `json:"itemId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Unit      string          `json:"unit"`
	Quantity  int             `json:"quantity"`
	GSTRate   decimal.Decimal `json:"gstRate"`
	Category  string          `json:"category"`
}

// CartSummary is derived from the cart lines on every read and never stored.
type CartSummary struct {
	Subtotal        decimal.Decimal `json:"subtotal"`
	GSTTotal        decimal.Decimal `json:"gstTotal"`
	DeliveryFee     decimal.Decimal `json:"deliveryFee"`
	LoyaltyDiscount decimal.Decimal `json:"loyaltyDiscount"`
	Total           decimal.Decimal `json:"total"`
	PointsToRedeem  int64           `json:"pointsToRedeem"`
}
