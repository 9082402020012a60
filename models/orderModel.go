package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderPaid      OrderStatus = "paid"
	OrderPacking   OrderStatus = "packing"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are possible.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderPaid, OrderPacking, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// PaymentStatus is the payment sub-status of an order while it waits in confirmed.
type PaymentStatus string

const (
	PaymentUnpaid           PaymentStatus = "unpaid"
	PaymentAwaitingGateway  PaymentStatus = "awaiting_gateway"
	PaymentAwaitingTransfer PaymentStatus = "awaiting_transfer"
	PaymentSettled          PaymentStatus = "paid"
)

type FranchiseOrder struct {
	ID                string          `json:"id" gorm:"primaryKey;size:36"`
	FranchiseMemberID string          `json:"franchiseMemberId" gorm:"size:64;index"`
	Lines             []OrderLine     `json:"lines" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Subtotal          decimal.Decimal `json:"subtotal" gorm:"type:decimal(14,4)"`
	GST               decimal.Decimal `json:"gst" gorm:"type:decimal(14,4)"`
	DeliveryFee       decimal.Decimal `json:"deliveryFee" gorm:"type:decimal(14,4)"`
	Discount          decimal.Decimal `json:"discount" gorm:"type:decimal(14,4)"`
	PointsRedeemed    int64           `json:"pointsRedeemed"`
	Total             decimal.Decimal `json:"total" gorm:"type:decimal(14,4)"`
	Status            OrderStatus     `json:"status" gorm:"size:16;index"`
	PaymentStatus     PaymentStatus   `json:"paymentStatus" gorm:"size:24"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

type OrderLine struct {
	ID        uint            `json:"-" gorm:"primaryKey"`
	OrderID   string          `json:"orderId" gorm:"size:36;index"`
	ItemID    string          `json:"itemId" gorm:"size:64"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice" gorm:"type:decimal(14,4)"`
	Unit      string          `json:"unit"`
	Quantity  int             `json:"quantity"`
	GSTRate   decimal.Decimal `json:"gstRate" gorm:"type:decimal(6,4)"`
	Category  string          `json:"category"`
	LineTotal decimal.Decimal `json:"lineTotal" gorm:"type:decimal(14,4)"`
	LineGST   decimal.Decimal `json:"lineGst" gorm:"type:decimal(14,4)"`
}

// AdmissionSlot exists while its franchise member owns a confirmed order.
type AdmissionSlot struct {
	FranchiseMemberID string    `gorm:"primaryKey;size:64"`
	OrderID           string    `gorm:"size:36"`
	AcquiredAt        time.Time
}
