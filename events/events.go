// Package events defines the change notifications the ordering engine emits
// and the transports that carry them. Subscribers should treat an event as a
// signal to re-read state, not as a transactional stream.
package events

import (
	"context"
	"time"

	"github.com/Kariqs/franchise-api/models"
	"github.com/shopspring/decimal"
)

type Event interface {
	EventType() string
}

// Publisher delivers events fire-and-forget. Implementations must not block
// the caller on slow consumers and never fail the originating operation.
type Publisher interface {
	Publish(ctx context.Context, events ...Event)
}

type OrderCreated struct {
	OrderID           string             `json:"orderId"`
	FranchiseMemberID string             `json:"franchiseMemberId"`
	Status            models.OrderStatus `json:"status"`
	Total             decimal.Decimal    `json:"total"`
	CreatedAt         time.Time          `json:"createdAt"`
}

func (OrderCreated) EventType() string { return "OrderCreated" }

type OrderStatusChanged struct {
	OrderID           string             `json:"orderId"`
	FranchiseMemberID string             `json:"franchiseMemberId"`
	From              models.OrderStatus `json:"from"`
	To                models.OrderStatus `json:"to"`
}

func (OrderStatusChanged) EventType() string { return "OrderStatusChanged" }

type PaymentCompleted struct {
	OrderID       string `json:"orderId"`
	TransactionID string `json:"transactionId"`
}

func (PaymentCompleted) EventType() string { return "PaymentCompleted" }

type PointsEarned struct {
	AccountID string `json:"accountId"`
	Points    int64  `json:"points"`
	OrderID   string `json:"orderId,omitempty"`
}

func (PointsEarned) EventType() string { return "PointsEarned" }

type PointsRedeemed struct {
	AccountID string `json:"accountId"`
	Points    int64  `json:"points"`
	OrderID   string `json:"orderId,omitempty"`
}

func (PointsRedeemed) EventType() string { return "PointsRedeemed" }

// Envelope is the wire shape used by the external transports.
type Envelope struct {
	Type       string    `json:"type"`
	Payload    Event     `json:"payload"`
	OccurredAt time.Time `json:"occurredAt"`
}

func NewEnvelope(e Event) Envelope {
	return Envelope{Type: e.EventType(), Payload: e, OccurredAt: time.Now().UTC()}
}

// Fanout publishes to every wrapped publisher in order.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, evs ...Event) {
	for _, p := range f {
		if p != nil {
			p.Publish(ctx, evs...)
		}
	}
}

// Nop drops everything.
type Nop struct{}

func (Nop) Publish(context.Context, ...Event) {}
