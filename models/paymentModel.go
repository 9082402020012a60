package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	MethodOnline       PaymentMethod = "online"
	MethodBankTransfer PaymentMethod = "bank_transfer"
)

type TransactionStatus string

const (
	TxCreated   TransactionStatus = "created"
	TxPending   TransactionStatus = "pending"
	TxCompleted TransactionStatus = "completed"
	TxFailed    TransactionStatus = "failed"
)

// InFlight reports whether the transaction still waits for a payment outcome.
func (s TransactionStatus) InFlight() bool {
	return s == TxCreated || s == TxPending
}

type PaymentTransaction struct {
	ID            string            `json:"id" gorm:"primaryKey;size:36"`
	OrderID       string            `json:"orderId" gorm:"size:36;index"`
	Amount        decimal.Decimal   `json:"amount" gorm:"type:decimal(14,4)"`
	Method        PaymentMethod     `json:"method" gorm:"size:16"`
	Status        TransactionStatus `json:"status" gorm:"size:16;index"`
	ExternalRef   string            `json:"externalRef,omitempty" gorm:"size:128;index"`
	RedirectURL   string            `json:"redirectUrl,omitempty"`
	FailureReason string            `json:"failureReason,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}
