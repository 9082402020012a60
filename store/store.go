// Package store declares the persistence boundary of the ordering engine.
// Implementations live in memstore (tests, local development) and gormstore
// (MySQL/Postgres through gorm).
package store

import (
	"context"
	"errors"
	"time"

	"github.com/Kariqs/franchise-api/models"
)

var (
	ErrNotFound = errors.New("store: record not found")
	// ErrStale is returned by conditional updates whose precondition no
	// longer holds.
	ErrStale = errors.New("store: record changed concurrently")
)

// CatalogRepository is the read side of the inventory catalog.
type CatalogRepository interface {
	GetItem(ctx context.Context, id string) (*models.CatalogItem, error)
	// ListItems returns one page of items sorted by name and the number of
	// items matching the filter.
	ListItems(ctx context.Context, f CatalogFilter) ([]models.CatalogItem, int64, error)
	SaveItem(ctx context.Context, item *models.CatalogItem) error
}

// CatalogFilter narrows a catalog listing. Search matches the item name
// case-insensitively.
type CatalogFilter struct {
	Search   string
	Category string
	Limit    int
	Offset   int
}

type OrderFilter struct {
	FranchiseMemberID string
	Status            models.OrderStatus
	Limit             int
	Offset            int
	Ascending         bool
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, o *models.FranchiseOrder) error
	GetOrder(ctx context.Context, id string) (*models.FranchiseOrder, error)
	// LockOrder reads the order and holds it exclusively until the
	// surrounding unit ends.
	LockOrder(ctx context.Context, id string) (*models.FranchiseOrder, error)
	// UpdateOrderStatus moves the order to `to` only while it is still in
	// `from`; otherwise it returns ErrStale.
	UpdateOrderStatus(ctx context.Context, id string, from, to models.OrderStatus) error
	SetPaymentStatus(ctx context.Context, id string, ps models.PaymentStatus) error
	ListOrders(ctx context.Context, f OrderFilter) ([]models.FranchiseOrder, int64, error)
	HasOrderInStatus(ctx context.Context, memberID string, status models.OrderStatus) (bool, error)

	// AcquireSlot is an atomic test-and-set on the member's admission slot.
	// It reports false when another order already holds it.
	AcquireSlot(ctx context.Context, memberID, orderID string) (bool, error)
	ReleaseSlot(ctx context.Context, memberID, orderID string) error
}

type PaymentRepository interface {
	CreatePayment(ctx context.Context, p *models.PaymentTransaction) error
	GetPayment(ctx context.Context, id string) (*models.PaymentTransaction, error)
	GetPaymentByExternalRef(ctx context.Context, ref string) (*models.PaymentTransaction, error)
	ListPayments(ctx context.Context, orderID string) ([]models.PaymentTransaction, error)
	SavePayment(ctx context.Context, p *models.PaymentTransaction) error
	// UpdatePaymentStatus moves the transaction to `to` only from one of the
	// `from` statuses and reports whether it did.
	UpdatePaymentStatus(ctx context.Context, id string, from []models.TransactionStatus, to models.TransactionStatus, externalRef, reason string) (bool, error)
	ListInFlightBefore(ctx context.Context, before time.Time) ([]models.PaymentTransaction, error)
}

type LoyaltyRepository interface {
	// LockAccount returns the member's account, creating an empty one when
	// missing, and holds it exclusively until the surrounding unit ends.
	LockAccount(ctx context.Context, memberID string) (*models.LoyaltyAccount, error)
	// GetAccount returns an unsaved zero account for unknown members.
	GetAccount(ctx context.Context, memberID string) (*models.LoyaltyAccount, error)
	SaveAccount(ctx context.Context, a *models.LoyaltyAccount) error
	AppendLoyaltyTransaction(ctx context.Context, t *models.LoyaltyTransaction) error
	ListLoyaltyTransactions(ctx context.Context, memberID string) ([]models.LoyaltyTransaction, error)
}

type Store interface {
	CatalogRepository
	OrderRepository
	PaymentRepository
	LoyaltyRepository

	AppendEvents(ctx context.Context, records []models.EventRecord) error

	// Atomic runs fn as one unit: either every write inside it becomes
	// visible or none does. Calling Atomic on the tx store joins the
	// surrounding unit.
	Atomic(ctx context.Context, fn func(tx Store) error) error
}
