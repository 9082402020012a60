package orders

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Kariqs/franchise-api/apperrors"
	"github.com/Kariqs/franchise-api/cart"
	"github.com/Kariqs/franchise-api/events"
	"github.com/Kariqs/franchise-api/loyalty"
	"github.com/Kariqs/franchise-api/models"
	"github.com/Kariqs/franchise-api/pricing"
	"github.com/Kariqs/franchise-api/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultPointsPerUnit credits one point per hundred currency units.
var DefaultPointsPerUnit = decimal.RequireFromString("0.01")

type Config struct {
	// RequiresApproval creates orders as pending until an admin confirms them.
	RequiresApproval bool
	PointsPerUnit    decimal.Decimal
}

type Manager struct {
	store     store.Store
	carts     *cart.Service
	engine    pricing.Engine
	publisher events.Publisher
	logger    *zap.Logger
	cfg       Config
}

func NewManager(st store.Store, carts *cart.Service, engine pricing.Engine, publisher events.Publisher, logger *zap.Logger, cfg Config) *Manager {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if cfg.PointsPerUnit.IsZero() {
		cfg.PointsPerUnit = DefaultPointsPerUnit
	}
	return &Manager{store: st, carts: carts, engine: engine, publisher: publisher, logger: logger, cfg: cfg}
}

func (m *Manager) initialStatus() models.OrderStatus {
	if m.cfg.RequiresApproval {
		return models.OrderPending
	}
	return models.OrderConfirmed
}

func newOrder(memberID string, summary models.CartSummary, lines []models.CartLine, status models.OrderStatus) *models.FranchiseOrder {
	now := time.Now()
	o := &models.FranchiseOrder{
		ID:                uuid.NewString(),
		FranchiseMemberID: memberID,
		Subtotal:          summary.Subtotal,
		GST:               summary.GSTTotal,
		DeliveryFee:       summary.DeliveryFee,
		Discount:          summary.LoyaltyDiscount,
		PointsRedeemed:    summary.PointsToRedeem,
		Total:             summary.Total,
		Status:            status,
		PaymentStatus:     models.PaymentUnpaid,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	o.Lines = make([]models.OrderLine, 0, len(lines))
	for _, l := range lines {
		o.Lines = append(o.Lines, models.OrderLine{
			OrderID:   o.ID,
			ItemID:    l.ItemID,
			Name:      l.Name,
			UnitPrice: l.UnitPrice,
			Unit:      l.Unit,
			Quantity:  l.Quantity,
			GSTRate:   l.GSTRate,
			Category:  l.Category,
			LineTotal: pricing.LineTotal(l),
			LineGST:   pricing.LineGST(l),
		})
	}
	return o
}

// CreateOrder records an order from a priced cart. When the summary spends
// points the redemption is part of the same unit, so a short balance leaves
// no order behind.
func (m *Manager) CreateOrder(ctx context.Context, memberID string, summary models.CartSummary, lines []models.CartLine) (*models.FranchiseOrder, error) {
	if len(lines) == 0 {
		return nil, apperrors.ErrEmptyCart
	}
	if !summary.Total.IsPositive() {
		return nil, apperrors.ErrInvalidTotal
	}
	for _, l := range lines {
		if l.Quantity < 1 {
			return nil, apperrors.Validation(fmt.Sprintf("Quantity for %s must be at least 1", l.Name))
		}
	}

	order := newOrder(memberID, summary, lines, m.initialStatus())
	var published []events.Event
	err := m.store.Atomic(ctx, func(tx store.Store) error {
		if order.Status == models.OrderPending {
			blocked, err := tx.HasOrderInStatus(ctx, memberID, models.OrderConfirmed)
			if err != nil {
				return err
			}
			if blocked {
				return apperrors.ErrOrderBlocked
			}
		}

		if err := tx.CreateOrder(ctx, order); err != nil {
			return err
		}
		if order.Status == models.OrderConfirmed {
			acquired, err := tx.AcquireSlot(ctx, memberID, order.ID)
			if err != nil {
				return err
			}
			if !acquired {
				return apperrors.ErrOrderBlocked
			}
		}

		published = append(published, events.OrderCreated{
			OrderID:           order.ID,
			FranchiseMemberID: memberID,
			Status:            order.Status,
			Total:             order.Total,
			CreatedAt:         order.CreatedAt,
		})
		if summary.PointsToRedeem > 0 {
			entry, err := loyalty.Apply(ctx, tx, memberID, models.LoyaltyRedeemed, summary.PointsToRedeem,
				fmt.Sprintf("Redeemed on order %s", order.ID), order.ID)
			if err != nil {
				return err
			}
			published = append(published, entry.Event())
		}
		return nil
	})
	if err != nil {
		m.logger.Info("order rejected", zap.String("member", memberID), zap.Error(err))
		return nil, err
	}

	m.logger.Info("order created",
		zap.String("order", order.ID),
		zap.String("member", memberID),
		zap.String("status", string(order.Status)),
		zap.String("total", order.Total.StringFixed(2)))
	m.publisher.Publish(ctx, published...)
	return order, nil
}

// Checkout turns the member's cart into an order. Lines are re-read from the
// inventory so the order carries current prices; the cart is emptied only
// once the order exists.
func (m *Manager) Checkout(ctx context.Context, memberID string, redeemPoints int64) (*models.FranchiseOrder, error) {
	defer m.carts.Lock(memberID)()

	st, err := m.carts.Carts().Load(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if st.IsEmpty() {
		return nil, apperrors.ErrEmptyCart
	}

	lines, err := m.revalidate(ctx, st.Snapshot())
	if err != nil {
		return nil, err
	}
	account, err := m.store.GetAccount(ctx, memberID)
	if err != nil {
		return nil, err
	}
	summary := m.engine.ComputeSummary(lines, redeemPoints, account.CurrentBalance)

	order, err := m.CreateOrder(ctx, memberID, summary, lines)
	if err != nil {
		return nil, err
	}
	if err := m.carts.Carts().Delete(ctx, memberID); err != nil {
		m.logger.Warn("order created but cart not cleared",
			zap.String("order", order.ID), zap.String("member", memberID), zap.Error(err))
	}
	return order, nil
}

func (m *Manager) revalidate(ctx context.Context, lines []models.CartLine) ([]models.CartLine, error) {
	for i, l := range lines {
		item, err := m.store.GetItem(ctx, l.ItemID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.Withf(apperrors.ErrItemUnavailable, "%s is no longer sold", l.Name)
		}
		if err != nil {
			return nil, fmt.Errorf("read inventory: %w", err)
		}
		if !item.Available {
			return nil, apperrors.Withf(apperrors.ErrItemUnavailable, "%s is not available", item.Name)
		}
		if !item.Price.Equal(l.UnitPrice) {
			m.logger.Info("cart price corrected from inventory",
				zap.String("item", item.ID),
				zap.String("cartPrice", l.UnitPrice.String()),
				zap.String("price", item.Price.String()))
		}
		lines[i].Name = item.Name
		lines[i].UnitPrice = item.Price
		lines[i].GSTRate = item.GSTRate
		lines[i].Unit = item.Unit
		lines[i].Category = item.Category
	}
	return lines, nil
}

// Transition moves an order along the status graph and publishes the change.
func (m *Manager) Transition(ctx context.Context, orderID string, target models.OrderStatus) (*models.FranchiseOrder, error) {
	var (
		order     *models.FranchiseOrder
		published []events.Event
	)
	err := m.store.Atomic(ctx, func(tx store.Store) error {
		var err error
		order, published, err = m.TransitionIn(ctx, tx, orderID, target)
		return err
	})
	if err != nil {
		return nil, err
	}
	m.publisher.Publish(ctx, published...)
	return order, nil
}

// Cancel is allowed while the order is pending or confirmed. Points spent on
// the order are returned to the member.
func (m *Manager) Cancel(ctx context.Context, orderID string) (*models.FranchiseOrder, error) {
	return m.Transition(ctx, orderID, models.OrderCancelled)
}

// TransitionIn applies a status change inside the caller's unit and returns
// the events to publish once it commits.
func (m *Manager) TransitionIn(ctx context.Context, tx store.Store, orderID string, target models.OrderStatus) (*models.FranchiseOrder, []events.Event, error) {
	if !target.Valid() {
		return nil, nil, apperrors.Validation(fmt.Sprintf("Unknown order status %q", target))
	}
	order, err := getOrder(ctx, tx, orderID)
	if err != nil {
		return nil, nil, err
	}
	from := order.Status
	if !CanTransition(from, target) {
		err := apperrors.Withf(apperrors.ErrInvalidTransition, "Order cannot move from %s to %s", from, target)
		m.logger.Error("invalid order transition",
			zap.String("order", orderID),
			zap.String("from", string(from)),
			zap.String("to", string(target)))
		return nil, nil, err
	}

	published := []events.Event{}
	switch target {
	case models.OrderConfirmed:
		acquired, err := tx.AcquireSlot(ctx, order.FranchiseMemberID, order.ID)
		if err != nil {
			return nil, nil, err
		}
		if !acquired {
			return nil, nil, apperrors.ErrOrderBlocked
		}
	case models.OrderPaid:
		if err := requireSingleCompletedPayment(ctx, tx, order.ID); err != nil {
			m.logger.Error("order paid without a single completed payment", zap.String("order", orderID), zap.Error(err))
			return nil, nil, err
		}
	case models.OrderCancelled:
		if err := failInFlightPayments(ctx, tx, order.ID); err != nil {
			return nil, nil, err
		}
	}

	if err := tx.UpdateOrderStatus(ctx, order.ID, from, target); err != nil {
		if errors.Is(err, store.ErrStale) {
			return nil, nil, apperrors.ErrConcurrentUpdate
		}
		return nil, nil, err
	}
	order.Status = target

	if from == models.OrderConfirmed {
		if err := tx.ReleaseSlot(ctx, order.FranchiseMemberID, order.ID); err != nil {
			return nil, nil, err
		}
	}

	switch target {
	case models.OrderPaid:
		if err := tx.SetPaymentStatus(ctx, order.ID, models.PaymentSettled); err != nil {
			return nil, nil, err
		}
		order.PaymentStatus = models.PaymentSettled
	case models.OrderDelivered:
		if points := m.EarnedPoints(order.Total); points > 0 {
			entry, err := loyalty.Apply(ctx, tx, order.FranchiseMemberID, models.LoyaltyEarned, points,
				fmt.Sprintf("Earned on order %s", order.ID), order.ID)
			if err != nil {
				return nil, nil, err
			}
			published = append(published, entry.Event())
		}
	case models.OrderCancelled:
		if order.PointsRedeemed > 0 {
			entry, err := loyalty.Apply(ctx, tx, order.FranchiseMemberID, models.LoyaltyManualAddition, order.PointsRedeemed,
				fmt.Sprintf("Refund of points redeemed on cancelled order %s", order.ID), order.ID)
			if err != nil {
				return nil, nil, err
			}
			published = append(published, entry.Event())
		}
	}

	m.logger.Info("order status changed",
		zap.String("order", order.ID),
		zap.String("from", string(from)),
		zap.String("to", string(target)))
	published = append([]events.Event{events.OrderStatusChanged{
		OrderID:           order.ID,
		FranchiseMemberID: order.FranchiseMemberID,
		From:              from,
		To:                target,
	}}, published...)
	return order, published, nil
}

// EarnedPoints is ⌊total × points per unit⌋.
func (m *Manager) EarnedPoints(total decimal.Decimal) int64 {
	if !total.IsPositive() {
		return 0
	}
	return total.Mul(m.cfg.PointsPerUnit).Floor().IntPart()
}

func requireSingleCompletedPayment(ctx context.Context, tx store.PaymentRepository, orderID string) error {
	payments, err := tx.ListPayments(ctx, orderID)
	if err != nil {
		return err
	}
	completed := 0
	for _, p := range payments {
		if p.Status == models.TxCompleted {
			completed++
		}
	}
	if completed != 1 {
		return apperrors.Withf(apperrors.ErrInvalidTransition,
			"Order %s needs exactly one completed payment to be marked paid, found %d", orderID, completed)
	}
	return nil
}

func failInFlightPayments(ctx context.Context, tx store.PaymentRepository, orderID string) error {
	payments, err := tx.ListPayments(ctx, orderID)
	if err != nil {
		return err
	}
	for _, p := range payments {
		if !p.Status.InFlight() {
			continue
		}
		if _, err := tx.UpdatePaymentStatus(ctx, p.ID,
			[]models.TransactionStatus{models.TxCreated, models.TxPending}, models.TxFailed, "", "order cancelled"); err != nil {
			return err
		}
	}
	return nil
}

func getOrder(ctx context.Context, repo store.OrderRepository, orderID string) (*models.FranchiseOrder, error) {
	o, err := repo.GetOrder(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.Withf(apperrors.ErrNotFound, "Order %s not found", orderID)
	}
	return o, err
}

func (m *Manager) Get(ctx context.Context, orderID string) (*models.FranchiseOrder, error) {
	return getOrder(ctx, m.store, orderID)
}

// GetForMember hides orders owned by other members.
func (m *Manager) GetForMember(ctx context.Context, memberID, orderID string) (*models.FranchiseOrder, error) {
	o, err := m.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.FranchiseMemberID != memberID {
		return nil, apperrors.Withf(apperrors.ErrNotFound, "Order %s not found", orderID)
	}
	return o, nil
}

// CancelForMember cancels one of the member's own orders.
func (m *Manager) CancelForMember(ctx context.Context, memberID, orderID string) (*models.FranchiseOrder, error) {
	if _, err := m.GetForMember(ctx, memberID, orderID); err != nil {
		return nil, err
	}
	return m.Cancel(ctx, orderID)
}

type Page struct {
	Number    int
	Limit     int
	Ascending bool
}

func (p Page) filter() store.OrderFilter {
	number, limit := max(p.Number, 1), p.Limit
	if limit <= 0 {
		limit = 15
	}
	number = min(number, math.MaxInt/limit)
	return store.OrderFilter{Limit: limit, Offset: (number - 1) * limit, Ascending: p.Ascending}
}

func (m *Manager) ListByMember(ctx context.Context, memberID string, page Page) ([]models.FranchiseOrder, int64, error) {
	f := page.filter()
	f.FranchiseMemberID = memberID
	return m.store.ListOrders(ctx, f)
}

// List returns every member's orders, optionally narrowed to one status.
func (m *Manager) List(ctx context.Context, page Page, status models.OrderStatus) ([]models.FranchiseOrder, int64, error) {
	if status != "" && !status.Valid() {
		return nil, 0, apperrors.Validation(fmt.Sprintf("Unknown order status %q", status))
	}
	f := page.filter()
	f.Status = status
	return m.store.ListOrders(ctx, f)
}
