package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Kariqs/franchise-api/apperrors"
	"github.com/Kariqs/franchise-api/events"
	"github.com/Kariqs/franchise-api/models"
	"github.com/Kariqs/franchise-api/orders"
	"github.com/Kariqs/franchise-api/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultExpiry = 30 * time.Minute

var inFlight = []models.TransactionStatus{models.TxCreated, models.TxPending}

type Processor struct {
	store     store.Store
	orders    *orders.Manager
	gateway   Gateway
	publisher events.Publisher
	logger    *zap.Logger
	expiry    time.Duration
}

func NewProcessor(st store.Store, manager *orders.Manager, gateway Gateway, publisher events.Publisher, logger *zap.Logger, expiry time.Duration) *Processor {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	return &Processor{store: st, orders: manager, gateway: gateway, publisher: publisher, logger: logger, expiry: expiry}
}

func getPayment(ctx context.Context, repo store.PaymentRepository, id string) (*models.PaymentTransaction, error) {
	p, err := repo.GetPayment(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.Withf(apperrors.ErrNotFound, "Payment %s not found", id)
	}
	return p, err
}

// Initiate opens a payment attempt for a confirmed order. Only one attempt
// may be in flight at a time.
func (p *Processor) Initiate(ctx context.Context, orderID string, method models.PaymentMethod, payer Payer) (*models.PaymentTransaction, error) {
	if method != models.MethodOnline && method != models.MethodBankTransfer {
		return nil, apperrors.Validation(fmt.Sprintf("Unsupported payment method %q", method))
	}
	if method == models.MethodOnline && p.gateway == nil {
		return nil, apperrors.Withf(apperrors.ErrGateway, "Online payment is not configured")
	}

	var (
		order *models.FranchiseOrder
		txn   *models.PaymentTransaction
	)
	err := p.store.Atomic(ctx, func(tx store.Store) error {
		var err error
		// Concurrent attempts for the same order queue here.
		order, err = tx.LockOrder(ctx, orderID)
		if errors.Is(err, store.ErrNotFound) {
			return apperrors.Withf(apperrors.ErrNotFound, "Order %s not found", orderID)
		}
		if err != nil {
			return err
		}
		if order.Status != models.OrderConfirmed {
			return apperrors.Withf(apperrors.ErrOrderNotPayable, "Order is %s and cannot be paid", order.Status)
		}

		existing, err := tx.ListPayments(ctx, orderID)
		if err != nil {
			return err
		}
		for _, e := range existing {
			switch {
			case e.Status == models.TxCompleted:
				return apperrors.Withf(apperrors.ErrOrderNotPayable, "Order %s is already paid", orderID)
			case e.Status.InFlight():
				return apperrors.ErrPaymentInFlight
			}
		}

		now := time.Now()
		txn = &models.PaymentTransaction{
			ID:        uuid.NewString(),
			OrderID:   orderID,
			Amount:    order.Total,
			Method:    method,
			Status:    models.TxCreated,
			CreatedAt: now,
			UpdatedAt: now,
		}
		sub := models.PaymentAwaitingGateway
		if method == models.MethodBankTransfer {
			txn.Status = models.TxPending
			sub = models.PaymentAwaitingTransfer
		}
		if err := tx.CreatePayment(ctx, txn); err != nil {
			return err
		}
		return tx.SetPaymentStatus(ctx, orderID, sub)
	})
	if err != nil {
		return nil, err
	}

	p.logger.Info("payment initiated",
		zap.String("order", orderID),
		zap.String("transaction", txn.ID),
		zap.String("method", string(method)))
	if method == models.MethodBankTransfer {
		return txn, nil
	}
	return p.submit(ctx, order, txn, payer)
}

func (p *Processor) submit(ctx context.Context, order *models.FranchiseOrder, txn *models.PaymentTransaction, payer Payer) (*models.PaymentTransaction, error) {
	sub, err := p.gateway.Submit(ctx, SubmitRequest{
		Reference:   txn.ID,
		Amount:      txn.Amount,
		Description: fmt.Sprintf("Payment for order %s", order.ID),
		Payer:       payer,
	})
	if err != nil {
		p.logger.Warn("payment gateway submission failed", zap.String("transaction", txn.ID), zap.Error(err))
		if _, failErr := p.fail(ctx, txn.ID, "gateway submission failed"); failErr != nil {
			p.logger.Error("could not close failed payment", zap.String("transaction", txn.ID), zap.Error(failErr))
		}
		return nil, apperrors.Wrap(apperrors.ErrGateway, err)
	}

	err = p.store.Atomic(ctx, func(tx store.Store) error {
		moved, err := tx.UpdatePaymentStatus(ctx, txn.ID, []models.TransactionStatus{models.TxCreated}, models.TxPending, sub.TrackingID, "")
		if err != nil {
			return err
		}
		if !moved {
			return apperrors.Withf(apperrors.ErrPaymentClosed, "Payment %s closed before the gateway answered", txn.ID)
		}
		current, err := tx.GetPayment(ctx, txn.ID)
		if err != nil {
			return err
		}
		current.RedirectURL = sub.RedirectURL
		if err := tx.SavePayment(ctx, current); err != nil {
			return err
		}
		txn = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// Complete settles the transaction and moves its order to paid in one unit.
// Completing an already completed transaction succeeds without side effects.
func (p *Processor) Complete(ctx context.Context, transactionID, externalRef string) (*models.PaymentTransaction, error) {
	var (
		txn       *models.PaymentTransaction
		published []events.Event
	)
	err := p.store.Atomic(ctx, func(tx store.Store) error {
		current, err := getPayment(ctx, tx, transactionID)
		if err != nil {
			return err
		}
		switch current.Status {
		case models.TxCompleted:
			txn = current
			return nil
		case models.TxFailed:
			return apperrors.Withf(apperrors.ErrPaymentClosed, "Payment %s has already failed", transactionID)
		}

		moved, err := tx.UpdatePaymentStatus(ctx, transactionID, inFlight, models.TxCompleted, externalRef, "")
		if err != nil {
			return err
		}
		if !moved {
			return apperrors.ErrConcurrentUpdate
		}
		_, changes, err := p.orders.TransitionIn(ctx, tx, current.OrderID, models.OrderPaid)
		if err != nil {
			return err
		}

		txn, err = tx.GetPayment(ctx, transactionID)
		if err != nil {
			return err
		}
		published = append(changes, events.PaymentCompleted{OrderID: current.OrderID, TransactionID: transactionID})
		return nil
	})
	if err != nil {
		p.logger.Warn("payment completion rejected", zap.String("transaction", transactionID), zap.Error(err))
		return nil, err
	}

	if len(published) > 0 {
		p.logger.Info("payment completed", zap.String("transaction", transactionID), zap.String("order", txn.OrderID))
		p.publisher.Publish(ctx, published...)
	}
	return txn, nil
}

// Fail closes an in-flight transaction. The order stays confirmed and can
// be paid again.
func (p *Processor) Fail(ctx context.Context, transactionID, reason string) (*models.PaymentTransaction, error) {
	if reason == "" {
		reason = "payment failed"
	}
	return p.fail(ctx, transactionID, reason)
}

func (p *Processor) fail(ctx context.Context, transactionID, reason string) (*models.PaymentTransaction, error) {
	var txn *models.PaymentTransaction
	err := p.store.Atomic(ctx, func(tx store.Store) error {
		current, err := getPayment(ctx, tx, transactionID)
		if err != nil {
			return err
		}
		switch current.Status {
		case models.TxFailed:
			txn = current
			return nil
		case models.TxCompleted:
			return apperrors.Withf(apperrors.ErrPaymentClosed, "Payment %s is already completed", transactionID)
		}

		moved, err := tx.UpdatePaymentStatus(ctx, transactionID, inFlight, models.TxFailed, "", reason)
		if err != nil {
			return err
		}
		if !moved {
			return apperrors.ErrConcurrentUpdate
		}
		if err := resetOrderPaymentStatus(ctx, tx, current.OrderID); err != nil {
			return err
		}
		txn, err = tx.GetPayment(ctx, transactionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	p.logger.Info("payment failed", zap.String("transaction", transactionID), zap.String("reason", reason))
	return txn, nil
}

func resetOrderPaymentStatus(ctx context.Context, tx store.Store, orderID string) error {
	order, err := tx.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status != models.OrderConfirmed {
		return nil
	}
	return tx.SetPaymentStatus(ctx, orderID, models.PaymentUnpaid)
}

type CallbackResult struct {
	Transaction   *models.PaymentTransaction `json:"transaction"`
	GatewayStatus GatewayStatus              `json:"gatewayStatus"`
	Description   string                     `json:"description"`
}

// HandleGatewayCallback asks the gateway for the outcome of trackingID and
// settles or fails the matching transaction. Pending outcomes change nothing.
func (p *Processor) HandleGatewayCallback(ctx context.Context, trackingID string) (*CallbackResult, error) {
	if trackingID == "" {
		return nil, apperrors.Validation("Missing order tracking id")
	}
	if p.gateway == nil {
		return nil, apperrors.Withf(apperrors.ErrGateway, "Online payment is not configured")
	}
	txn, err := p.store.GetPaymentByExternalRef(ctx, trackingID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.Withf(apperrors.ErrNotFound, "No payment with tracking id %s", trackingID)
	}
	if err != nil {
		return nil, err
	}

	status, err := p.gateway.Status(ctx, trackingID)
	if err != nil {
		p.logger.Warn("payment status lookup failed", zap.String("trackingId", trackingID), zap.Error(err))
		return nil, apperrors.Wrap(apperrors.ErrGateway, err)
	}

	result := &CallbackResult{Transaction: txn, GatewayStatus: status.Status, Description: status.Description}
	switch status.Status {
	case GatewayCompleted:
		result.Transaction, err = p.Complete(ctx, txn.ID, trackingID)
	case GatewayFailed:
		result.Transaction, err = p.Fail(ctx, txn.ID, fmt.Sprintf("gateway reported %s", status.Description))
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ExpireStale fails every in-flight transaction created before now minus the
// expiry window and returns how many it closed.
func (p *Processor) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	stale, err := p.store.ListInFlightBefore(ctx, now.Add(-p.expiry))
	if err != nil {
		return 0, fmt.Errorf("list stale payments: %w", err)
	}

	expired := 0
	for _, s := range stale {
		var moved bool
		err := p.store.Atomic(ctx, func(tx store.Store) error {
			var err error
			moved, err = tx.UpdatePaymentStatus(ctx, s.ID, inFlight, models.TxFailed, "", "expired")
			if err != nil || !moved {
				return err
			}
			return resetOrderPaymentStatus(ctx, tx, s.OrderID)
		})
		if err != nil {
			p.logger.Error("could not expire payment", zap.String("transaction", s.ID), zap.Error(err))
			return expired, err
		}
		if moved {
			expired++
		}
	}
	if expired > 0 {
		p.logger.Info("expired stale payments", zap.Int("count", expired))
	}
	return expired, nil
}

// Payments lists every attempt made for the order, oldest first.
func (p *Processor) Payments(ctx context.Context, orderID string) ([]models.PaymentTransaction, error) {
	return p.store.ListPayments(ctx, orderID)
}

func (p *Processor) Get(ctx context.Context, transactionID string) (*models.PaymentTransaction, error) {
	return getPayment(ctx, p.store, transactionID)
}
