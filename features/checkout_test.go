package features

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Kariqs/franchise-api/apperrors"
	"github.com/Kariqs/franchise-api/cart"
	"github.com/Kariqs/franchise-api/events"
	"github.com/Kariqs/franchise-api/loyalty"
	"github.com/Kariqs/franchise-api/models"
	"github.com/Kariqs/franchise-api/orders"
	"github.com/Kariqs/franchise-api/payments"
	"github.com/Kariqs/franchise-api/pricing"
	"github.com/Kariqs/franchise-api/store/memstore"
	"github.com/cucumber/godog"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type checkoutTestContext struct {
	store     *memstore.Store
	carts     *cart.Service
	ledger    *loyalty.Ledger
	orders    *orders.Manager
	processor *payments.Processor

	view  *cart.View
	order *models.FranchiseOrder
	err   error
}

func (c *checkoutTestContext) reset() {
	logger := zap.NewNop()
	c.store = memstore.New()
	engine := pricing.NewEngine(pricing.DefaultFreeDeliveryThreshold, pricing.DefaultFlatDeliveryFee)
	c.ledger = loyalty.NewLedger(c.store, events.Nop{}, logger)
	c.carts = cart.NewService(cart.NewMemoryStore(), c.store, engine, c.ledger, logger)
	c.orders = orders.NewManager(c.store, c.carts, engine, events.Nop{}, logger, orders.Config{})
	c.processor = payments.NewProcessor(c.store, c.orders, nil, events.Nop{}, logger, time.Minute)
	c.view = nil
	c.order = nil
	c.err = nil
}

func (c *checkoutTestContext) theCatalogItemPricedWithGST(id string, price, gstPercent int) error {
	return c.store.SaveItem(context.Background(), &models.CatalogItem{
		ID:        id,
		Name:      id,
		Price:     decimal.NewFromInt(int64(price)),
		Unit:      "unit",
		GSTRate:   decimal.New(int64(gstPercent), -2),
		Available: true,
	})
}

func (c *checkoutTestContext) memberAddsToTheCart(member string, qty int, itemID string) error {
	_, err := c.carts.AddToCart(context.Background(), member, itemID, qty)
	return err
}

func (c *checkoutTestContext) memberHasBeenGrantedPoints(member string, points int) error {
	_, err := c.ledger.ManualAdjust(context.Background(), member, int64(points), "granted")
	return err
}

func (c *checkoutTestContext) memberViewsTheCartRedeeming(member string, points int) error {
	c.view, c.err = c.carts.GetSummary(context.Background(), member, int64(points))
	return c.err
}

func (c *checkoutTestContext) memberHasCheckedOut(member string) error {
	order, err := c.orders.Checkout(context.Background(), member, 0)
	if err != nil {
		return err
	}
	c.order = order
	return nil
}

func (c *checkoutTestContext) memberChecksOut(member string) error {
	_, c.err = c.orders.Checkout(context.Background(), member, 0)
	return nil
}

func (c *checkoutTestContext) memberRedeemsPoints(member string, points int) error {
	_, c.err = c.ledger.Redeem(context.Background(), member, int64(points), "redeemed", "")
	return nil
}

func (c *checkoutTestContext) theOrderIsPaidByBankTransfer() error {
	if c.order == nil {
		return errors.New("no order placed")
	}
	ctx := context.Background()
	txn, err := c.processor.Initiate(ctx, c.order.ID, models.MethodBankTransfer, payments.Payer{})
	if err != nil {
		return err
	}
	_, err = c.processor.Complete(ctx, txn.ID, "BANK-REF")
	return err
}

func (c *checkoutTestContext) theOrderMovesThroughFulfilment() error {
	for _, status := range []models.OrderStatus{models.OrderPacking, models.OrderShipped, models.OrderDelivered} {
		if _, err := c.orders.Transition(context.Background(), c.order.ID, status); err != nil {
			return fmt.Errorf("move to %s: %w", status, err)
		}
	}
	return nil
}

func (c *checkoutTestContext) summaryAmount(name string, want int) error {
	if c.view == nil {
		return errors.New("cart was not viewed")
	}
	s := c.view.Summary
	var got decimal.Decimal
	switch name {
	case "subtotal":
		got = s.Subtotal
	case "GST":
		got = s.GSTTotal
	case "delivery fee":
		got = s.DeliveryFee
	case "discount":
		got = s.LoyaltyDiscount
	case "total":
		got = s.Total
	default:
		return fmt.Errorf("unknown amount %q", name)
	}
	if !got.Equal(decimal.NewFromInt(int64(want))) {
		return fmt.Errorf("expected %s %d, got %s", name, want, got)
	}
	return nil
}

func (c *checkoutTestContext) theRequestFailsWith(code string) error {
	if c.err == nil {
		return errors.New("expected the request to fail but it succeeded")
	}
	var appErr *apperrors.Error
	if !errors.As(c.err, &appErr) {
		return fmt.Errorf("expected an application error, got %T: %v", c.err, c.err)
	}
	if appErr.Code != code {
		return fmt.Errorf("expected code %q, got %q", code, appErr.Code)
	}
	return nil
}

func (c *checkoutTestContext) memberHasOrders(member string, want int) error {
	list, total, err := c.orders.ListByMember(context.Background(), member, orders.Page{Number: 1, Limit: 50})
	if err != nil {
		return err
	}
	if int(total) != want || len(list) != want {
		return fmt.Errorf("expected %d orders, got %d", want, total)
	}
	return nil
}

func (c *checkoutTestContext) memberHasPoints(member string, want int) error {
	balance, err := c.ledger.Balance(context.Background(), member)
	if err != nil {
		return err
	}
	if balance != int64(want) {
		return fmt.Errorf("expected balance %d, got %d", want, balance)
	}
	return nil
}

func (c *checkoutTestContext) memberHasLedgerEntries(member string, want int) error {
	history, err := c.ledger.History(context.Background(), member)
	if err != nil {
		return err
	}
	if len(history) != want {
		return fmt.Errorf("expected %d ledger entries, got %d", want, len(history))
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &checkoutTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^the catalog item "([^"]*)" priced (\d+) with (\d+)% GST$`, tc.theCatalogItemPricedWithGST)
	ctx.Step(`^member "([^"]*)" adds (\d+) of "([^"]*)" to the cart$`, tc.memberAddsToTheCart)
	ctx.Step(`^member "([^"]*)" has been granted (\d+) points$`, tc.memberHasBeenGrantedPoints)
	ctx.Step(`^member "([^"]*)" has checked out$`, tc.memberHasCheckedOut)

	// When steps
	ctx.Step(`^member "([^"]*)" views the cart redeeming (\d+) points$`, tc.memberViewsTheCartRedeeming)
	ctx.Step(`^member "([^"]*)" checks out$`, tc.memberChecksOut)
	ctx.Step(`^member "([^"]*)" redeems (\d+) points$`, tc.memberRedeemsPoints)
	ctx.Step(`^the order is paid by bank transfer$`, tc.theOrderIsPaidByBankTransfer)
	ctx.Step(`^the order moves through packing, shipped and delivered$`, tc.theOrderMovesThroughFulfilment)

	// Then steps
	ctx.Step(`^the (subtotal|GST|delivery fee|discount|total) is (\d+)$`, tc.summaryAmount)
	ctx.Step(`^the request fails with "([^"]*)"$`, tc.theRequestFailsWith)
	ctx.Step(`^member "([^"]*)" has (\d+) orders$`, tc.memberHasOrders)
	ctx.Step(`^member "([^"]*)" has (\d+) points$`, tc.memberHasPoints)
	ctx.Step(`^member "([^"]*)" has (\d+) ledger entries$`, tc.memberHasLedgerEntries)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"checkout.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
