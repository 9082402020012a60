package orders

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Kariqs/franchise-api/apperrors"
	"github.com/Kariqs/franchise-api/cart"
	"github.com/Kariqs/franchise-api/events"
	"github.com/Kariqs/franchise-api/loyalty"
	"github.com/Kariqs/franchise-api/models"
	"github.com/Kariqs/franchise-api/pricing"
	"github.com/Kariqs/franchise-api/store/memstore"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recorder struct {
	mu  sync.Mutex
	got []events.Event
}

func (r *recorder) Publish(_ context.Context, evs ...events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, evs...)
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.got))
	for _, e := range r.got {
		out = append(out, e.EventType())
	}
	return out
}

type fixture struct {
	store   *memstore.Store
	carts   *cart.Service
	ledger  *loyalty.Ledger
	manager *Manager
	events  *recorder
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	ctx := context.Background()
	st := memstore.New()
	for _, item := range []models.CatalogItem{
		{ID: "rice", Name: "Rice", Price: decimal.NewFromInt(500), Unit: "kg", GSTRate: decimal.RequireFromString("0.18"), Available: true},
		{ID: "oil", Name: "Oil", Price: decimal.NewFromInt(350), Unit: "l", GSTRate: decimal.RequireFromString("0.05"), Available: true},
		{ID: "tea", Name: "Tea", Price: decimal.NewFromInt(100), Unit: "pack", GSTRate: decimal.RequireFromString("0.5"), Available: true},
	} {
		item := item
		require.NoError(t, st.SaveItem(ctx, &item))
	}

	rec := &recorder{}
	logger := zap.NewNop()
	engine := pricing.NewEngine(pricing.DefaultFreeDeliveryThreshold, pricing.DefaultFlatDeliveryFee)
	ledger := loyalty.NewLedger(st, rec, logger)
	carts := cart.NewService(cart.NewMemoryStore(), st, engine, ledger, logger)
	return &fixture{
		store:   st,
		carts:   carts,
		ledger:  ledger,
		manager: NewManager(st, carts, engine, rec, logger, cfg),
		events:  rec,
	}
}

func (f *fixture) checkout(t *testing.T, member string, redeem int64) *models.FranchiseOrder {
	t.Helper()
	ctx := context.Background()
	_, err := f.carts.AddToCart(ctx, member, "rice", 3)
	require.NoError(t, err)
	o, err := f.manager.Checkout(ctx, member, redeem)
	require.NoError(t, err)
	return o
}

func (f *fixture) completePayment(t *testing.T, orderID string) {
	t.Helper()
	require.NoError(t, f.store.CreatePayment(context.Background(), &models.PaymentTransaction{
		ID:        uuid.NewString(),
		OrderID:   orderID,
		Amount:    decimal.NewFromInt(1),
		Method:    models.MethodBankTransfer,
		Status:    models.TxCompleted,
		CreatedAt: time.Now(),
	}))
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(models.OrderPending, models.OrderConfirmed))
	assert.True(t, CanTransition(models.OrderConfirmed, models.OrderCancelled))
	assert.True(t, CanTransition(models.OrderShipped, models.OrderDelivered))
	assert.False(t, CanTransition(models.OrderPending, models.OrderPaid))
	assert.False(t, CanTransition(models.OrderPaid, models.OrderCancelled))
	assert.False(t, CanTransition(models.OrderDelivered, models.OrderPending))
	assert.Empty(t, NextStatuses(models.OrderCancelled))
}

func TestCheckout_CreatesConfirmedOrderAndClearsCart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})

	o := f.checkout(t, "m1", 0)
	assert.Equal(t, models.OrderConfirmed, o.Status)
	assert.Equal(t, models.PaymentUnpaid, o.PaymentStatus)
	require.Len(t, o.Lines, 1)
	assert.True(t, o.Lines[0].LineTotal.Equal(decimal.NewFromInt(1500)))
	assert.True(t, o.Total.Equal(decimal.NewFromInt(1870)))

	view, err := f.carts.GetSummary(ctx, "m1", 0)
	require.NoError(t, err)
	assert.Empty(t, view.Lines)
	assert.Contains(t, f.events.types(), "OrderCreated")
}

func TestCheckout_EmptyCart(t *testing.T) {
	f := newFixture(t, Config{})
	_, err := f.manager.Checkout(context.Background(), "m1", 0)
	assert.ErrorIs(t, err, apperrors.ErrEmptyCart)
}

func TestCheckout_UsesCurrentInventoryPrice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	_, err := f.carts.AddToCart(ctx, "m1", "rice", 1)
	require.NoError(t, err)

	rice, err := f.store.GetItem(ctx, "rice")
	require.NoError(t, err)
	rice.Price = decimal.NewFromInt(600)
	require.NoError(t, f.store.SaveItem(ctx, rice))

	o, err := f.manager.Checkout(ctx, "m1", 0)
	require.NoError(t, err)
	assert.True(t, o.Subtotal.Equal(decimal.NewFromInt(600)))
}

func TestCheckout_RejectsItemGoneUnavailable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	_, err := f.carts.AddToCart(ctx, "m1", "oil", 1)
	require.NoError(t, err)

	oil, err := f.store.GetItem(ctx, "oil")
	require.NoError(t, err)
	oil.Available = false
	require.NoError(t, f.store.SaveItem(ctx, oil))

	_, err = f.manager.Checkout(ctx, "m1", 0)
	require.ErrorIs(t, err, apperrors.ErrItemUnavailable)

	view, err := f.carts.GetSummary(ctx, "m1", 0)
	require.NoError(t, err)
	assert.Len(t, view.Lines, 1, "cart kept after a rejected checkout")
}

func TestCreateOrder_BlockedWhileConfirmedExists(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	f.checkout(t, "m1", 0)

	_, err := f.carts.AddToCart(ctx, "m1", "oil", 1)
	require.NoError(t, err)
	_, err = f.manager.Checkout(ctx, "m1", 0)
	require.ErrorIs(t, err, apperrors.ErrOrderBlocked)

	orders, total, err := f.manager.ListByMember(ctx, "m1", Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, orders, 1)

	// another member is not affected
	f.checkout(t, "m2", 0)
}

func TestCreateOrder_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	line := models.CartLine{ItemID: "rice", Name: "Rice", UnitPrice: decimal.NewFromInt(500), Quantity: 1}

	_, err := f.manager.CreateOrder(ctx, "m1", models.CartSummary{Total: decimal.NewFromInt(10)}, nil)
	assert.ErrorIs(t, err, apperrors.ErrEmptyCart)

	_, err = f.manager.CreateOrder(ctx, "m1", models.CartSummary{Total: decimal.Zero}, []models.CartLine{line})
	assert.ErrorIs(t, err, apperrors.ErrInvalidTotal)
}

func TestCheckout_ConcurrentAdmitsOne(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	summary := models.CartSummary{Subtotal: decimal.NewFromInt(500), Total: decimal.NewFromInt(500)}
	lines := []models.CartLine{{ItemID: "rice", Name: "Rice", UnitPrice: decimal.NewFromInt(500), Quantity: 1}}

	var created, blocked atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.manager.CreateOrder(ctx, "m1", summary, lines)
			switch {
			case err == nil:
				created.Add(1)
			case apperrors.KindIs(err, apperrors.KindConflict):
				blocked.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, created.Load())
	assert.EqualValues(t, 19, blocked.Load())
}

func TestCheckout_RedeemsPointsAtomically(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	_, err := f.ledger.Earn(ctx, "m1", 100, "seed", "")
	require.NoError(t, err)

	o := f.checkout(t, "m1", 150)
	assert.EqualValues(t, 100, o.PointsRedeemed)
	assert.True(t, o.Discount.Equal(decimal.NewFromInt(100)))
	assert.True(t, o.Total.Equal(decimal.NewFromInt(1770)))

	balance, err := f.ledger.Balance(ctx, "m1")
	require.NoError(t, err)
	assert.Zero(t, balance)
	assert.Contains(t, f.events.types(), "PointsRedeemed")
}

func TestCreateOrder_ShortBalanceLeavesNoOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	_, err := f.ledger.Earn(ctx, "m1", 30, "seed", "")
	require.NoError(t, err)

	summary := models.CartSummary{Subtotal: decimal.NewFromInt(500), Total: decimal.NewFromInt(450), LoyaltyDiscount: decimal.NewFromInt(50), PointsToRedeem: 50}
	lines := []models.CartLine{{ItemID: "rice", Name: "Rice", UnitPrice: decimal.NewFromInt(500), Quantity: 1}}
	_, err = f.manager.CreateOrder(ctx, "m1", summary, lines)
	require.ErrorIs(t, err, apperrors.ErrInsufficientBalance)

	_, total, err := f.manager.ListByMember(ctx, "m1", Page{})
	require.NoError(t, err)
	assert.Zero(t, total)

	// slot was rolled back too
	summary.PointsToRedeem = 0
	_, err = f.manager.CreateOrder(ctx, "m1", summary, lines)
	require.NoError(t, err)
}

func TestTransition_PendingToPaidIsInvalid(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{RequiresApproval: true})
	o := f.checkout(t, "m1", 0)
	require.Equal(t, models.OrderPending, o.Status)

	_, err := f.manager.Transition(ctx, o.ID, models.OrderPaid)
	require.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	got, err := f.manager.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPending, got.Status)
}

func TestApprovalMode_ConfirmAcquiresSlot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{RequiresApproval: true})
	first := f.checkout(t, "m1", 0)
	second := f.checkout(t, "m1", 0)

	_, err := f.manager.Transition(ctx, first.ID, models.OrderConfirmed)
	require.NoError(t, err)
	_, err = f.manager.Transition(ctx, second.ID, models.OrderConfirmed)
	require.ErrorIs(t, err, apperrors.ErrOrderBlocked)

	_, err = f.carts.AddToCart(ctx, "m1", "oil", 1)
	require.NoError(t, err)
	_, err = f.manager.Checkout(ctx, "m1", 0)
	require.ErrorIs(t, err, apperrors.ErrOrderBlocked)
}

func TestTransition_PaidRequiresCompletedPayment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	o := f.checkout(t, "m1", 0)

	_, err := f.manager.Transition(ctx, o.ID, models.OrderPaid)
	require.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	f.completePayment(t, o.ID)
	paid, err := f.manager.Transition(ctx, o.ID, models.OrderPaid)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSettled, paid.PaymentStatus)

	// slot released: a new order is admitted
	f.checkout(t, "m1", 0)
}

func TestTransition_DeliveredEarnsPoints(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{PointsPerUnit: decimal.RequireFromString("0.01")})
	o := f.checkout(t, "m1", 0)
	f.completePayment(t, o.ID)

	for _, next := range []models.OrderStatus{models.OrderPaid, models.OrderPacking, models.OrderShipped, models.OrderDelivered} {
		_, err := f.manager.Transition(ctx, o.ID, next)
		require.NoError(t, err, "to %s", next)
	}

	// ⌊1870 × 0.01⌋
	balance, err := f.ledger.Balance(ctx, "m1")
	require.NoError(t, err)
	assert.EqualValues(t, 18, balance)

	_, err = f.manager.Transition(ctx, o.ID, models.OrderCancelled)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestCancel_RefundsPointsAndReleasesSlot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	_, err := f.ledger.Earn(ctx, "m1", 40, "seed", "")
	require.NoError(t, err)
	o := f.checkout(t, "m1", 40)

	inFlight := &models.PaymentTransaction{ID: "tx-1", OrderID: o.ID, Status: models.TxPending, CreatedAt: time.Now()}
	require.NoError(t, f.store.CreatePayment(ctx, inFlight))

	cancelled, err := f.manager.CancelForMember(ctx, "m1", o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, cancelled.Status)

	balance, err := f.ledger.Balance(ctx, "m1")
	require.NoError(t, err)
	assert.EqualValues(t, 40, balance)

	history, err := f.ledger.History(ctx, "m1")
	require.NoError(t, err)
	last := history[len(history)-1]
	assert.Equal(t, models.LoyaltyManualAddition, last.Type)
	assert.Equal(t, o.ID, last.OrderID)

	p, err := f.store.GetPayment(ctx, "tx-1")
	require.NoError(t, err)
	assert.Equal(t, models.TxFailed, p.Status)

	f.checkout(t, "m1", 0)
}

func TestCancelForMember_HidesOtherMembersOrders(t *testing.T) {
	f := newFixture(t, Config{})
	o := f.checkout(t, "m1", 0)

	_, err := f.manager.CancelForMember(context.Background(), "intruder", o.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestList_FiltersByStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	a := f.checkout(t, "m1", 0)
	f.checkout(t, "m2", 0)
	_, err := f.manager.Cancel(ctx, a.ID)
	require.NoError(t, err)

	cancelled, total, err := f.manager.List(ctx, Page{Number: 1, Limit: 10}, models.OrderCancelled)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, a.ID, cancelled[0].ID)

	_, _, err = f.manager.List(ctx, Page{}, "bogus")
	assert.True(t, apperrors.KindIs(err, apperrors.KindValidation))
}

func TestListByMember_HugePageIsEmpty(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	f.checkout(t, "m1", 0)

	list, total, err := f.manager.ListByMember(ctx, "m1", Page{Number: math.MaxInt, Limit: 15})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Empty(t, list)

	filter := Page{Number: math.MaxInt, Limit: 100}.filter()
	assert.Positive(t, filter.Offset)
}

func TestEarnedPoints(t *testing.T) {
	m := &Manager{cfg: Config{PointsPerUnit: decimal.RequireFromString("0.01")}}
	assert.EqualValues(t, 18, m.EarnedPoints(decimal.RequireFromString("1870")))
	assert.EqualValues(t, 0, m.EarnedPoints(decimal.RequireFromString("99.99")))
	assert.EqualValues(t, 0, m.EarnedPoints(decimal.NewFromInt(-5)))
}
