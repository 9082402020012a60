package gormstore

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Kariqs/franchise-api/models"
	"github.com/Kariqs/franchise-api/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestStore connects to the database named by GORMSTORE_TEST_DRIVER and
// GORMSTORE_TEST_DSN, skipping when they are unset.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	driver, dsn := os.Getenv("GORMSTORE_TEST_DRIVER"), os.Getenv("GORMSTORE_TEST_DSN")
	if driver == "" || dsn == "" {
		t.Skip("GORMSTORE_TEST_DRIVER and GORMSTORE_TEST_DSN not set")
	}
	db, err := Open(driver, dsn)
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	return New(db)
}

func TestModels_CoversEveryTable(t *testing.T) {
	assert.Len(t, Models(), 8)
}

func TestOpen_RejectsUnknownDriver(t *testing.T) {
	_, err := Open("sqlite", "file::memory:")
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestAtomic_RollsBack(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	member := uuid.NewString()
	orderID := uuid.NewString()

	err := s.Atomic(ctx, func(tx store.Store) error {
		require.NoError(t, tx.CreateOrder(ctx, &models.FranchiseOrder{
			ID:                orderID,
			FranchiseMemberID: member,
			Total:             decimal.NewFromInt(10),
			Status:            models.OrderConfirmed,
			CreatedAt:         time.Now(),
		}))
		return store.ErrStale
	})
	require.ErrorIs(t, err, store.ErrStale)

	_, err = s.GetOrder(ctx, orderID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestAcquireSlot_SingleWinner(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	member := uuid.NewString()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.AcquireSlot(ctx, member, uuid.NewString())
			if err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, wins.Load())
}

func TestLockOrder_OneInFlightPaymentPerOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	orderID := uuid.NewString()
	require.NoError(t, s.CreateOrder(ctx, &models.FranchiseOrder{
		ID:                orderID,
		FranchiseMemberID: uuid.NewString(),
		Total:             decimal.NewFromInt(10),
		Status:            models.OrderConfirmed,
		CreatedAt:         time.Now(),
	}))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Atomic(ctx, func(tx store.Store) error {
				if _, err := tx.LockOrder(ctx, orderID); err != nil {
					return err
				}
				existing, err := tx.ListPayments(ctx, orderID)
				if err != nil {
					return err
				}
				for _, p := range existing {
					if p.Status.InFlight() {
						return nil
					}
				}
				return tx.CreatePayment(ctx, &models.PaymentTransaction{
					ID:        uuid.NewString(),
					OrderID:   orderID,
					Amount:    decimal.NewFromInt(10),
					Method:    models.MethodBankTransfer,
					Status:    models.TxPending,
					CreatedAt: time.Now(),
				})
			})
		}()
	}
	wg.Wait()

	payments, err := s.ListPayments(ctx, orderID)
	require.NoError(t, err)
	assert.Len(t, payments, 1)
}

func TestLockAccount_SerializesUpdates(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	member := uuid.NewString()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Atomic(ctx, func(tx store.Store) error {
				a, err := tx.LockAccount(ctx, member)
				if err != nil {
					return err
				}
				a.CurrentBalance++
				a.TotalEarned++
				return tx.SaveAccount(ctx, a)
			})
		}()
	}
	wg.Wait()

	a, err := s.GetAccount(ctx, member)
	require.NoError(t, err)
	assert.EqualValues(t, 10, a.CurrentBalance)
}
