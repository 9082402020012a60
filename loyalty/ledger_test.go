package loyalty

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Kariqs/franchise-api/apperrors"
	"github.com/Kariqs/franchise-api/events"
	"github.com/Kariqs/franchise-api/models"
	"github.com/Kariqs/franchise-api/store/memstore"
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

func (r *recorder) events() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.got...)
}

func newLedger() (*Ledger, *memstore.Store, *recorder) {
	st := memstore.New()
	rec := &recorder{}
	return NewLedger(st, rec, zap.NewNop()), st, rec
}

func TestEarnAndRedeem(t *testing.T) {
	ctx := context.Background()
	l, _, rec := newLedger()

	entry, err := l.Earn(ctx, "m1", 120, "order delivered", "o1")
	require.NoError(t, err)
	assert.EqualValues(t, 120, entry.Account.CurrentBalance)

	entry, err = l.Redeem(ctx, "m1", 50, "checkout", "o2")
	require.NoError(t, err)
	assert.EqualValues(t, 70, entry.Account.CurrentBalance)
	assert.EqualValues(t, 120, entry.Account.TotalEarned)
	assert.EqualValues(t, 50, entry.Account.TotalRedeemed)

	got := rec.events()
	require.Len(t, got, 2)
	assert.Equal(t, events.PointsEarned{AccountID: "m1", Points: 120, OrderID: "o1"}, got[0])
	assert.Equal(t, events.PointsRedeemed{AccountID: "m1", Points: 50, OrderID: "o2"}, got[1])
}

func TestRedeem_InsufficientBalanceWritesNothing(t *testing.T) {
	ctx := context.Background()
	l, _, rec := newLedger()
	_, err := l.Earn(ctx, "m1", 30, "seed", "")
	require.NoError(t, err)

	_, err = l.Redeem(ctx, "m1", 31, "too much", "")
	require.ErrorIs(t, err, apperrors.ErrInsufficientBalance)

	balance, err := l.Balance(ctx, "m1")
	require.NoError(t, err)
	assert.EqualValues(t, 30, balance)

	history, err := l.History(ctx, "m1")
	require.NoError(t, err)
	assert.Len(t, history, 1)
	assert.Len(t, rec.events(), 1)
}

func TestWrite_RejectsNonPositivePoints(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newLedger()

	for _, points := range []int64{0, -5} {
		_, err := l.Earn(ctx, "m1", points, "", "")
		assert.ErrorIs(t, err, apperrors.ErrInvalidPoints)
		_, err = l.Redeem(ctx, "m1", points, "", "")
		assert.ErrorIs(t, err, apperrors.ErrInvalidPoints)
		_, err = l.ManualAdjust(ctx, "m1", points, "")
		assert.ErrorIs(t, err, apperrors.ErrInvalidPoints)
	}
}

func TestManualAdjust_CountsAsEarned(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newLedger()

	entry, err := l.ManualAdjust(ctx, "m1", 25, "goodwill")
	require.NoError(t, err)
	assert.Equal(t, models.LoyaltyManualAddition, entry.Transaction.Type)
	assert.EqualValues(t, 25, entry.Account.TotalEarned)
	assert.Empty(t, entry.Transaction.OrderID)
}

func TestBalance_UnknownMemberIsZero(t *testing.T) {
	l, _, _ := newLedger()
	balance, err := l.Balance(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Zero(t, balance)
}

func TestRedeem_ConcurrentNeverOverspends(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newLedger()
	_, err := l.Earn(ctx, "m1", 100, "seed", "")
	require.NoError(t, err)

	var ok, rejected atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Redeem(ctx, "m1", 10, "race", "")
			switch {
			case err == nil:
				ok.Add(1)
			case apperrors.KindIs(err, apperrors.KindInsufficientBalance):
				rejected.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 10, ok.Load())
	assert.EqualValues(t, 40, rejected.Load())
	balance, err := l.Balance(ctx, "m1")
	require.NoError(t, err)
	assert.Zero(t, balance)
}

func TestReplay_MatchesProjection(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newLedger()
	_, err := l.Earn(ctx, "m1", 80, "", "")
	require.NoError(t, err)
	_, err = l.ManualAdjust(ctx, "m1", 20, "")
	require.NoError(t, err)
	_, err = l.Redeem(ctx, "m1", 35, "", "")
	require.NoError(t, err)

	history, err := l.History(ctx, "m1")
	require.NoError(t, err)
	account, err := l.Account(ctx, "m1")
	require.NoError(t, err)

	replayed := Replay("m1", history)
	assert.Equal(t, account.CurrentBalance, replayed.CurrentBalance)
	assert.Equal(t, account.TotalEarned, replayed.TotalEarned)
	assert.Equal(t, account.TotalRedeemed, replayed.TotalRedeemed)
}

func TestRebuild_RepairsDrift(t *testing.T) {
	ctx := context.Background()
	l, st, _ := newLedger()
	_, err := l.Earn(ctx, "m1", 60, "", "")
	require.NoError(t, err)

	corrupted := &models.LoyaltyAccount{FranchiseMemberID: "m1", CurrentBalance: 999, TotalEarned: 999}
	require.NoError(t, st.SaveAccount(ctx, corrupted))

	result, err := l.Rebuild(ctx, "m1")
	require.NoError(t, err)
	assert.True(t, result.Drifted)
	assert.EqualValues(t, 999, result.Previous.CurrentBalance)
	assert.EqualValues(t, 60, result.Account.CurrentBalance)

	balance, err := l.Balance(ctx, "m1")
	require.NoError(t, err)
	assert.EqualValues(t, 60, balance)

	result, err = l.Rebuild(ctx, "m1")
	require.NoError(t, err)
	assert.False(t, result.Drifted)
}
