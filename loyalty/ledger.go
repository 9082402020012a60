// Package loyalty keeps the points ledger. The transaction log is the source
// of truth; each account row is a projection of it that is updated in the
// same unit as the append.
package loyalty

import (
	"context"
	"time"

	"github.com/Kariqs/franchise-api/apperrors"
	"github.com/Kariqs/franchise-api/events"
	"github.com/Kariqs/franchise-api/models"
	"github.com/Kariqs/franchise-api/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Ledger struct {
	store     store.Store
	publisher events.Publisher
	logger    *zap.Logger
}

func NewLedger(st store.Store, publisher events.Publisher, logger *zap.Logger) *Ledger {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Ledger{store: st, publisher: publisher, logger: logger}
}

// Entry is the outcome of one ledger write.
type Entry struct {
	Transaction models.LoyaltyTransaction `json:"transaction"`
	Account     models.LoyaltyAccount     `json:"account"`
}

// Event returns the change notification for the entry.
func (e *Entry) Event() events.Event {
	t := e.Transaction
	if t.Type == models.LoyaltyRedeemed {
		return events.PointsRedeemed{AccountID: t.FranchiseMemberID, Points: t.Points, OrderID: t.OrderID}
	}
	return events.PointsEarned{AccountID: t.FranchiseMemberID, Points: t.Points, OrderID: t.OrderID}
}

// Apply appends one transaction and updates the locked account. It must run
// inside an Atomic unit; callers composing ledger writes with other writes
// use it directly.
func Apply(ctx context.Context, tx store.LoyaltyRepository, memberID string, kind models.LoyaltyTxType, points int64, description, orderID string) (*Entry, error) {
	if points <= 0 {
		return nil, apperrors.ErrInvalidPoints
	}

	account, err := tx.LockAccount(ctx, memberID)
	if err != nil {
		return nil, err
	}

	switch kind {
	case models.LoyaltyRedeemed:
		if points > account.CurrentBalance {
			return nil, apperrors.Withf(apperrors.ErrInsufficientBalance,
				"Insufficient loyalty points: %d available, %d requested", account.CurrentBalance, points)
		}
		account.CurrentBalance -= points
		account.TotalRedeemed += points
	case models.LoyaltyEarned, models.LoyaltyManualAddition:
		account.CurrentBalance += points
		account.TotalEarned += points
	default:
		return nil, apperrors.Invariant("unknown loyalty transaction type %q", kind)
	}

	if account.CurrentBalance < 0 || account.CurrentBalance != account.TotalEarned-account.TotalRedeemed {
		return nil, apperrors.Invariant("loyalty account %s projection is inconsistent", memberID)
	}

	entry := models.LoyaltyTransaction{
		ID:                uuid.NewString(),
		FranchiseMemberID: memberID,
		Type:              kind,
		Points:            points,
		Description:       description,
		OrderID:           orderID,
		CreatedAt:         time.Now(),
	}
	if err := tx.AppendLoyaltyTransaction(ctx, &entry); err != nil {
		return nil, err
	}
	if err := tx.SaveAccount(ctx, account); err != nil {
		return nil, err
	}
	return &Entry{Transaction: entry, Account: *account}, nil
}

func (l *Ledger) write(ctx context.Context, memberID string, kind models.LoyaltyTxType, points int64, description, orderID string) (*Entry, error) {
	var entry *Entry
	err := l.store.Atomic(ctx, func(tx store.Store) error {
		var err error
		entry, err = Apply(ctx, tx, memberID, kind, points, description, orderID)
		return err
	})
	if err != nil {
		if apperrors.KindIs(err, apperrors.KindInvariant) {
			l.logger.Error("loyalty invariant violated", zap.String("member", memberID), zap.Error(err))
		}
		return nil, err
	}

	l.logger.Info("loyalty points recorded",
		zap.String("member", memberID),
		zap.String("type", string(entry.Transaction.Type)),
		zap.Int64("points", points),
		zap.Int64("balance", entry.Account.CurrentBalance))
	l.publisher.Publish(ctx, entry.Event())
	return entry, nil
}

func (l *Ledger) Earn(ctx context.Context, memberID string, points int64, description, orderID string) (*Entry, error) {
	return l.write(ctx, memberID, models.LoyaltyEarned, points, description, orderID)
}

// Redeem spends points. It writes nothing when the balance is too low.
func (l *Ledger) Redeem(ctx context.Context, memberID string, points int64, description, orderID string) (*Entry, error) {
	return l.write(ctx, memberID, models.LoyaltyRedeemed, points, description, orderID)
}

func (l *Ledger) ManualAdjust(ctx context.Context, memberID string, points int64, description string) (*Entry, error) {
	return l.write(ctx, memberID, models.LoyaltyManualAddition, points, description, "")
}

func (l *Ledger) Balance(ctx context.Context, memberID string) (int64, error) {
	a, err := l.store.GetAccount(ctx, memberID)
	if err != nil {
		return 0, err
	}
	return a.CurrentBalance, nil
}

func (l *Ledger) Account(ctx context.Context, memberID string) (*models.LoyaltyAccount, error) {
	return l.store.GetAccount(ctx, memberID)
}

func (l *Ledger) History(ctx context.Context, memberID string) ([]models.LoyaltyTransaction, error) {
	return l.store.ListLoyaltyTransactions(ctx, memberID)
}

// Replay folds a transaction log into an account projection.
func Replay(memberID string, txs []models.LoyaltyTransaction) models.LoyaltyAccount {
	a := models.LoyaltyAccount{FranchiseMemberID: memberID}
	for _, t := range txs {
		switch t.Type {
		case models.LoyaltyRedeemed:
			a.TotalRedeemed += t.Points
		case models.LoyaltyEarned, models.LoyaltyManualAddition:
			a.TotalEarned += t.Points
		}
	}
	a.CurrentBalance = a.TotalEarned - a.TotalRedeemed
	return a
}

type RebuildResult struct {
	Account  models.LoyaltyAccount `json:"account"`
	Previous models.LoyaltyAccount `json:"previous"`
	Drifted  bool                  `json:"drifted"`
}

// Rebuild recomputes the account from its log and overwrites the cached
// projection.
func (l *Ledger) Rebuild(ctx context.Context, memberID string) (*RebuildResult, error) {
	var result RebuildResult
	err := l.store.Atomic(ctx, func(tx store.Store) error {
		current, err := tx.LockAccount(ctx, memberID)
		if err != nil {
			return err
		}
		txs, err := tx.ListLoyaltyTransactions(ctx, memberID)
		if err != nil {
			return err
		}

		rebuilt := Replay(memberID, txs)
		if rebuilt.CurrentBalance < 0 {
			return apperrors.Invariant("loyalty log for %s replays to a negative balance", memberID)
		}
		result.Previous = *current
		result.Drifted = current.CurrentBalance != rebuilt.CurrentBalance ||
			current.TotalEarned != rebuilt.TotalEarned ||
			current.TotalRedeemed != rebuilt.TotalRedeemed
		if err := tx.SaveAccount(ctx, &rebuilt); err != nil {
			return err
		}
		result.Account = rebuilt
		return nil
	})
	if err != nil {
		l.logger.Error("loyalty rebuild failed", zap.String("member", memberID), zap.Error(err))
		return nil, err
	}

	if result.Drifted {
		l.logger.Error("loyalty projection drifted from its log",
			zap.String("member", memberID),
			zap.Int64("cachedBalance", result.Previous.CurrentBalance),
			zap.Int64("rebuiltBalance", result.Account.CurrentBalance))
	}
	return &result, nil
}
