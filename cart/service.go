package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Kariqs/franchise-api/apperrors"
	"github.com/Kariqs/franchise-api/models"
	"github.com/Kariqs/franchise-api/pricing"
	"github.com/Kariqs/franchise-api/store"
	"go.uber.org/zap"
)

var ErrInvalidQuantity = &apperrors.Error{Kind: apperrors.KindValidation, Code: "invalid_quantity", Message: "Quantity must be at least 1"}

// BalanceReader reports a member's spendable loyalty points.
type BalanceReader interface {
	Balance(ctx context.Context, memberID string) (int64, error)
}

// View is a cart together with its freshly computed summary.
type View struct {
	FranchiseMemberID string             `json:"franchiseMemberId"`
	Lines             []models.CartLine  `json:"lines"`
	Summary           models.CartSummary `json:"summary"`
	LoyaltyBalance    int64              `json:"loyaltyBalance"`
}

type Service struct {
	carts    Store
	catalog  store.CatalogRepository
	engine   pricing.Engine
	balances BalanceReader
	logger   *zap.Logger

	locks sync.Map
}

func NewService(carts Store, catalog store.CatalogRepository, engine pricing.Engine, balances BalanceReader, logger *zap.Logger) *Service {
	return &Service{carts: carts, catalog: catalog, engine: engine, balances: balances, logger: logger}
}

// Lock serializes cart mutations for one member within this process and
// returns the unlock function.
func (s *Service) Lock(memberID string) func() {
	v, _ := s.locks.LoadOrStore(memberID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Carts exposes the underlying cart store.
func (s *Service) Carts() Store { return s.carts }

func (s *Service) AddToCart(ctx context.Context, memberID, itemID string, quantity int) (*View, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	item, err := s.catalogItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	defer s.Lock(memberID)()
	st, err := s.carts.Load(ctx, memberID)
	if err != nil {
		return nil, err
	}
	st.Add(*item, quantity)
	if err := s.carts.Save(ctx, st); err != nil {
		return nil, err
	}
	return s.view(ctx, st, 0)
}

// UpdateQuantity sets the line's quantity, clamped to at least one.
func (s *Service) UpdateQuantity(ctx context.Context, memberID, itemID string, quantity int) (*View, error) {
	defer s.Lock(memberID)()
	st, err := s.carts.Load(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if !st.SetQuantity(itemID, quantity) {
		return nil, apperrors.Withf(apperrors.ErrNotFound, "Item %s is not in the cart", itemID)
	}
	if err := s.carts.Save(ctx, st); err != nil {
		return nil, err
	}
	return s.view(ctx, st, 0)
}

func (s *Service) RemoveFromCart(ctx context.Context, memberID, itemID string) (*View, error) {
	defer s.Lock(memberID)()
	st, err := s.carts.Load(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if !st.Remove(itemID) {
		return nil, apperrors.Withf(apperrors.ErrNotFound, "Item %s is not in the cart", itemID)
	}
	if err := s.carts.Save(ctx, st); err != nil {
		return nil, err
	}
	return s.view(ctx, st, 0)
}

func (s *Service) ClearCart(ctx context.Context, memberID string) (*View, error) {
	defer s.Lock(memberID)()
	if err := s.carts.Delete(ctx, memberID); err != nil {
		return nil, err
	}
	return s.view(ctx, NewState(memberID), 0)
}

// GetSummary prices the cart, applying up to redeemPoints of the member's
// balance as a discount.
func (s *Service) GetSummary(ctx context.Context, memberID string, redeemPoints int64) (*View, error) {
	st, err := s.carts.Load(ctx, memberID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, st, redeemPoints)
}

func (s *Service) catalogItem(ctx context.Context, itemID string) (*models.CatalogItem, error) {
	item, err := s.catalog.GetItem(ctx, itemID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.Withf(apperrors.ErrNotFound, "Item %s not found", itemID)
	}
	if err != nil {
		return nil, fmt.Errorf("read inventory: %w", err)
	}
	if !item.Available {
		return nil, apperrors.Withf(apperrors.ErrItemUnavailable, "%s is not available", item.Name)
	}
	return item, nil
}

func (s *Service) view(ctx context.Context, st *State, redeemPoints int64) (*View, error) {
	var balance int64
	if s.balances != nil {
		b, err := s.balances.Balance(ctx, st.FranchiseMemberID)
		if err != nil {
			s.logger.Warn("loyalty balance unavailable, pricing without discount",
				zap.String("member", st.FranchiseMemberID), zap.Error(err))
		} else {
			balance = b
		}
	}
	lines := st.Snapshot()
	return &View{
		FranchiseMemberID: st.FranchiseMemberID,
		Lines:             lines,
		Summary:           s.engine.ComputeSummary(lines, redeemPoints, balance),
		LoyaltyBalance:    balance,
	}, nil
}
