// Package memstore is an in-process implementation of store.Store. A single
// mutex serializes every call and Atomic restores a snapshot when its
// function fails, which gives the same all-or-nothing behaviour as a database
// transaction.
package memstore

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Kariqs/franchise-api/models"
	"github.com/Kariqs/franchise-api/store"
)

type state struct {
	items    map[string]models.CatalogItem
	orders   map[string]models.FranchiseOrder
	slots    map[string]models.AdmissionSlot
	payments map[string]models.PaymentTransaction
	accounts map[string]models.LoyaltyAccount
	ledger   []models.LoyaltyTransaction
	events   []models.EventRecord
	seq      map[string]int
	nextSeq  int
}

func newState() *state {
	return &state{
		items:    make(map[string]models.CatalogItem),
		orders:   make(map[string]models.FranchiseOrder),
		slots:    make(map[string]models.AdmissionSlot),
		payments: make(map[string]models.PaymentTransaction),
		accounts: make(map[string]models.LoyaltyAccount),
		seq:      make(map[string]int),
	}
}

// clone copies every map. Order lines are never mutated after creation, so
// the line slices can be shared.
func (s *state) clone() *state {
	c := &state{
		items:    make(map[string]models.CatalogItem, len(s.items)),
		orders:   make(map[string]models.FranchiseOrder, len(s.orders)),
		slots:    make(map[string]models.AdmissionSlot, len(s.slots)),
		payments: make(map[string]models.PaymentTransaction, len(s.payments)),
		accounts: make(map[string]models.LoyaltyAccount, len(s.accounts)),
		ledger:   slices.Clone(s.ledger),
		events:   slices.Clone(s.events),
		seq:      make(map[string]int, len(s.seq)),
		nextSeq:  s.nextSeq,
	}
	for k, v := range s.items {
		c.items[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.slots {
		c.slots[k] = v
	}
	for k, v := range s.payments {
		c.payments[k] = v
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.seq {
		c.seq[k] = v
	}
	return c
}

func (s *state) order(id string) int {
	s.nextSeq++
	s.seq[id] = s.nextSeq
	return s.nextSeq
}

type holder struct {
	st *state
}

type Store struct {
	mu   *sync.Mutex
	data *holder
	inTx bool
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{mu: &sync.Mutex{}, data: &holder{st: newState()}}
}

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) Atomic(ctx context.Context, fn func(tx store.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	snapshot := s.data.st.clone()
	committed := false
	defer func() {
		if !committed {
			s.data.st = snapshot
		}
	}()
	if err := fn(&Store{mu: s.mu, data: s.data, inTx: true}); err != nil {
		return err
	}
	committed = true
	return nil
}

// Catalog

func (s *Store) GetItem(_ context.Context, id string) (*models.CatalogItem, error) {
	defer s.lock()()
	item, ok := s.data.st.items[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &item, nil
}

func (s *Store) ListItems(_ context.Context, f store.CatalogFilter) ([]models.CatalogItem, int64, error) {
	defer s.lock()()
	search := strings.ToLower(f.Search)
	out := make([]models.CatalogItem, 0, len(s.data.st.items))
	for _, item := range s.data.st.items {
		if search != "" && !strings.Contains(strings.ToLower(item.Name), search) {
			continue
		}
		if f.Category != "" && item.Category != f.Category {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})

	total := int64(len(out))
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []models.CatalogItem{}, total, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out, total, nil
}

func (s *Store) SaveItem(_ context.Context, item *models.CatalogItem) error {
	defer s.lock()()
	s.data.st.items[item.ID] = *item
	return nil
}

// Orders

func (s *Store) CreateOrder(_ context.Context, o *models.FranchiseOrder) error {
	defer s.lock()()
	st := s.data.st
	if _, exists := st.orders[o.ID]; exists {
		return store.ErrStale
	}
	if o.UpdatedAt.IsZero() {
		o.UpdatedAt = o.CreatedAt
	}
	cp := *o
	cp.Lines = slices.Clone(o.Lines)
	st.orders[o.ID] = cp
	st.order(o.ID)
	return nil
}

func (s *Store) GetOrder(_ context.Context, id string) (*models.FranchiseOrder, error) {
	defer s.lock()()
	o, ok := s.data.st.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	o.Lines = slices.Clone(o.Lines)
	return &o, nil
}

// LockOrder is GetOrder; units already run under the store lock.
func (s *Store) LockOrder(ctx context.Context, id string) (*models.FranchiseOrder, error) {
	return s.GetOrder(ctx, id)
}

func (s *Store) UpdateOrderStatus(_ context.Context, id string, from, to models.OrderStatus) error {
	defer s.lock()()
	o, ok := s.data.st.orders[id]
	if !ok {
		return store.ErrNotFound
	}
	if o.Status != from {
		return store.ErrStale
	}
	o.Status = to
	o.UpdatedAt = time.Now()
	s.data.st.orders[id] = o
	return nil
}

func (s *Store) SetPaymentStatus(_ context.Context, id string, ps models.PaymentStatus) error {
	defer s.lock()()
	o, ok := s.data.st.orders[id]
	if !ok {
		return store.ErrNotFound
	}
	o.PaymentStatus = ps
	o.UpdatedAt = time.Now()
	s.data.st.orders[id] = o
	return nil
}

func (s *Store) ListOrders(_ context.Context, f store.OrderFilter) ([]models.FranchiseOrder, int64, error) {
	defer s.lock()()
	st := s.data.st
	var matched []models.FranchiseOrder
	for _, o := range st.orders {
		if f.FranchiseMemberID != "" && o.FranchiseMemberID != f.FranchiseMemberID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		o.Lines = slices.Clone(o.Lines)
		matched = append(matched, o)
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := st.seq[matched[i].ID], st.seq[matched[j].ID]
		if f.Ascending {
			return a < b
		}
		return a > b
	})

	total := int64(len(matched))
	if f.Offset > 0 {
		if f.Offset >= len(matched) {
			return []models.FranchiseOrder{}, total, nil
		}
		matched = matched[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(matched) {
		matched = matched[:f.Limit]
	}
	return matched, total, nil
}

func (s *Store) HasOrderInStatus(_ context.Context, memberID string, status models.OrderStatus) (bool, error) {
	defer s.lock()()
	for _, o := range s.data.st.orders {
		if o.FranchiseMemberID == memberID && o.Status == status {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) AcquireSlot(_ context.Context, memberID, orderID string) (bool, error) {
	defer s.lock()()
	if slot, held := s.data.st.slots[memberID]; held {
		return slot.OrderID == orderID, nil
	}
	s.data.st.slots[memberID] = models.AdmissionSlot{
		FranchiseMemberID: memberID,
		OrderID:           orderID,
		AcquiredAt:        time.Now(),
	}
	return true, nil
}

func (s *Store) ReleaseSlot(_ context.Context, memberID, orderID string) error {
	defer s.lock()()
	if slot, held := s.data.st.slots[memberID]; held && slot.OrderID == orderID {
		delete(s.data.st.slots, memberID)
	}
	return nil
}

// Payments

func (s *Store) CreatePayment(_ context.Context, p *models.PaymentTransaction) error {
	defer s.lock()()
	if _, exists := s.data.st.payments[p.ID]; exists {
		return store.ErrStale
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	s.data.st.payments[p.ID] = *p
	s.data.st.order(p.ID)
	return nil
}

func (s *Store) GetPayment(_ context.Context, id string) (*models.PaymentTransaction, error) {
	defer s.lock()()
	p, ok := s.data.st.payments[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (s *Store) GetPaymentByExternalRef(_ context.Context, ref string) (*models.PaymentTransaction, error) {
	defer s.lock()()
	for _, p := range s.data.st.payments {
		if ref != "" && p.ExternalRef == ref {
			return &p, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListPayments(_ context.Context, orderID string) ([]models.PaymentTransaction, error) {
	defer s.lock()()
	st := s.data.st
	var out []models.PaymentTransaction
	for _, p := range st.payments {
		if p.OrderID == orderID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return st.seq[out[i].ID] < st.seq[out[j].ID] })
	return out, nil
}

func (s *Store) SavePayment(_ context.Context, p *models.PaymentTransaction) error {
	defer s.lock()()
	if _, ok := s.data.st.payments[p.ID]; !ok {
		return store.ErrNotFound
	}
	p.UpdatedAt = time.Now()
	s.data.st.payments[p.ID] = *p
	return nil
}

func (s *Store) UpdatePaymentStatus(_ context.Context, id string, from []models.TransactionStatus, to models.TransactionStatus, externalRef, reason string) (bool, error) {
	defer s.lock()()
	p, ok := s.data.st.payments[id]
	if !ok {
		return false, store.ErrNotFound
	}
	if !slices.Contains(from, p.Status) {
		return false, nil
	}
	p.Status = to
	if externalRef != "" {
		p.ExternalRef = externalRef
	}
	if reason != "" {
		p.FailureReason = reason
	}
	p.UpdatedAt = time.Now()
	s.data.st.payments[id] = p
	return true, nil
}

func (s *Store) ListInFlightBefore(_ context.Context, before time.Time) ([]models.PaymentTransaction, error) {
	defer s.lock()()
	var out []models.PaymentTransaction
	for _, p := range s.data.st.payments {
		if p.Status.InFlight() && p.CreatedAt.Before(before) {
			out = append(out, p)
		}
	}
	return out, nil
}

// Loyalty

func (s *Store) LockAccount(_ context.Context, memberID string) (*models.LoyaltyAccount, error) {
	defer s.lock()()
	a, ok := s.data.st.accounts[memberID]
	if !ok {
		a = models.LoyaltyAccount{FranchiseMemberID: memberID, UpdatedAt: time.Now()}
		s.data.st.accounts[memberID] = a
	}
	return &a, nil
}

func (s *Store) GetAccount(_ context.Context, memberID string) (*models.LoyaltyAccount, error) {
	defer s.lock()()
	a, ok := s.data.st.accounts[memberID]
	if !ok {
		return &models.LoyaltyAccount{FranchiseMemberID: memberID}, nil
	}
	return &a, nil
}

func (s *Store) SaveAccount(_ context.Context, a *models.LoyaltyAccount) error {
	defer s.lock()()
	a.UpdatedAt = time.Now()
	s.data.st.accounts[a.FranchiseMemberID] = *a
	return nil
}

func (s *Store) AppendLoyaltyTransaction(_ context.Context, t *models.LoyaltyTransaction) error {
	defer s.lock()()
	s.data.st.ledger = append(s.data.st.ledger, *t)
	return nil
}

func (s *Store) ListLoyaltyTransactions(_ context.Context, memberID string) ([]models.LoyaltyTransaction, error) {
	defer s.lock()()
	var out []models.LoyaltyTransaction
	for _, t := range s.data.st.ledger {
		if t.FranchiseMemberID == memberID {
			out = append(out, t)
		}
	}
	return out, nil
}

// Events

func (s *Store) AppendEvents(_ context.Context, records []models.EventRecord) error {
	defer s.lock()()
	s.data.st.events = append(s.data.st.events, records...)
	return nil
}

// Events returns a copy of every recorded event.
func (s *Store) Events() []models.EventRecord {
	defer s.lock()()
	return slices.Clone(s.data.st.events)
}
