// Package gormstore persists the ordering engine through gorm. Every Atomic
// unit is a database transaction; loyalty accounts are locked with
// SELECT ... FOR UPDATE and admission slots rely on the primary key.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Kariqs/franchise-api/models"
	"github.com/Kariqs/franchise-api/store"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Store struct {
	db   *gorm.DB
	inTx bool
}

var _ store.Store = (*Store)(nil)

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Models lists every table the store needs migrated.
func Models() []any {
	return []any{
		&models.CatalogItem{},
		&models.FranchiseOrder{},
		&models.OrderLine{},
		&models.AdmissionSlot{},
		&models.PaymentTransaction{},
		&models.LoyaltyAccount{},
		&models.LoyaltyTransaction{},
		&models.EventRecord{},
	}
}

func (s *Store) Atomic(ctx context.Context, fn func(tx store.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, inTx: true})
	})
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	return err
}

// Catalog

func (s *Store) GetItem(ctx context.Context, id string) (*models.CatalogItem, error) {
	var item models.CatalogItem
	if err := s.conn(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, notFound(err)
	}
	return &item, nil
}

func (s *Store) ListItems(ctx context.Context, f store.CatalogFilter) ([]models.CatalogItem, int64, error) {
	query := s.conn(ctx).Model(&models.CatalogItem{})
	if f.Search != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(f.Search)+"%")
	}
	if f.Category != "" {
		query = query.Where("category = ?", f.Category)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("count catalog items: %w", err)
	}

	query = query.Order("name asc").Order("id asc")
	if f.Limit > 0 {
		query = query.Limit(f.Limit)
	}
	if f.Offset > 0 {
		query = query.Offset(f.Offset)
	}
	items := []models.CatalogItem{}
	if err := query.Find(&items).Error; err != nil {
		return nil, 0, fmt.Errorf("list catalog items: %w", err)
	}
	return items, count, nil
}

func (s *Store) SaveItem(ctx context.Context, item *models.CatalogItem) error {
	return s.conn(ctx).Save(item).Error
}

// Orders

func (s *Store) CreateOrder(ctx context.Context, o *models.FranchiseOrder) error {
	if err := s.conn(ctx).Create(o).Error; err != nil {
		return fmt.Errorf("create order %s: %w", o.ID, err)
	}
	return nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (*models.FranchiseOrder, error) {
	var o models.FranchiseOrder
	if err := s.conn(ctx).Preload("Lines").Where("id = ?", id).First(&o).Error; err != nil {
		return nil, notFound(err)
	}
	return &o, nil
}

func (s *Store) LockOrder(ctx context.Context, id string) (*models.FranchiseOrder, error) {
	var o models.FranchiseOrder
	err := s.conn(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Lines").
		Where("id = ?", id).
		First(&o).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &o, nil
}

func (s *Store) exists(ctx context.Context, model any, id string) (bool, error) {
	var count int64
	if err := s.conn(ctx).Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id string, from, to models.OrderStatus) error {
	result := s.conn(ctx).Model(&models.FranchiseOrder{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "updated_at": time.Now()})
	if result.Error != nil {
		return fmt.Errorf("update order %s status: %w", id, result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}
	found, err := s.exists(ctx, &models.FranchiseOrder{}, id)
	if err != nil {
		return err
	}
	if !found {
		return store.ErrNotFound
	}
	return store.ErrStale
}

func (s *Store) SetPaymentStatus(ctx context.Context, id string, ps models.PaymentStatus) error {
	result := s.conn(ctx).Model(&models.FranchiseOrder{}).
		Where("id = ?", id).
		Updates(map[string]any{"payment_status": ps, "updated_at": time.Now()})
	if result.Error != nil {
		return fmt.Errorf("update order %s payment status: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListOrders(ctx context.Context, f store.OrderFilter) ([]models.FranchiseOrder, int64, error) {
	query := s.conn(ctx).Model(&models.FranchiseOrder{})
	if f.FranchiseMemberID != "" {
		query = query.Where("franchise_member_id = ?", f.FranchiseMemberID)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	sortOrder := "desc"
	if f.Ascending {
		sortOrder = "asc"
	}
	query = query.Preload("Lines").Order("created_at " + sortOrder).Order("id " + sortOrder)
	if f.Limit > 0 {
		query = query.Limit(f.Limit)
	}
	if f.Offset > 0 {
		query = query.Offset(f.Offset)
	}

	orders := []models.FranchiseOrder{}
	if err := query.Find(&orders).Error; err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return orders, count, nil
}

func (s *Store) HasOrderInStatus(ctx context.Context, memberID string, status models.OrderStatus) (bool, error) {
	var count int64
	err := s.conn(ctx).Model(&models.FranchiseOrder{}).
		Where("franchise_member_id = ? AND status = ?", memberID, status).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("count orders: %w", err)
	}
	return count > 0, nil
}

func (s *Store) AcquireSlot(ctx context.Context, memberID, orderID string) (bool, error) {
	slot := models.AdmissionSlot{FranchiseMemberID: memberID, OrderID: orderID, AcquiredAt: time.Now()}
	result := s.conn(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&slot)
	if result.Error != nil {
		return false, fmt.Errorf("acquire admission slot: %w", result.Error)
	}
	if result.RowsAffected == 1 {
		return true, nil
	}

	var held models.AdmissionSlot
	if err := s.conn(ctx).Where("franchise_member_id = ?", memberID).First(&held).Error; err != nil {
		return false, notFound(err)
	}
	return held.OrderID == orderID, nil
}

func (s *Store) ReleaseSlot(ctx context.Context, memberID, orderID string) error {
	return s.conn(ctx).
		Where("franchise_member_id = ? AND order_id = ?", memberID, orderID).
		Delete(&models.AdmissionSlot{}).Error
}

// Payments

func (s *Store) CreatePayment(ctx context.Context, p *models.PaymentTransaction) error {
	if err := s.conn(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

func (s *Store) GetPayment(ctx context.Context, id string) (*models.PaymentTransaction, error) {
	var p models.PaymentTransaction
	if err := s.conn(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (s *Store) GetPaymentByExternalRef(ctx context.Context, ref string) (*models.PaymentTransaction, error) {
	if ref == "" {
		return nil, store.ErrNotFound
	}
	var p models.PaymentTransaction
	if err := s.conn(ctx).Where("external_ref = ?", ref).First(&p).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (s *Store) ListPayments(ctx context.Context, orderID string) ([]models.PaymentTransaction, error) {
	var payments []models.PaymentTransaction
	if err := s.conn(ctx).Where("order_id = ?", orderID).Order("created_at asc").Find(&payments).Error; err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}

func (s *Store) SavePayment(ctx context.Context, p *models.PaymentTransaction) error {
	p.UpdatedAt = time.Now()
	return s.conn(ctx).Save(p).Error
}

func (s *Store) UpdatePaymentStatus(ctx context.Context, id string, from []models.TransactionStatus, to models.TransactionStatus, externalRef, reason string) (bool, error) {
	updates := map[string]any{"status": to, "updated_at": time.Now()}
	if externalRef != "" {
		updates["external_ref"] = externalRef
	}
	if reason != "" {
		updates["failure_reason"] = reason
	}

	result := s.conn(ctx).Model(&models.PaymentTransaction{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, fmt.Errorf("update payment %s: %w", id, result.Error)
	}
	if result.RowsAffected > 0 {
		return true, nil
	}
	found, err := s.exists(ctx, &models.PaymentTransaction{}, id)
	if err != nil {
		return false, err
	}
	if !found {
		return false, store.ErrNotFound
	}
	return false, nil
}

func (s *Store) ListInFlightBefore(ctx context.Context, before time.Time) ([]models.PaymentTransaction, error) {
	var payments []models.PaymentTransaction
	err := s.conn(ctx).
		Where("status IN ? AND created_at < ?", []models.TransactionStatus{models.TxCreated, models.TxPending}, before).
		Find(&payments).Error
	if err != nil {
		return nil, fmt.Errorf("list stale payments: %w", err)
	}
	return payments, nil
}

// Loyalty

func (s *Store) LockAccount(ctx context.Context, memberID string) (*models.LoyaltyAccount, error) {
	seed := models.LoyaltyAccount{FranchiseMemberID: memberID, UpdatedAt: time.Now()}
	if err := s.conn(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return nil, fmt.Errorf("open loyalty account: %w", err)
	}

	var a models.LoyaltyAccount
	err := s.conn(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("franchise_member_id = ?", memberID).
		First(&a).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (s *Store) GetAccount(ctx context.Context, memberID string) (*models.LoyaltyAccount, error) {
	var a models.LoyaltyAccount
	err := s.conn(ctx).Where("franchise_member_id = ?", memberID).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.LoyaltyAccount{FranchiseMemberID: memberID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get loyalty account: %w", err)
	}
	return &a, nil
}

func (s *Store) SaveAccount(ctx context.Context, a *models.LoyaltyAccount) error {
	a.UpdatedAt = time.Now()
	return s.conn(ctx).Save(a).Error
}

func (s *Store) AppendLoyaltyTransaction(ctx context.Context, t *models.LoyaltyTransaction) error {
	return s.conn(ctx).Create(t).Error
}

func (s *Store) ListLoyaltyTransactions(ctx context.Context, memberID string) ([]models.LoyaltyTransaction, error) {
	var txs []models.LoyaltyTransaction
	err := s.conn(ctx).Where("franchise_member_id = ?", memberID).Order("created_at asc").Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("list loyalty transactions: %w", err)
	}
	return txs, nil
}

// Events

func (s *Store) AppendEvents(ctx context.Context, records []models.EventRecord) error {
	if len(records) == 0 {
		return nil
	}
	return s.conn(ctx).Create(&records).Error
}
