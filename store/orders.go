package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/judyrop/sil-crm/models"
)

type OrderFilter struct {
	CustomerID           *uint
	CustomerNameContains string
	ProductNameContains  string
	TotalMin             *decimal.Decimal
	TotalMax             *decimal.Decimal
	OrderedAfter         *time.Time
	OrderedBefore        *time.Time
}

func (f OrderFilter) apply(db *gorm.DB, q *gorm.DB) *gorm.DB {
	if f.CustomerID != nil {
		q = q.Where("customer_id = ?", *f.CustomerID)
	}
	if f.CustomerNameContains != "" {
		sub := db.Model(&models.Customer{}).Select("id").Where("LOWER(name) LIKE ?", likeAny(f.CustomerNameContains))
		q = q.Where("customer_id IN (?)", sub)
	}
	if f.ProductNameContains != "" {
		sub := db.Table("order_products").
			Select("order_products.order_id").
			Joins("JOIN products ON products.id = order_products.product_id").
			Where("LOWER(products.name) LIKE ?", likeAny(f.ProductNameContains))
		q = q.Where("id IN (?)", sub)
	}
	if f.TotalMin != nil {
		q = q.Where("total_amount >= ?", *f.TotalMin)
	}
	if f.TotalMax != nil {
		q = q.Where("total_amount <= ?", *f.TotalMax)
	}
	if f.OrderedAfter != nil {
		q = q.Where("order_date >= ?", *f.OrderedAfter)
	}
	if f.OrderedBefore != nil {
		q = q.Where("order_date <= ?", *f.OrderedBefore)
	}
	return q
}

// CreateOrder inserts the order row only. Products are attached with
// ReplaceOrderProducts.
func (s *Store) CreateOrder(ctx context.Context, o *models.Order) error {
	return wrap("order", s.conn(ctx).Omit("Customer", "Products").Create(o).Error)
}

func (s *Store) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	var o models.Order
	err := s.conn(ctx).
		Preload("Customer").
		Preload("Products", func(db *gorm.DB) *gorm.DB { return db.Order("products.id asc") }).
		First(&o, id).Error
	if err != nil {
		return nil, wrap("order", err)
	}
	return &o, nil
}

// ReplaceOrderProducts sets the order's product association to exactly
// products.
func (s *Store) ReplaceOrderProducts(ctx context.Context, orderID uint, products []models.Product) error {
	o := models.Order{ID: orderID}
	err := s.conn(ctx).Model(&o).Association("Products").Replace(products)
	return wrap("order products", err)
}

func (s *Store) OrderProducts(ctx context.Context, orderID uint) ([]models.Product, error) {
	var out []models.Product
	o := models.Order{ID: orderID}
	if err := s.conn(ctx).Model(&o).Order("products.id asc").Association("Products").Find(&out); err != nil {
		return nil, wrap("order products", err)
	}
	return out, nil
}

func (s *Store) UpdateOrderTotal(ctx context.Context, orderID uint, total decimal.Decimal) error {
	res := s.conn(ctx).Model(&models.Order{}).Where("id = ?", orderID).Update("total_amount", total)
	if res.Error != nil {
		return wrap("order", res.Error)
	}
	if res.RowsAffected == 0 {
		return wrap("order", gorm.ErrRecordNotFound)
	}
	return nil
}

func (s *Store) ListOrders(ctx context.Context, f OrderFilter, orderBy string, p Page) ([]models.Order, int64, error) {
	order, err := orderClause(orderBy, "total_amount", "order_date", "customer_id", "created_at")
	if err != nil {
		return nil, 0, err
	}
	db := s.conn(ctx)
	var total int64
	if err := f.apply(db, db.Model(&models.Order{})).Count(&total).Error; err != nil {
		return nil, 0, wrap("order", err)
	}
	var out []models.Order
	q := p.apply(f.apply(db, db.Model(&models.Order{})).Order(order)).
		Preload("Customer").
		Preload("Products", func(db *gorm.DB) *gorm.DB { return db.Order("products.id asc") })
	if err := q.Find(&out).Error; err != nil {
		return nil, 0, wrap("order", err)
	}
	return out, total, nil
}

// OrdersBetween returns orders whose order_date lies in [from, to], oldest
// first, with their customers loaded.
func (s *Store) OrdersBetween(ctx context.Context, from, to time.Time) ([]models.Order, error) {
	var out []models.Order
	err := s.conn(ctx).
		Preload("Customer").
		Where("order_date >= ? AND order_date <= ?", from, to).
		Order("order_date asc, id asc").
		Find(&out).Error
	if err != nil {
		return nil, wrap("order", err)
	}
	return out, nil
}
