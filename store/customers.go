package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/judyrop/sil-crm/models"
)

type CustomerFilter struct {
	NameContains  string
	EmailContains string
	PhonePrefix   string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

func (f CustomerFilter) apply(q *gorm.DB) *gorm.DB {
	if f.NameContains != "" {
		q = q.Where("LOWER(name) LIKE ?", likeAny(f.NameContains))
	}
	if f.EmailContains != "" {
		q = q.Where("LOWER(email) LIKE ?", likeAny(f.EmailContains))
	}
	if f.PhonePrefix != "" {
		q = q.Where("phone LIKE ?", f.PhonePrefix+"%")
	}
	if f.CreatedAfter != nil {
		q = q.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		q = q.Where("created_at <= ?", *f.CreatedBefore)
	}
	return q
}

func (s *Store) CreateCustomer(ctx context.Context, c *models.Customer) error {
	return wrap("customer", s.conn(ctx).Omit("Orders").Create(c).Error)
}

func (s *Store) GetCustomer(ctx context.Context, id uint) (*models.Customer, error) {
	var c models.Customer
	if err := s.conn(ctx).First(&c, id).Error; err != nil {
		return nil, wrap("customer", err)
	}
	return &c, nil
}

func (s *Store) EmailExists(ctx context.Context, email string) (bool, error) {
	var n int64
	err := s.conn(ctx).Model(&models.Customer{}).Where("email = ?", email).Count(&n).Error
	if err != nil {
		return false, wrap("customer", err)
	}
	return n > 0, nil
}

func (s *Store) ListCustomers(ctx context.Context, f CustomerFilter, orderBy string, p Page) ([]models.Customer, int64, error) {
	order, err := orderClause(orderBy, "name", "email", "phone", "created_at")
	if err != nil {
		return nil, 0, err
	}
	var total int64
	if err := f.apply(s.conn(ctx).Model(&models.Customer{})).Count(&total).Error; err != nil {
		return nil, 0, wrap("customer", err)
	}
	var out []models.Customer
	q := p.apply(f.apply(s.conn(ctx).Model(&models.Customer{})).Order(order))
	if err := q.Find(&out).Error; err != nil {
		return nil, 0, wrap("customer", err)
	}
	return out, total, nil
}

// DeleteCustomer removes a customer with its orders and their product
// links. Callers should run it inside WithTx.
func (s *Store) DeleteCustomer(ctx context.Context, id uint) error {
	db := s.conn(ctx)
	if _, err := s.GetCustomer(ctx, id); err != nil {
		return err
	}
	orderIDs := db.Model(&models.Order{}).Select("id").Where("customer_id = ?", id)
	if err := db.Exec("DELETE FROM order_products WHERE order_id IN (?)", orderIDs).Error; err != nil {
		return wrap("order products", err)
	}
	if err := db.Where("customer_id = ?", id).Delete(&models.Order{}).Error; err != nil {
		return wrap("order", err)
	}
	return wrap("customer", db.Delete(&models.Customer{}, id).Error)
}
