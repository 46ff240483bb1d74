package store

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/judyrop/sil-crm/models"
)

type ProductFilter struct {
	NameContains string
	PriceMin     *decimal.Decimal
	PriceMax     *decimal.Decimal
	StockMin     *int
	StockMax     *int
}

func (f ProductFilter) apply(q *gorm.DB) *gorm.DB {
	if f.NameContains != "" {
		q = q.Where("LOWER(name) LIKE ?", likeAny(f.NameContains))
	}
	if f.PriceMin != nil {
		q = q.Where("price >= ?", *f.PriceMin)
	}
	if f.PriceMax != nil {
		q = q.Where("price <= ?", *f.PriceMax)
	}
	if f.StockMin != nil {
		q = q.Where("stock >= ?", *f.StockMin)
	}
	if f.StockMax != nil {
		q = q.Where("stock <= ?", *f.StockMax)
	}
	return q
}

func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	return wrap("product", s.conn(ctx).Create(p).Error)
}

func (s *Store) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	if err := s.conn(ctx).First(&p, id).Error; err != nil {
		return nil, wrap("product", err)
	}
	return &p, nil
}

// ProductsByIDs returns the products that exist among ids, ordered by id.
func (s *Store) ProductsByIDs(ctx context.Context, ids []uint) ([]models.Product, error) {
	var out []models.Product
	if len(ids) == 0 {
		return out, nil
	}
	if err := s.conn(ctx).Where("id IN ?", ids).Order("id asc").Find(&out).Error; err != nil {
		return nil, wrap("product", err)
	}
	return out, nil
}

func (s *Store) ListProducts(ctx context.Context, f ProductFilter, orderBy string, p Page) ([]models.Product, int64, error) {
	order, err := orderClause(orderBy, "name", "price", "stock", "created_at")
	if err != nil {
		return nil, 0, err
	}
	var total int64
	if err := f.apply(s.conn(ctx).Model(&models.Product{})).Count(&total).Error; err != nil {
		return nil, 0, wrap("product", err)
	}
	var out []models.Product
	q := p.apply(f.apply(s.conn(ctx).Model(&models.Product{})).Order(order))
	if err := q.Find(&out).Error; err != nil {
		return nil, 0, wrap("product", err)
	}
	return out, total, nil
}

// LowStockProducts selects products with stock below threshold and locks
// their rows for update where the database supports it.
func (s *Store) LowStockProducts(ctx context.Context, threshold int) ([]models.Product, error) {
	var out []models.Product
	err := s.conn(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("stock < ?", threshold).
		Order("id asc").
		Find(&out).Error
	if err != nil {
		return nil, wrap("product", err)
	}
	return out, nil
}

// IncrementStock adds delta to a product's stock and returns the updated
// row.
func (s *Store) IncrementStock(ctx context.Context, id uint, delta int) (*models.Product, error) {
	res := s.conn(ctx).Model(&models.Product{}).
		Where("id = ?", id).
		Update("stock", gorm.Expr("stock + ?", delta))
	if res.Error != nil {
		return nil, wrap("product", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, wrap("product", gorm.ErrRecordNotFound)
	}
	return s.GetProduct(ctx, id)
}

func (s *Store) CountProducts(ctx context.Context) (int64, error) {
	var n int64
	err := s.conn(ctx).Model(&models.Product{}).Count(&n).Error
	return n, wrap("product", err)
}
