package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/judyrop/sil-crm/models"
	"github.com/judyrop/sil-crm/observability"
	"github.com/judyrop/sil-crm/store"
	"github.com/judyrop/sil-crm/validation"
)

type ProductInput struct {
	Name  string
	Price decimal.Decimal
	Stock int
}

type ProductService interface {
	CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error)
	GetProduct(ctx context.Context, id uint) (*models.Product, error)
	ListProducts(ctx context.Context, f store.ProductFilter, orderBy string, p store.Page) ([]models.Product, int64, error)
}

type productService struct{ Deps }

func NewProductService(d Deps) ProductService {
	return &productService{Deps: d.withDefaults()}
}

func (s *productService) CreateProduct(ctx context.Context, in ProductInput) (p *models.Product, err error) {
	ctx, span := observability.StartSpan(ctx, "service.CreateProduct")
	defer func() {
		observability.EndSpan(span, err)
		s.Metrics.RecordMutation("create_product", err)
	}()

	in.Name = strings.TrimSpace(in.Name)
	if err = validation.Product(in.Name, in.Price, in.Stock); err != nil {
		return nil, err
	}
	p = &models.Product{Name: in.Name, Price: in.Price, Stock: in.Stock}
	if err = s.Store.CreateProduct(ctx, p); err != nil {
		return nil, err
	}
	s.Logger.Info("product created",
		zap.Uint("product_id", p.ID),
		zap.String("price", p.Price.StringFixed(2)),
		zap.Int("stock", p.Stock))
	return p, nil
}

func (s *productService) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	return s.Store.GetProduct(ctx, id)
}

func (s *productService) ListProducts(ctx context.Context, f store.ProductFilter, orderBy string, p store.Page) ([]models.Product, int64, error) {
	return s.Store.ListProducts(ctx, f, orderBy, p)
}
