package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/judyrop/sil-crm/apperr"
	"github.com/judyrop/sil-crm/models"
	"github.com/judyrop/sil-crm/observability"
	"github.com/judyrop/sil-crm/store"
	"github.com/judyrop/sil-crm/validation"
)

const MsgInvalidOrder = "Invalid order ID"

type OrderInput struct {
	CustomerID uint
	ProductIDs []uint
	// OrderDate defaults to the creation time.
	OrderDate *time.Time
}

type OrderService interface {
	CreateOrder(ctx context.Context, in OrderInput) (*models.Order, error)
	// ReplaceProducts swaps the order's product set and refreshes its total.
	ReplaceProducts(ctx context.Context, orderID uint, productIDs []uint) (*models.Order, error)
	// RecomputeTotal re-sums the current prices of the order's products and
	// stores the result if it changed. changed reports whether a write
	// happened.
	RecomputeTotal(ctx context.Context, orderID uint) (total decimal.Decimal, changed bool, err error)
	GetOrder(ctx context.Context, id uint) (*models.Order, error)
	ListOrders(ctx context.Context, f store.OrderFilter, orderBy string, p store.Page) ([]models.Order, int64, error)
	// OrdersSince returns orders dated within the window ending now.
	OrdersSince(ctx context.Context, window time.Duration) ([]models.Order, error)
}

type orderService struct{ Deps }

func NewOrderService(d Deps) OrderService {
	return &orderService{Deps: d.withDefaults()}
}

func (s *orderService) CreateOrder(ctx context.Context, in OrderInput) (o *models.Order, err error) {
	ctx, span := observability.StartSpan(ctx, "service.CreateOrder",
		attribute.Int("customer_id", int(in.CustomerID)),
		attribute.Int("product_count", len(in.ProductIDs)))
	defer func() {
		observability.EndSpan(span, err)
		s.Metrics.RecordMutation("create_order", err)
	}()

	err = s.Store.WithTx(ctx, func(tx *store.Store) error {
		if _, err := tx.GetCustomer(ctx, in.CustomerID); err != nil {
			if apperr.IsKind(err, apperr.KindNotFound) {
				return apperr.NotFound(validation.MsgInvalidCustomer)
			}
			return err
		}
		products, err := resolveProducts(ctx, tx, in.ProductIDs)
		if err != nil {
			return err
		}

		date := s.Now()
		if in.OrderDate != nil {
			date = *in.OrderDate
		}
		row := &models.Order{CustomerID: in.CustomerID, OrderDate: date, TotalAmount: decimal.Zero}
		if err := tx.CreateOrder(ctx, row); err != nil {
			return err
		}
		if err := tx.ReplaceOrderProducts(ctx, row.ID, products); err != nil {
			return err
		}
		if _, _, err := recomputeTotal(ctx, tx, row.ID); err != nil {
			return err
		}
		o, err = tx.GetOrder(ctx, row.ID)
		return err
	})
	if err != nil {
		s.Logger.Info("order rejected", zap.Uint("customer_id", in.CustomerID), zap.Error(err))
		return nil, err
	}
	s.Logger.Info("order created",
		zap.Uint("order_id", o.ID),
		zap.Uint("customer_id", o.CustomerID),
		zap.Int("products", len(o.Products)),
		zap.String("total_amount", o.TotalAmount.StringFixed(2)))
	return o, nil
}

func (s *orderService) ReplaceProducts(ctx context.Context, orderID uint, productIDs []uint) (o *models.Order, err error) {
	ctx, span := observability.StartSpan(ctx, "service.ReplaceProducts", attribute.Int("order_id", int(orderID)))
	defer func() {
		observability.EndSpan(span, err)
		s.Metrics.RecordMutation("update_order_products", err)
	}()

	err = s.Store.WithTx(ctx, func(tx *store.Store) error {
		if _, err := tx.GetOrder(ctx, orderID); err != nil {
			if apperr.IsKind(err, apperr.KindNotFound) {
				return apperr.NotFound(MsgInvalidOrder)
			}
			return err
		}
		products, err := resolveProducts(ctx, tx, productIDs)
		if err != nil {
			return err
		}
		if err := tx.ReplaceOrderProducts(ctx, orderID, products); err != nil {
			return err
		}
		if _, _, err := recomputeTotal(ctx, tx, orderID); err != nil {
			return err
		}
		o, err = tx.GetOrder(ctx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("order products replaced",
		zap.Uint("order_id", o.ID),
		zap.Int("products", len(o.Products)),
		zap.String("total_amount", o.TotalAmount.StringFixed(2)))
	return o, nil
}

func (s *orderService) RecomputeTotal(ctx context.Context, orderID uint) (total decimal.Decimal, changed bool, err error) {
	err = s.Store.WithTx(ctx, func(tx *store.Store) error {
		var txErr error
		total, changed, txErr = recomputeTotal(ctx, tx, orderID)
		return txErr
	})
	if apperr.IsKind(err, apperr.KindNotFound) {
		err = apperr.NotFound(MsgInvalidOrder)
	}
	return total, changed, err
}

func (s *orderService) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	return s.Store.GetOrder(ctx, id)
}

func (s *orderService) ListOrders(ctx context.Context, f store.OrderFilter, orderBy string, p store.Page) ([]models.Order, int64, error) {
	return s.Store.ListOrders(ctx, f, orderBy, p)
}

func (s *orderService) OrdersSince(ctx context.Context, window time.Duration) ([]models.Order, error) {
	now := s.Now()
	return s.Store.OrdersBetween(ctx, now.Add(-window), now)
}

// resolveProducts loads the distinct products named by ids, failing if the
// list is empty or any id is unknown.
func resolveProducts(ctx context.Context, tx *store.Store, ids []uint) ([]models.Product, error) {
	distinct, err := validation.ProductIDs(ids)
	if err != nil {
		return nil, err
	}
	products, err := tx.ProductsByIDs(ctx, distinct)
	if err != nil {
		return nil, err
	}
	if len(products) != len(distinct) {
		return nil, apperr.NotFound(validation.MsgInvalidProducts)
	}
	return products, nil
}

// recomputeTotal is the only writer of Order.TotalAmount. It writes only
// when the sum differs from the stored value.
func recomputeTotal(ctx context.Context, tx *store.Store, orderID uint) (decimal.Decimal, bool, error) {
	o, err := tx.GetOrder(ctx, orderID)
	if err != nil {
		return decimal.Zero, false, err
	}
	total := decimal.Zero
	for _, p := range o.Products {
		total = total.Add(p.Price)
	}
	if o.TotalAmount.Equal(total) {
		return total, false, nil
	}
	if err := tx.UpdateOrderTotal(ctx, orderID, total); err != nil {
		return decimal.Zero, false, err
	}
	return total, true, nil
}
