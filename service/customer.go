package service

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/judyrop/sil-crm/apperr"
	"github.com/judyrop/sil-crm/models"
	"github.com/judyrop/sil-crm/observability"
	"github.com/judyrop/sil-crm/store"
	"github.com/judyrop/sil-crm/validation"
)

type CustomerInput struct {
	Name  string
	Email string
	Phone string
}

// BulkResult reports a partial-success batch: Created holds the customers
// that committed, Errors one message per rejected input.
type BulkResult struct {
	Created []models.Customer
	Errors  []string
}

type CustomerService interface {
	// CreateCustomer is all-or-nothing: it checks email uniqueness and
	// inserts in one transaction.
	CreateCustomer(ctx context.Context, in CustomerInput) (*models.Customer, error)
	// BulkCreateCustomers validates and inserts each input on its own
	// savepoint. Rejected inputs are reported in BulkResult.Errors and do
	// not abort their siblings.
	BulkCreateCustomers(ctx context.Context, in []CustomerInput) (BulkResult, error)
	DeleteCustomer(ctx context.Context, id uint) error
	GetCustomer(ctx context.Context, id uint) (*models.Customer, error)
	ListCustomers(ctx context.Context, f store.CustomerFilter, orderBy string, p store.Page) ([]models.Customer, int64, error)
}

type customerService struct{ Deps }

func NewCustomerService(d Deps) CustomerService {
	return &customerService{Deps: d.withDefaults()}
}

func (s *customerService) CreateCustomer(ctx context.Context, in CustomerInput) (c *models.Customer, err error) {
	ctx, span := observability.StartSpan(ctx, "service.CreateCustomer", attribute.String("email", in.Email))
	defer func() {
		observability.EndSpan(span, err)
		s.Metrics.RecordMutation("create_customer", err)
	}()

	err = s.Store.WithTx(ctx, func(tx *store.Store) error {
		var txErr error
		c, txErr = createCustomer(ctx, tx, in)
		return txErr
	})
	if err != nil {
		s.Logger.Info("customer rejected", zap.String("email", in.Email), zap.Error(err))
		return nil, err
	}
	s.Logger.Info("customer created", zap.Uint("customer_id", c.ID), zap.String("email", c.Email))
	return c, nil
}

func (s *customerService) BulkCreateCustomers(ctx context.Context, in []CustomerInput) (res BulkResult, err error) {
	ctx, span := observability.StartSpan(ctx, "service.BulkCreateCustomers", attribute.Int("count", len(in)))
	defer func() {
		observability.EndSpan(span, err)
		s.Metrics.RecordMutation("bulk_create_customers", err)
	}()

	res = BulkResult{Created: []models.Customer{}, Errors: []string{}}
	err = s.Store.WithTx(ctx, func(tx *store.Store) error {
		for _, item := range in {
			var c *models.Customer
			itemErr := tx.WithTx(ctx, func(sp *store.Store) error {
				var e error
				c, e = createCustomer(ctx, sp, item)
				return e
			})
			if itemErr != nil {
				res.Errors = append(res.Errors, bulkItemError(item, itemErr))
				continue
			}
			res.Created = append(res.Created, *c)
		}
		return nil
	})
	if err != nil {
		return BulkResult{}, err
	}
	s.Logger.Info("bulk customer import finished",
		zap.Int("created", len(res.Created)),
		zap.Int("rejected", len(res.Errors)))
	return res, nil
}

func (s *customerService) DeleteCustomer(ctx context.Context, id uint) (err error) {
	ctx, span := observability.StartSpan(ctx, "service.DeleteCustomer")
	defer func() {
		observability.EndSpan(span, err)
		s.Metrics.RecordMutation("delete_customer", err)
	}()

	err = s.Store.WithTx(ctx, func(tx *store.Store) error {
		return tx.DeleteCustomer(ctx, id)
	})
	if err != nil {
		return err
	}
	s.Logger.Info("customer deleted", zap.Uint("customer_id", id))
	return nil
}

func (s *customerService) GetCustomer(ctx context.Context, id uint) (*models.Customer, error) {
	return s.Store.GetCustomer(ctx, id)
}

func (s *customerService) ListCustomers(ctx context.Context, f store.CustomerFilter, orderBy string, p store.Page) ([]models.Customer, int64, error) {
	return s.Store.ListCustomers(ctx, f, orderBy, p)
}

// createCustomer validates in and inserts it through tx. The uniqueness
// check and insert share tx; a unique violation from a concurrent writer is
// reported the same way.
func createCustomer(ctx context.Context, tx *store.Store, in CustomerInput) (*models.Customer, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if err := validation.Customer(in.Name, in.Email, in.Phone); err != nil {
		return nil, err
	}
	exists, err := tx.EmailExists(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperr.Conflict(validation.MsgEmailExists)
	}

	c := &models.Customer{Name: in.Name, Email: in.Email}
	if in.Phone != "" {
		phone := in.Phone
		c.Phone = &phone
	}
	if err := tx.CreateCustomer(ctx, c); err != nil {
		if apperr.IsKind(err, apperr.KindConflict) {
			return nil, apperr.Conflict(validation.MsgEmailExists)
		}
		return nil, err
	}
	return c, nil
}

func bulkItemError(in CustomerInput, err error) string {
	switch apperr.Message(err) {
	case validation.MsgEmailExists:
		return validation.MsgEmailExists + ": " + in.Email
	case validation.MsgInvalidPhone:
		return validation.MsgInvalidPhone + ": " + in.Phone
	case validation.MsgInvalidEmail:
		return validation.MsgInvalidEmail + ": " + in.Email
	}
	if apperr.IsKind(err, apperr.KindStore) {
		return err.Error()
	}
	return apperr.Message(err)
}
