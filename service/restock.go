package service

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/judyrop/sil-crm/models"
	"github.com/judyrop/sil-crm/observability"
	"github.com/judyrop/sil-crm/store"
	"github.com/judyrop/sil-crm/validation"
)

const (
	DefaultRestockThreshold = 10
	DefaultRestockIncrement = 10
)

type RestockResult struct {
	Updated []models.Product
	Summary string
}

type Restocker interface {
	// RestockLowStock raises every product with stock below threshold by
	// increment. The batch commits as a whole or not at all.
	RestockLowStock(ctx context.Context, threshold, increment int) (RestockResult, error)
}

type restocker struct{ Deps }

func NewRestocker(d Deps) Restocker {
	return &restocker{Deps: d.withDefaults()}
}

func (s *restocker) RestockLowStock(ctx context.Context, threshold, increment int) (res RestockResult, err error) {
	ctx, span := observability.StartSpan(ctx, "service.RestockLowStock",
		attribute.Int("threshold", threshold),
		attribute.Int("increment", increment))
	defer func() {
		observability.EndSpan(span, err)
		s.Metrics.RecordMutation("restock_low_stock", err)
	}()

	if err = validation.Restock(threshold, increment); err != nil {
		return RestockResult{}, err
	}

	updated := []models.Product{}
	err = s.Store.WithTx(ctx, func(tx *store.Store) error {
		low, err := tx.LowStockProducts(ctx, threshold)
		if err != nil {
			return err
		}
		for _, p := range low {
			np, err := tx.IncrementStock(ctx, p.ID, increment)
			if err != nil {
				return fmt.Errorf("restock product %d: %w", p.ID, err)
			}
			updated = append(updated, *np)
		}
		return nil
	})
	if err != nil {
		s.Logger.Error("restock rolled back", zap.Error(err))
		return RestockResult{}, err
	}

	s.Metrics.RecordRestock(len(updated))
	res = RestockResult{
		Updated: updated,
		Summary: fmt.Sprintf("Updated %d low-stock products.", len(updated)),
	}
	s.Logger.Info("restock finished",
		zap.Int("updated", len(updated)),
		zap.Int("threshold", threshold),
		zap.Int("increment", increment))
	return res, nil
}
