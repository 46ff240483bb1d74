package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/judyrop/sil-crm/models"
)

// AcquireLease takes the named lease for holder until now+ttl. It succeeds
// only when no lease exists or the current one has expired, whoever holds
// it: jobs in one process share a holder, so an unexpired lease of our own
// still means the job is running. A concurrent insert counts as not
// acquired.
func (s *Store) AcquireLease(ctx context.Context, name, holder string, ttl time.Duration, now time.Time) (bool, error) {
	acquired := false
	err := s.WithTx(ctx, func(tx *Store) error {
		db := tx.conn(ctx)
		var lease models.JobLease
		err := db.Clauses(clause.Locking{Strength: "UPDATE"}).Where("name = ?", name).First(&lease).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			// savepoint keeps the outer transaction usable on Postgres
			err = tx.WithTx(ctx, func(inner *Store) error {
				return inner.conn(ctx).Create(&models.JobLease{Name: name, Holder: holder, ExpiresAt: now.Add(ttl)}).Error
			})
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil
			}
			if err != nil {
				return err
			}
			acquired = true
			return nil
		case err != nil:
			return err
		}
		if lease.ExpiresAt.After(now) {
			return nil
		}
		err = db.Model(&models.JobLease{}).
			Where("name = ?", name).
			Updates(map[string]any{"holder": holder, "expires_at": now.Add(ttl)}).Error
		if err != nil {
			return err
		}
		acquired = true
		return nil
	})
	if err != nil {
		return false, wrap("job lease", err)
	}
	return acquired, nil
}

// ReleaseLease drops the lease if holder still owns it.
func (s *Store) ReleaseLease(ctx context.Context, name, holder string) error {
	err := s.conn(ctx).Where("name = ? AND holder = ?", name, holder).Delete(&models.JobLease{}).Error
	return wrap("job lease", err)
}
