package stores

import (
	"context"

	"gorm.io/gorm"
)

type contextKey string

const TxKey contextKey = "tx"

type BaseStore struct {
	db *gorm.DB
}

// GetDB returns the transaction carried by ctx, if any.
func (s *BaseStore) GetDB(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(TxKey).(*gorm.DB); ok {
		return tx
	}
	return s.db.WithContext(ctx)
}

func (s *BaseStore) WithTransaction(ctx context.Context, fn func(context.Context) error) error {
	if _, ok := ctx.Value(TxKey).(*gorm.DB); ok {
		return fn(ctx)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, TxKey, tx))
	})
}

// lockTenant serializes writers for one tenant until the surrounding
// transaction ends.
func (s *BaseStore) lockTenant(ctx context.Context, scope, tenantID string) error {
	return s.GetDB(ctx).Exec("SELECT pg_advisory_xact_lock(hashtext(?))", scope+":"+tenantID).Error
}

func (s *BaseStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
