package stores

import (
	"context"

	"gorm.io/gorm"
)

// PostgresStore is the gorm-backed Store.
type PostgresStore struct {
	*TenantStore
	*CredentialStore
	*ActionStore
}

func CreatePostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{
		TenantStore:     CreateTenantStore(db),
		CredentialStore: CreateCredentialStore(db),
		ActionStore:     CreateActionStore(db),
	}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.TenantStore.Ping(ctx)
}
