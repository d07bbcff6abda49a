package stores

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/youssefsiam38/flowent-gateway/models"
)

type TenantStore struct {
	BaseStore
}

func CreateTenantStore(db *gorm.DB) *TenantStore {
	return &TenantStore{BaseStore: BaseStore{db: db}}
}

func (s *TenantStore) CreateTenant(ctx context.Context, tenant *models.Tenant) error {
	if tenant.ID == "" {
		tenant.ID = uuid.NewString()
	}
	return translateError(s.GetDB(ctx).Create(tenant).Error)
}

func (s *TenantStore) GetTenant(ctx context.Context, id string) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := s.GetDB(ctx).First(&tenant, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &tenant, nil
}

func (s *TenantStore) ListTenants(ctx context.Context) ([]*models.Tenant, error) {
	var tenants []*models.Tenant
	if err := s.GetDB(ctx).Order("created_at ASC").Find(&tenants).Error; err != nil {
		return nil, err
	}
	return tenants, nil
}
