package services

import (
	"context"
	"errors"
	"strings"

	"github.com/youssefsiam38/flowent-gateway/models"
	"github.com/youssefsiam38/flowent-gateway/stores"
	"github.com/youssefsiam38/flowent-gateway/utils"
)

var ErrTenantNotFound = errors.New("tenant not found")

type TenantService struct {
	store stores.TenantRepository
}

func CreateTenantService(store stores.TenantRepository) *TenantService {
	return &TenantService{store: store}
}

func (s *TenantService) Create(ctx context.Context, req *models.CreateTenantRequest) (*models.Tenant, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validate.Struct(req); err != nil {
		return nil, utils.ErrInvalidRequest.WithDetails(describeValidation(err))
	}

	tenant := &models.Tenant{Name: req.Name}
	if err := s.store.CreateTenant(ctx, tenant); err != nil {
		return nil, utils.WrapError(err, "failed to create tenant")
	}

	utils.Info(ctx, "Tenant created", map[string]interface{}{"tenant": tenant.ID})
	return tenant, nil
}

func (s *TenantService) GetByID(ctx context.Context, id string) (*models.Tenant, error) {
	tenant, err := s.store.GetTenant(ctx, id)
	if errors.Is(err, stores.ErrNotFound) {
		return nil, ErrTenantNotFound
	}
	if err != nil {
		return nil, err
	}
	return tenant, nil
}

func (s *TenantService) List(ctx context.Context) ([]*models.Tenant, error) {
	return s.store.ListTenants(ctx)
}
