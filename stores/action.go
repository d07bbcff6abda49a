package stores

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/youssefsiam38/flowent-gateway/models"
)

type ActionStore struct {
	BaseStore
}

func CreateActionStore(db *gorm.DB) *ActionStore {
	return &ActionStore{BaseStore: BaseStore{db: db}}
}

func (s *ActionStore) CreateAction(ctx context.Context, tenantID string, action *models.Action, limit int) error {
	return s.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.lockTenant(txCtx, "actions", tenantID); err != nil {
			return err
		}
		db := s.GetDB(txCtx)

		var existing int64
		err := db.Model(&models.Action{}).
			Where("tenant_id = ? AND name = ?", tenantID, action.Name).
			Count(&existing).Error
		if err != nil {
			return err
		}
		if existing > 0 {
			return ErrDuplicate
		}

		var total int64
		if err := db.Model(&models.Action{}).Where("tenant_id = ?", tenantID).Count(&total).Error; err != nil {
			return err
		}
		if limit > 0 && total >= int64(limit) {
			return ErrQuotaExceeded
		}

		action.ID = 0
		action.TenantID = tenantID
		return translateError(db.Create(action).Error)
	})
}

func (s *ActionStore) GetAction(ctx context.Context, tenantID, name string) (*models.Action, error) {
	var action models.Action
	err := s.GetDB(ctx).
		Where("tenant_id = ? AND name = ?", tenantID, name).
		First(&action).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &action, nil
}

func (s *ActionStore) ListActions(ctx context.Context, tenantID string) ([]*models.Action, error) {
	actions := make([]*models.Action, 0)
	err := s.GetDB(ctx).
		Where("tenant_id = ?", tenantID).
		Order("id ASC").
		Find(&actions).Error
	if err != nil {
		return nil, err
	}
	return actions, nil
}

func (s *ActionStore) CountActions(ctx context.Context, tenantID string) (int, error) {
	var total int64
	if err := s.GetDB(ctx).Model(&models.Action{}).Where("tenant_id = ?", tenantID).Count(&total).Error; err != nil {
		return 0, err
	}
	return int(total), nil
}

func (s *ActionStore) UpdateAction(ctx context.Context, tenantID string, action *models.Action) error {
	if action.UpdatedAt.IsZero() {
		action.UpdatedAt = time.Now().UTC()
	}
	result := s.GetDB(ctx).Model(&models.Action{}).
		Where("tenant_id = ? AND name = ?", tenantID, action.Name).
		Updates(map[string]interface{}{
			"description": action.Description,
			"webhook_url": action.WebhookURL,
			"json_schema": action.JSONSchema,
			"updated_at":  action.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *ActionStore) DeleteAction(ctx context.Context, tenantID, name string) error {
	result := s.GetDB(ctx).
		Where("tenant_id = ? AND name = ?", tenantID, name).
		Delete(&models.Action{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
