package stores

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/youssefsiam38/flowent-gateway/models"
)

type CredentialStore struct {
	BaseStore
}

func CreateCredentialStore(db *gorm.DB) *CredentialStore {
	return &CredentialStore{BaseStore: BaseStore{db: db}}
}

func (s *CredentialStore) CreateAPIToken(ctx context.Context, token *models.APIToken) error {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	return translateError(s.GetDB(ctx).Create(token).Error)
}

func (s *CredentialStore) GetAPITokenByFingerprint(ctx context.Context, fingerprint string) (*models.APIToken, error) {
	var token models.APIToken
	if err := s.GetDB(ctx).Where("fingerprint = ?", fingerprint).First(&token).Error; err != nil {
		return nil, translateError(err)
	}
	return &token, nil
}

func (s *CredentialStore) ListAPITokens(ctx context.Context, tenantID string) ([]*models.APIToken, error) {
	var tokens []*models.APIToken
	err := s.GetDB(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at ASC").
		Find(&tokens).Error
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

func (s *CredentialStore) RevokeAPIToken(ctx context.Context, tenantID, tokenID string, at time.Time) error {
	result := s.GetDB(ctx).Model(&models.APIToken{}).
		Where("id = ? AND tenant_id = ?", tokenID, tenantID).
		Updates(map[string]interface{}{"revoked": true, "revoked_at": at})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *CredentialStore) RotateHMACKey(ctx context.Context, tenantID string, key *models.HMACKey) error {
	return s.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.lockTenant(txCtx, "hmac", tenantID); err != nil {
			return err
		}
		db := s.GetDB(txCtx)

		var current int
		err := db.Model(&models.HMACKey{}).
			Where("tenant_id = ?", tenantID).
			Select("COALESCE(MAX(version), 0)").
			Scan(&current).Error
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		err = db.Model(&models.HMACKey{}).
			Where("tenant_id = ? AND active = ?", tenantID, true).
			Updates(map[string]interface{}{"active": false, "retired_at": now}).Error
		if err != nil {
			return err
		}

		if key.ID == "" {
			key.ID = uuid.NewString()
		}
		key.TenantID = tenantID
		key.Version = current + 1
		key.Active = true
		return translateError(db.Create(key).Error)
	})
}

func (s *CredentialStore) GetActiveHMACKey(ctx context.Context, tenantID string) (*models.HMACKey, error) {
	var key models.HMACKey
	err := s.GetDB(ctx).
		Where("tenant_id = ? AND active = ?", tenantID, true).
		Order("version DESC").
		First(&key).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &key, nil
}
