package stores

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/youssefsiam38/flowent-gateway/models"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrDuplicate     = errors.New("record already exists")
	ErrQuotaExceeded = errors.New("quota exceeded")
)

type TenantRepository interface {
	CreateTenant(ctx context.Context, tenant *models.Tenant) error
	GetTenant(ctx context.Context, id string) (*models.Tenant, error)
	ListTenants(ctx context.Context) ([]*models.Tenant, error)
}

type CredentialRepository interface {
	CreateAPIToken(ctx context.Context, token *models.APIToken) error
	GetAPITokenByFingerprint(ctx context.Context, fingerprint string) (*models.APIToken, error)
	ListAPITokens(ctx context.Context, tenantID string) ([]*models.APIToken, error)
	RevokeAPIToken(ctx context.Context, tenantID, tokenID string, at time.Time) error

	// RotateHMACKey retires every active key of the tenant and stores key as
	// the next version. key.Version is assigned by the store.
	RotateHMACKey(ctx context.Context, tenantID string, key *models.HMACKey) error
	GetActiveHMACKey(ctx context.Context, tenantID string) (*models.HMACKey, error)
}

type ActionRepository interface {
	// CreateAction inserts action unless the tenant already has an action with
	// the same name or already owns limit actions.
	CreateAction(ctx context.Context, tenantID string, action *models.Action, limit int) error
	GetAction(ctx context.Context, tenantID, name string) (*models.Action, error)
	ListActions(ctx context.Context, tenantID string) ([]*models.Action, error)
	CountActions(ctx context.Context, tenantID string) (int, error)
	UpdateAction(ctx context.Context, tenantID string, action *models.Action) error
	DeleteAction(ctx context.Context, tenantID, name string) error
}

type Store interface {
	TenantRepository
	CredentialRepository
	ActionRepository
	Ping(ctx context.Context) error
}

func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}
