package services

import (
	"context"
	"errors"
	"time"

	"github.com/youssefsiam38/flowent-gateway/models"
	"github.com/youssefsiam38/flowent-gateway/security"
	"github.com/youssefsiam38/flowent-gateway/stores"
	"github.com/youssefsiam38/flowent-gateway/utils"
)

// CredentialService owns API tokens and HMAC signing keys. Plaintext token
// values are only ever returned from CreateAPIToken; HMAC secrets are kept
// encrypted and only SigningKey decrypts them.
type CredentialService struct {
	tenants    stores.TenantRepository
	store      stores.CredentialRepository
	encryption *security.EncryptionManager
	now        func() time.Time
}

func CreateCredentialService(tenants stores.TenantRepository, store stores.CredentialRepository, encryption *security.EncryptionManager) *CredentialService {
	return &CredentialService{
		tenants:    tenants,
		store:      store,
		encryption: encryption,
		now:        time.Now,
	}
}

func (s *CredentialService) requireTenant(ctx context.Context, tenantID string) error {
	_, err := s.tenants.GetTenant(ctx, tenantID)
	if errors.Is(err, stores.ErrNotFound) {
		return ErrTenantNotFound
	}
	return err
}

func (s *CredentialService) CreateAPIToken(ctx context.Context, tenantID string) (*models.IssuedAPIToken, error) {
	if err := s.requireTenant(ctx, tenantID); err != nil {
		return nil, err
	}

	plaintext, err := security.GenerateAPIToken()
	if err != nil {
		return nil, err
	}
	hash, err := security.HashAPIToken(plaintext)
	if err != nil {
		return nil, err
	}

	token := &models.APIToken{
		TenantID:    tenantID,
		Prefix:      security.APITokenDisplayPrefix(plaintext),
		Fingerprint: security.FingerprintAPIToken(plaintext),
		SecretHash:  hash,
	}
	if err := s.store.CreateAPIToken(ctx, token); err != nil {
		return nil, utils.WrapError(err, "failed to store api token")
	}

	utils.Info(ctx, "API token created", map[string]interface{}{
		"tenant":   tenantID,
		"token_id": token.ID,
		"prefix":   token.Prefix,
	})
	return &models.IssuedAPIToken{Token: token, Plaintext: plaintext}, nil
}

func (s *CredentialService) ListAPITokens(ctx context.Context, tenantID string) ([]*models.APIToken, error) {
	return s.store.ListAPITokens(ctx, tenantID)
}

func (s *CredentialService) RevokeAPIToken(ctx context.Context, tenantID, tokenID string) error {
	err := s.store.RevokeAPIToken(ctx, tenantID, tokenID, s.now().UTC())
	if errors.Is(err, stores.ErrNotFound) {
		return utils.ErrCredentialNotFound
	}
	if err != nil {
		return err
	}

	utils.Info(ctx, "API token revoked", map[string]interface{}{"tenant": tenantID, "token_id": tokenID})
	return nil
}

// LookupAPIToken resolves a plaintext token to its tenant.
func (s *CredentialService) LookupAPIToken(ctx context.Context, plaintext string) (string, error) {
	if !security.LooksLikeAPIToken(plaintext) {
		return "", utils.ErrCredentialNotFound
	}

	token, err := s.store.GetAPITokenByFingerprint(ctx, security.FingerprintAPIToken(plaintext))
	if errors.Is(err, stores.ErrNotFound) {
		return "", utils.ErrCredentialNotFound
	}
	if err != nil {
		return "", err
	}

	if !security.CompareAPIToken(token.SecretHash, plaintext) {
		return "", utils.ErrCredentialNotFound
	}
	if token.Revoked {
		return "", utils.ErrCredentialRevoked
	}
	return token.TenantID, nil
}

// CreateHMACKey issues the tenant's first signing key. Tenants that already
// have one must rotate instead.
func (s *CredentialService) CreateHMACKey(ctx context.Context, tenantID string) (*models.IssuedHMACKey, error) {
	if err := s.requireTenant(ctx, tenantID); err != nil {
		return nil, err
	}

	_, err := s.store.GetActiveHMACKey(ctx, tenantID)
	if err == nil {
		return nil, utils.ErrInvalidRequest.WithDetails("tenant already has an active HMAC key; rotate it instead")
	}
	if !errors.Is(err, stores.ErrNotFound) {
		return nil, err
	}
	return s.issueHMACKey(ctx, tenantID)
}

// RotateHMACKey replaces the tenant's signing key. The previous key stops
// verifying immediately; API tokens are not affected.
func (s *CredentialService) RotateHMACKey(ctx context.Context, tenantID string) (*models.IssuedHMACKey, error) {
	if err := s.requireTenant(ctx, tenantID); err != nil {
		return nil, err
	}
	return s.issueHMACKey(ctx, tenantID)
}

func (s *CredentialService) issueHMACKey(ctx context.Context, tenantID string) (*models.IssuedHMACKey, error) {
	secret, err := security.GenerateHMACSecret()
	if err != nil {
		return nil, err
	}
	sealed, err := s.encryption.Encrypt(secret)
	if err != nil {
		return nil, utils.WrapError(err, "failed to encrypt hmac key")
	}

	key := &models.HMACKey{EncryptedSecret: sealed}
	if err := s.store.RotateHMACKey(ctx, tenantID, key); err != nil {
		return nil, utils.WrapError(err, "failed to store hmac key")
	}

	utils.Info(ctx, "HMAC key issued", map[string]interface{}{"tenant": tenantID, "version": key.Version})
	return &models.IssuedHMACKey{Key: key, Plaintext: secret}, nil
}

// SigningKey returns the tenant's active HMAC secret.
func (s *CredentialService) SigningKey(ctx context.Context, tenantID string) ([]byte, error) {
	key, err := s.store.GetActiveHMACKey(ctx, tenantID)
	if errors.Is(err, stores.ErrNotFound) {
		return nil, utils.ErrCredentialNotFound.WithDetails("tenant has no active HMAC key")
	}
	if err != nil {
		return nil, err
	}

	secret, err := s.encryption.Decrypt(key.EncryptedSecret)
	if err != nil {
		return nil, utils.ErrInternal.Wrap(err)
	}
	return []byte(secret), nil
}
