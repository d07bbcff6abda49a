package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/youssefsiam38/flowent-gateway/models"
	"github.com/youssefsiam38/flowent-gateway/security"
	"github.com/youssefsiam38/flowent-gateway/stores"
	"github.com/youssefsiam38/flowent-gateway/utils"
)

func setupCredentials(t *testing.T) (*CredentialService, *models.Tenant) {
	t.Helper()
	store := stores.CreateMemoryStore()
	enc, err := security.CreateEncryptionManager(security.DeriveEncryptionKey("test-encryption-key"))
	require.NoError(t, err)

	tenant, err := CreateTenantService(store).Create(context.Background(), &models.CreateTenantRequest{Name: "acme"})
	require.NoError(t, err)

	return CreateCredentialService(store, store, enc), tenant
}

func TestCredentialService_APITokens(t *testing.T) {
	ctx := context.Background()
	svc, tenant := setupCredentials(t)

	issued, err := svc.CreateAPIToken(ctx, tenant.ID)
	require.NoError(t, err)
	assert.True(t, security.LooksLikeAPIToken(issued.Plaintext))
	assert.Equal(t, issued.Plaintext[:12], issued.Token.Prefix)
	assert.NotContains(t, issued.Token.SecretHash, issued.Plaintext)

	tenantID, err := svc.LookupAPIToken(ctx, issued.Plaintext)
	require.NoError(t, err)
	assert.Equal(t, tenant.ID, tenantID)

	last := "0"
	if issued.Plaintext[67] == '0' {
		last = "1"
	}
	_, err = svc.LookupAPIToken(ctx, issued.Plaintext[:67]+last)
	assert.ErrorIs(t, err, utils.ErrCredentialNotFound)

	_, err = svc.LookupAPIToken(ctx, "not-a-token")
	assert.ErrorIs(t, err, utils.ErrCredentialNotFound)

	require.NoError(t, svc.RevokeAPIToken(ctx, tenant.ID, issued.Token.ID))
	_, err = svc.LookupAPIToken(ctx, issued.Plaintext)
	assert.ErrorIs(t, err, utils.ErrCredentialRevoked)

	assert.ErrorIs(t, svc.RevokeAPIToken(ctx, tenant.ID, "missing"), utils.ErrCredentialNotFound)

	tokens, err := svc.ListAPITokens(ctx, tenant.ID)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.True(t, tokens[0].Revoked)
}

func TestCredentialService_UnknownTenant(t *testing.T) {
	svc, _ := setupCredentials(t)

	_, err := svc.CreateAPIToken(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrTenantNotFound)
	_, err = svc.RotateHMACKey(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrTenantNotFound)
}

func TestCredentialService_HMACKeys(t *testing.T) {
	ctx := context.Background()
	svc, tenant := setupCredentials(t)

	_, err := svc.SigningKey(ctx, tenant.ID)
	assert.ErrorIs(t, err, utils.ErrCredentialNotFound)

	first, err := svc.CreateHMACKey(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Key.Version)
	assert.NotEqual(t, first.Plaintext, first.Key.EncryptedSecret)

	_, err = svc.CreateHMACKey(ctx, tenant.ID)
	assert.ErrorIs(t, err, utils.ErrInvalidRequest)

	key, err := svc.SigningKey(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Plaintext, string(key))

	issuedToken, err := svc.CreateAPIToken(ctx, tenant.ID)
	require.NoError(t, err)

	second, err := svc.RotateHMACKey(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Key.Version)

	key, err = svc.SigningKey(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, second.Plaintext, string(key))

	payload := []byte(`{"action_name":"x","parameters":{},"timestamp":1}`)
	sig := security.Sign(payload, []byte(first.Plaintext))
	assert.False(t, security.Verify(payload, key, sig), "old key stops verifying after rotation")

	_, err = svc.LookupAPIToken(ctx, issuedToken.Plaintext)
	assert.NoError(t, err, "rotation leaves API tokens alone")
}
