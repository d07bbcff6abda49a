package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/youssefsiam38/flowent-gateway/monitoring"
	"github.com/youssefsiam38/flowent-gateway/security"
	"github.com/youssefsiam38/flowent-gateway/utils"
)

func TestTokenService_Exchange(t *testing.T) {
	ctx := context.Background()
	creds, tenant := setupCredentials(t)
	jwtManager := security.CreateJWTManager("test-jwt-secret-0123456789", "flowent-gateway", "flowent-gateway")
	svc := CreateTokenService(creds, jwtManager, monitoring.CreateMetrics())

	issued, err := creds.CreateAPIToken(ctx, tenant.ID)
	require.NoError(t, err)

	t.Run("valid token", func(t *testing.T) {
		before := time.Now().Add(-time.Second)
		session, err := svc.Exchange(ctx, issued.Plaintext)
		require.NoError(t, err)

		assert.Equal(t, tenant.ID, session.TenantID)
		assert.Equal(t, 24*time.Hour, session.ExpiresAt.Sub(session.IssuedAt))
		assert.False(t, session.IssuedAt.Before(before.Truncate(time.Second)))

		tenantID, err := svc.Validate(session.Token)
		require.NoError(t, err)
		assert.Equal(t, tenant.ID, tenantID)
	})

	t.Run("unknown token", func(t *testing.T) {
		other, err := security.GenerateAPIToken()
		require.NoError(t, err)
		_, err = svc.Exchange(ctx, other)
		assert.Equal(t, utils.KindInvalidToken, utils.AsAPIError(err).Kind)
		assert.Equal(t, 401, utils.GetHTTPStatusFromError(err))
	})

	t.Run("revoked token", func(t *testing.T) {
		revoked, err := creds.CreateAPIToken(ctx, tenant.ID)
		require.NoError(t, err)
		require.NoError(t, creds.RevokeAPIToken(ctx, tenant.ID, revoked.Token.ID))

		_, err = svc.Exchange(ctx, revoked.Plaintext)
		apiErr := utils.AsAPIError(err)
		assert.Equal(t, utils.KindInvalidToken, apiErr.Kind, "revocation is not distinguished from unknown")
		assert.Empty(t, apiErr.Details)
	})

	t.Run("garbage session token", func(t *testing.T) {
		_, err := svc.Validate("not.a.jwt")
		assert.True(t, utils.IsKind(err, utils.KindInvalidToken))
	})
}
