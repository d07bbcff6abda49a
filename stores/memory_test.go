package stores

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/youssefsiam38/flowent-gateway/models"
)

func newAction(name string) *models.Action {
	return &models.Action{
		Name:       name,
		WebhookURL: "https://hooks.example.com/" + name,
		JSONSchema: datatypes.JSON(`{"type":"object"}`),
	}
}

func TestMemoryStore_Actions(t *testing.T) {
	ctx := context.Background()
	store := CreateMemoryStore()

	require.NoError(t, store.CreateAction(ctx, "t1", newAction("send_email"), 100))
	require.NoError(t, store.CreateAction(ctx, "t1", newAction("create_user"), 100))
	require.NoError(t, store.CreateAction(ctx, "t1", newAction("get_weather"), 100))

	t.Run("duplicate name", func(t *testing.T) {
		err := store.CreateAction(ctx, "t1", newAction("send_email"), 100)
		assert.ErrorIs(t, err, ErrDuplicate)
	})

	t.Run("same name in another tenant", func(t *testing.T) {
		assert.NoError(t, store.CreateAction(ctx, "t2", newAction("send_email"), 100))
	})

	t.Run("list keeps insertion order", func(t *testing.T) {
		actions, err := store.ListActions(ctx, "t1")
		require.NoError(t, err)
		require.Len(t, actions, 3)
		assert.Equal(t, "send_email", actions[0].Name)
		assert.Equal(t, "create_user", actions[1].Name)
		assert.Equal(t, "get_weather", actions[2].Name)
	})

	t.Run("list of unknown tenant is empty", func(t *testing.T) {
		actions, err := store.ListActions(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, actions)
	})

	t.Run("returned copies are detached", func(t *testing.T) {
		a, err := store.GetAction(ctx, "t1", "send_email")
		require.NoError(t, err)
		a.WebhookURL = "https://mutated.example.com"

		again, err := store.GetAction(ctx, "t1", "send_email")
		require.NoError(t, err)
		assert.Equal(t, "https://hooks.example.com/send_email", again.WebhookURL)
	})

	t.Run("update", func(t *testing.T) {
		a, err := store.GetAction(ctx, "t1", "create_user")
		require.NoError(t, err)
		created := a.CreatedAt
		a.Description = "Create a new user account"
		a.UpdatedAt = time.Time{}
		require.NoError(t, store.UpdateAction(ctx, "t1", a))

		got, err := store.GetAction(ctx, "t1", "create_user")
		require.NoError(t, err)
		assert.Equal(t, "Create a new user account", got.Description)
		assert.Equal(t, created, got.CreatedAt)
		assert.False(t, got.UpdatedAt.Before(created))
	})

	t.Run("update missing", func(t *testing.T) {
		assert.ErrorIs(t, store.UpdateAction(ctx, "t1", newAction("missing")), ErrNotFound)
	})

	t.Run("repeated delete reports not found", func(t *testing.T) {
		require.NoError(t, store.DeleteAction(ctx, "t1", "get_weather"))
		assert.ErrorIs(t, store.DeleteAction(ctx, "t1", "get_weather"), ErrNotFound)
		assert.ErrorIs(t, store.DeleteAction(ctx, "t1", "get_weather"), ErrNotFound)
		_, err := store.GetAction(ctx, "t1", "get_weather")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMemoryStore_ActionQuota(t *testing.T) {
	ctx := context.Background()
	store := CreateMemoryStore()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.CreateAction(ctx, "t1", newAction(fmt.Sprintf("a%d", i)), 3))
	}
	assert.ErrorIs(t, store.CreateAction(ctx, "t1", newAction("a3"), 3), ErrQuotaExceeded)

	count, err := store.CountActions(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestMemoryStore_ConcurrentCreateSameName(t *testing.T) {
	ctx := context.Background()
	store := CreateMemoryStore()

	var wg sync.WaitGroup
	results := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- store.CreateAction(ctx, "t1", newAction("race"), 100)
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrDuplicate)
		}
	}
	assert.Equal(t, 1, succeeded)
}

func TestMemoryStore_ConcurrentQuota(t *testing.T) {
	ctx := context.Background()
	store := CreateMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 150; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = store.CreateAction(ctx, "t1", newAction(fmt.Sprintf("action_%d", i)), models.MaxActionsPerTenant)
		}(i)
	}
	wg.Wait()

	count, err := store.CountActions(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, models.MaxActionsPerTenant, count)
}

func TestMemoryStore_Credentials(t *testing.T) {
	ctx := context.Background()
	store := CreateMemoryStore()

	tenant := &models.Tenant{Name: "acme"}
	require.NoError(t, store.CreateTenant(ctx, tenant))
	require.NotEmpty(t, tenant.ID)

	token := &models.APIToken{TenantID: tenant.ID, Fingerprint: "fp-1", SecretHash: "h", Prefix: "flw_abcdefgh"}
	require.NoError(t, store.CreateAPIToken(ctx, token))

	got, err := store.GetAPITokenByFingerprint(ctx, "fp-1")
	require.NoError(t, err)
	assert.Equal(t, tenant.ID, got.TenantID)
	assert.False(t, got.Revoked)

	assert.ErrorIs(t, store.RevokeAPIToken(ctx, "other-tenant", token.ID, time.Now()), ErrNotFound)
	require.NoError(t, store.RevokeAPIToken(ctx, tenant.ID, token.ID, time.Now()))
	got, err = store.GetAPITokenByFingerprint(ctx, "fp-1")
	require.NoError(t, err)
	assert.True(t, got.Revoked)

	_, err = store.GetActiveHMACKey(ctx, tenant.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	first := &models.HMACKey{EncryptedSecret: "one"}
	require.NoError(t, store.RotateHMACKey(ctx, tenant.ID, first))
	second := &models.HMACKey{EncryptedSecret: "two"}
	require.NoError(t, store.RotateHMACKey(ctx, tenant.ID, second))

	active, err := store.GetActiveHMACKey(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, active.Version)
	assert.Equal(t, "two", active.EncryptedSecret)

	_, err = store.GetActiveHMACKey(ctx, "other-tenant")
	assert.ErrorIs(t, err, ErrNotFound)
}
