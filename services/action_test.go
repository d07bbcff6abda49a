package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/youssefsiam38/flowent-gateway/models"
	"github.com/youssefsiam38/flowent-gateway/stores"
	"github.com/youssefsiam38/flowent-gateway/utils"
)

type fakeProber struct {
	mu    sync.Mutex
	err   error
	calls []string
}

func (p *fakeProber) Probe(_ context.Context, tenantID string, action *models.Action) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, tenantID+"/"+action.Name)
	return p.err
}

const sendEmailSchema = `{"type":"object","properties":{"recipient":{"type":"string"},"subject":{"type":"string"},"body":{"type":"string"}},"required":["recipient","subject","body"]}`

func registerRequest(name string) *models.CreateActionRequest {
	return &models.CreateActionRequest{
		Name:        name,
		Description: "Send an email to a specified recipient",
		WebhookURL:  "https://hooks.example.com/actions/" + name,
		JSONSchema:  json.RawMessage(sendEmailSchema),
	}
}

func setupActionService(t *testing.T, max int) (*ActionService, *stores.MemoryStore, *fakeProber) {
	t.Helper()
	store := stores.CreateMemoryStore()
	prober := &fakeProber{}
	svc := CreateActionService(store, prober, ActionServiceConfig{MaxActionsPerTenant: max}, nil)
	return svc, store, prober
}

func TestActionService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		svc, _, prober := setupActionService(t, 100)

		action, err := svc.Register(ctx, "t1", registerRequest("send_email"))
		require.NoError(t, err)
		assert.Equal(t, "send_email", action.Name)
		assert.NotZero(t, action.ID)
		assert.Equal(t, []string{"t1/send_email"}, prober.calls)

		got, err := svc.Get(ctx, "t1", "send_email")
		require.NoError(t, err)
		assert.JSONEq(t, sendEmailSchema, string(got.JSONSchema))
	})

	t.Run("duplicate leaves registry unchanged", func(t *testing.T) {
		svc, _, prober := setupActionService(t, 100)
		_, err := svc.Register(ctx, "t1", registerRequest("send_email"))
		require.NoError(t, err)

		second := registerRequest("send_email")
		second.Description = "other"
		_, err = svc.Register(ctx, "t1", second)
		assert.ErrorIs(t, err, utils.ErrActionAlreadyExists)
		assert.Equal(t, 409, utils.GetHTTPStatusFromError(err))
		assert.Len(t, prober.calls, 1, "duplicate is rejected before the test-call")

		actions, err := svc.List(ctx, "t1")
		require.NoError(t, err)
		require.Len(t, actions, 1)
		assert.Equal(t, "Send an email to a specified recipient", actions[0].Description)
	})

	t.Run("quota", func(t *testing.T) {
		svc, _, _ := setupActionService(t, 100)
		for i := 0; i < 100; i++ {
			_, err := svc.Register(ctx, "t1", registerRequest(fmt.Sprintf("action_%d", i)))
			require.NoError(t, err)
		}

		_, err := svc.Register(ctx, "t1", registerRequest("action_100"))
		assert.ErrorIs(t, err, utils.ErrQuotaExceeded)

		_, err = svc.Register(ctx, "t2", registerRequest("action_100"))
		assert.NoError(t, err, "quota is per tenant")
	})

	t.Run("failed probe persists nothing", func(t *testing.T) {
		svc, store, prober := setupActionService(t, 100)
		prober.err = utils.ErrUpstreamHTTPError.WithDetails("webhook returned HTTP 500")

		_, err := svc.Register(ctx, "t1", registerRequest("send_email"))
		require.Error(t, err)
		assert.ErrorIs(t, err, utils.ErrActionValidationFailed)
		assert.Equal(t, utils.KindActionValidationFailed, utils.AsAPIError(err).Kind)
		assert.Contains(t, err.Error(), "500")
		assert.Equal(t, 400, utils.GetHTTPStatusFromError(err))

		count, err := store.CountActions(ctx, "t1")
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("probe timeout", func(t *testing.T) {
		svc, _, prober := setupActionService(t, 100)
		prober.err = utils.ErrUpstreamTimeout.WithDetails("no response within 30s")

		_, err := svc.Register(ctx, "t1", registerRequest("send_email"))
		assert.ErrorIs(t, err, utils.ErrActionValidationFailed)
		assert.Contains(t, err.Error(), "30s")
	})

	t.Run("invalid input", func(t *testing.T) {
		tests := []struct {
			name   string
			mutate func(*models.CreateActionRequest)
		}{
			{"uppercase name", func(r *models.CreateActionRequest) { r.Name = "SendEmail" }},
			{"leading digit", func(r *models.CreateActionRequest) { r.Name = "1send" }},
			{"hyphen", func(r *models.CreateActionRequest) { r.Name = "send-email" }},
			{"empty name", func(r *models.CreateActionRequest) { r.Name = "" }},
			{"too long", func(r *models.CreateActionRequest) { r.Name = strings.Repeat("a", 65) }},
			{"http webhook", func(r *models.CreateActionRequest) { r.WebhookURL = "http://hooks.example.com/x" }},
			{"relative webhook", func(r *models.CreateActionRequest) { r.WebhookURL = "/x" }},
			{"non-object schema", func(r *models.CreateActionRequest) { r.JSONSchema = json.RawMessage(`{"type":"string"}`) }},
			{"missing schema", func(r *models.CreateActionRequest) { r.JSONSchema = nil }},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				svc, _, prober := setupActionService(t, 100)
				req := registerRequest("send_email")
				tt.mutate(req)

				_, err := svc.Register(ctx, "t1", req)
				assert.ErrorIs(t, err, utils.ErrActionValidationFailed)
				assert.Empty(t, prober.calls)
			})
		}
	})

	t.Run("http allowed when insecure", func(t *testing.T) {
		store := stores.CreateMemoryStore()
		svc := CreateActionService(store, &fakeProber{}, ActionServiceConfig{AllowInsecure: true}, nil)
		req := registerRequest("local_hook")
		req.WebhookURL = "http://localhost:5000/actions/local_hook"

		_, err := svc.Register(ctx, "t1", req)
		assert.NoError(t, err)
	})
}

func TestActionService_ListOrder(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupActionService(t, 100)

	names := []string{"send_email", "create_user", "get_weather"}
	for _, n := range names {
		_, err := svc.Register(ctx, "t1", registerRequest(n))
		require.NoError(t, err)
	}

	actions, err := svc.List(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, actions, 3)
	for i, n := range names {
		assert.Equal(t, n, actions[i].Name)
	}
}

func TestActionService_Update(t *testing.T) {
	ctx := context.Background()
	svc, _, prober := setupActionService(t, 100)
	created, err := svc.Register(ctx, "t1", registerRequest("send_email"))
	require.NoError(t, err)

	desc := "Updated"
	updated, err := svc.Update(ctx, "t1", "send_email", &models.UpdateActionRequest{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "Updated", updated.Description)
	assert.Equal(t, created.WebhookURL, updated.WebhookURL, "absent fields are kept")
	assert.JSONEq(t, sendEmailSchema, string(updated.JSONSchema))
	assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))
	assert.Len(t, prober.calls, 1, "update does not test-call")

	hook := "https://new.example.com/hook"
	updated, err = svc.Update(ctx, "t1", "send_email", &models.UpdateActionRequest{
		WebhookURL: &hook,
		JSONSchema: json.RawMessage(`{"type":"object"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, hook, updated.WebhookURL)
	assert.JSONEq(t, `{"type":"object"}`, string(updated.JSONSchema))
	assert.Equal(t, "Updated", updated.Description)

	insecure := "http://new.example.com/hook"
	_, err = svc.Update(ctx, "t1", "send_email", &models.UpdateActionRequest{WebhookURL: &insecure})
	assert.ErrorIs(t, err, utils.ErrActionValidationFailed)

	_, err = svc.Update(ctx, "t1", "missing", &models.UpdateActionRequest{Description: &desc})
	assert.ErrorIs(t, err, utils.ErrActionNotFound)
}

func TestActionService_Delete(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupActionService(t, 100)
	_, err := svc.Register(ctx, "t1", registerRequest("send_email"))
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, "t2", "send_email"), utils.ErrActionNotFound, "other tenants cannot delete")
	require.NoError(t, svc.Delete(ctx, "t1", "send_email"))

	for i := 0; i < 2; i++ {
		err := svc.Delete(ctx, "t1", "send_email")
		assert.ErrorIs(t, err, utils.ErrActionNotFound)
		assert.Equal(t, 404, utils.GetHTTPStatusFromError(err))
	}

	_, err = svc.Get(ctx, "t1", "send_email")
	assert.ErrorIs(t, err, utils.ErrActionNotFound)
}
