package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/youssefsiam38/flowent-gateway/config"
	"github.com/youssefsiam38/flowent-gateway/models"
)

func memoryApplication(t *testing.T) *application {
	t.Helper()
	t.Setenv("GATEWAY_DATABASE_DRIVER", "memory")
	t.Setenv("GATEWAY_ENVIRONMENT", "development")

	loaded, err := config.LoadConfig("")
	require.NoError(t, err)
	require.NoError(t, loaded.Validate())

	app, err := buildApplication(context.Background(), loaded)
	require.NoError(t, err)
	t.Cleanup(app.Close)
	return app
}

func TestBuildApplication_Memory(t *testing.T) {
	app := memoryApplication(t)
	ctx := context.Background()

	assert.Nil(t, app.db)
	assert.NotNil(t, app.local)
	assert.Error(t, app.requirePostgres())

	tenant, err := app.tenants.Create(ctx, &models.CreateTenantRequest{Name: "acme"})
	require.NoError(t, err)
	issued, err := app.credentials.CreateAPIToken(ctx, tenant.ID)
	require.NoError(t, err)

	router := app.router()

	body, _ := json.Marshal(models.TokenExchangeRequest{APIToken: issued.Plaintext})
	req := httptest.NewRequest(http.MethodPost, app.cfg.Server.PathPrefix+"/token/exchange", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var session models.TokenExchangeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))

	req = httptest.NewRequest(http.MethodGet, app.cfg.Server.PathPrefix+"/actions", nil)
	req.Header.Set("Authorization", "Bearer "+session.JWTToken)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBootstrapTenant(t *testing.T) {
	app := memoryApplication(t)
	ctx := context.Background()

	require.NoError(t, bootstrapTenant(ctx, app, "demo"))

	tenants, err := app.tenants.List(ctx)
	require.NoError(t, err)
	require.Len(t, tenants, 1)

	key, err := app.credentials.SigningKey(ctx, tenants[0].ID)
	require.NoError(t, err)
	assert.Len(t, key, 64)
}
