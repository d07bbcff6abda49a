package services

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/youssefsiam38/flowent-gateway/models"
	"github.com/youssefsiam38/flowent-gateway/monitoring"
	"github.com/youssefsiam38/flowent-gateway/observability"
	"github.com/youssefsiam38/flowent-gateway/schema"
	"github.com/youssefsiam38/flowent-gateway/stores"
	"github.com/youssefsiam38/flowent-gateway/utils"
)

// Prober performs the registration test-call against an action's webhook.
type Prober interface {
	Probe(ctx context.Context, tenantID string, action *models.Action) error
}

type ActionServiceConfig struct {
	MaxActionsPerTenant int
	AllowInsecure       bool
}

type ActionService struct {
	store   stores.ActionRepository
	prober  Prober
	config  ActionServiceConfig
	metrics *monitoring.Metrics
	now     func() time.Time
}

func CreateActionService(store stores.ActionRepository, prober Prober, config ActionServiceConfig, metrics *monitoring.Metrics) *ActionService {
	if config.MaxActionsPerTenant <= 0 {
		config.MaxActionsPerTenant = models.MaxActionsPerTenant
	}
	return &ActionService{
		store:   store,
		prober:  prober,
		config:  config,
		metrics: metrics,
		now:     time.Now,
	}
}

// Register validates req, test-calls the webhook and only then stores the
// action. Nothing is persisted when any step fails.
func (s *ActionService) Register(ctx context.Context, tenantID string, req *models.CreateActionRequest) (action *models.Action, err error) {
	ctx, span := observability.StartSpan(ctx, "ActionService.Register",
		observability.TenantAttr(tenantID), observability.ActionAttr(req.Name))
	defer func() {
		s.metrics.RecordRegistration(registrationResult(err))
		observability.EndSpan(span, err)
	}()

	if err := validate.Struct(req); err != nil {
		return nil, utils.ErrActionValidationFailed.WithDetails(describeValidation(err))
	}
	if err := s.checkWebhookURL(req.WebhookURL); err != nil {
		return nil, err
	}
	if _, err := compileSchema(req.JSONSchema); err != nil {
		return nil, err
	}

	if _, err := s.store.GetAction(ctx, tenantID, req.Name); err == nil {
		return nil, utils.ErrActionAlreadyExists.WithDetailsf("action %q already exists", req.Name)
	} else if !errors.Is(err, stores.ErrNotFound) {
		return nil, err
	}
	count, err := s.store.CountActions(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if count >= s.config.MaxActionsPerTenant {
		return nil, utils.ErrQuotaExceeded.WithDetailsf("tenant already has %d actions", count)
	}

	action = &models.Action{
		TenantID:    tenantID,
		Name:        req.Name,
		Description: req.Description,
		WebhookURL:  req.WebhookURL,
		JSONSchema:  datatypes.JSON(req.JSONSchema),
	}

	if err := s.prober.Probe(ctx, tenantID, action); err != nil {
		utils.Warn(ctx, "Action test-call failed", map[string]interface{}{
			"action": req.Name,
			"error":  err.Error(),
		})
		return nil, probeFailure(err)
	}

	err = s.store.CreateAction(ctx, tenantID, action, s.config.MaxActionsPerTenant)
	switch {
	case errors.Is(err, stores.ErrDuplicate):
		return nil, utils.ErrActionAlreadyExists.WithDetailsf("action %q already exists", req.Name)
	case errors.Is(err, stores.ErrQuotaExceeded):
		return nil, utils.ErrQuotaExceeded.WithDetailsf("tenant already has %d actions", s.config.MaxActionsPerTenant)
	case err != nil:
		return nil, utils.WrapError(err, "failed to store action")
	}

	utils.Info(ctx, "Action registered", map[string]interface{}{"action": action.Name, "id": action.ID})
	return action, nil
}

func (s *ActionService) Get(ctx context.Context, tenantID, name string) (*models.Action, error) {
	action, err := s.store.GetAction(ctx, tenantID, name)
	if errors.Is(err, stores.ErrNotFound) {
		return nil, utils.ErrActionNotFound.WithDetailsf("action %q not found", name)
	}
	if err != nil {
		return nil, err
	}
	return action, nil
}

// List returns the tenant's actions in registration order.
func (s *ActionService) List(ctx context.Context, tenantID string) ([]*models.Action, error) {
	return s.store.ListActions(ctx, tenantID)
}

// Update merges the fields present in req. The webhook is not test-called
// again.
func (s *ActionService) Update(ctx context.Context, tenantID, name string, req *models.UpdateActionRequest) (*models.Action, error) {
	if err := validate.Struct(req); err != nil {
		return nil, utils.ErrActionValidationFailed.WithDetails(describeValidation(err))
	}

	action, err := s.Get(ctx, tenantID, name)
	if err != nil {
		return nil, err
	}

	if req.Description != nil {
		action.Description = *req.Description
	}
	if req.WebhookURL != nil {
		if err := s.checkWebhookURL(*req.WebhookURL); err != nil {
			return nil, err
		}
		action.WebhookURL = *req.WebhookURL
	}
	if len(req.JSONSchema) > 0 && string(req.JSONSchema) != "null" {
		if _, err := compileSchema(req.JSONSchema); err != nil {
			return nil, err
		}
		action.JSONSchema = datatypes.JSON(req.JSONSchema)
	}
	action.UpdatedAt = s.now().UTC()

	err = s.store.UpdateAction(ctx, tenantID, action)
	if errors.Is(err, stores.ErrNotFound) {
		return nil, utils.ErrActionNotFound.WithDetailsf("action %q not found", name)
	}
	if err != nil {
		return nil, utils.WrapError(err, "failed to update action")
	}

	utils.Info(ctx, "Action updated", map[string]interface{}{"action": name})
	return action, nil
}

func (s *ActionService) Delete(ctx context.Context, tenantID, name string) error {
	err := s.store.DeleteAction(ctx, tenantID, name)
	if errors.Is(err, stores.ErrNotFound) {
		return utils.ErrActionNotFound.WithDetailsf("action %q not found", name)
	}
	if err != nil {
		return err
	}

	utils.Info(ctx, "Action deleted", map[string]interface{}{"action": name})
	return nil
}

func (s *ActionService) checkWebhookURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return utils.ErrActionValidationFailed.WithDetails("webhook_url must be an absolute URL")
	}

	switch strings.ToLower(u.Scheme) {
	case "https":
		return nil
	case "http":
		if s.config.AllowInsecure {
			return nil
		}
	}
	return utils.ErrActionValidationFailed.WithDetails("webhook_url must use https")
}

func compileSchema(raw []byte) (*schema.Schema, error) {
	compiled, err := schema.Compile(raw)
	if err != nil {
		return nil, utils.ErrActionValidationFailed.WithDetailsf("json_schema: %v", err)
	}
	return compiled, nil
}

// probeFailure reports webhook-side failures of the test-call as
// ActionValidationFailed and passes anything else through.
func probeFailure(err error) error {
	apiErr := utils.AsAPIError(err)
	switch apiErr.Kind {
	case utils.KindUpstreamTimeout, utils.KindUpstreamHTTPError,
		utils.KindUpstreamMalformedResponse, utils.KindPayloadTooLarge,
		utils.KindCredentialNotFound:
		details := apiErr.Message
		if apiErr.Details != "" {
			details = apiErr.Details
		}
		return utils.ErrActionValidationFailed.WithDetailsf("webhook test-call failed: %s", details).Wrap(err)
	default:
		return err
	}
}

func registrationResult(err error) string {
	if err == nil {
		return "created"
	}
	return string(utils.AsAPIError(err).Kind)
}
