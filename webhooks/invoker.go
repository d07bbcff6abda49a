package webhooks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/youssefsiam38/flowent-gateway/models"
	"github.com/youssefsiam38/flowent-gateway/monitoring"
	"github.com/youssefsiam38/flowent-gateway/observability"
	"github.com/youssefsiam38/flowent-gateway/schema"
	"github.com/youssefsiam38/flowent-gateway/security"
	"github.com/youssefsiam38/flowent-gateway/utils"
)

const (
	DefaultTimeout          = 30 * time.Second
	DefaultMaxPayloadBytes  = 1 << 20
	DefaultMaxResponseBytes = 1 << 20

	SignatureHeader = "X-Flowent-Signature"
	TimestampHeader = "X-Flowent-Timestamp"
	userAgent       = "flowent-gateway/1.0"
)

type KeySource interface {
	SigningKey(ctx context.Context, tenantID string) ([]byte, error)
}

type ActionLookup interface {
	Get(ctx context.Context, tenantID, name string) (*models.Action, error)
}

// Result describes one webhook call. On failure Response.Error is set and
// Outcome names the terminal state.
type Result struct {
	Response   models.InvocationResponse
	Outcome    models.InvocationOutcome
	StatusCode int
	Duration   time.Duration
}

// Invoker signs and delivers invocation requests. It holds no per-call
// state and is safe for concurrent use. Calls are never retried.
type Invoker struct {
	actions          ActionLookup
	keys             KeySource
	client           *http.Client
	timeout          time.Duration
	maxPayloadBytes  int
	maxResponseBytes int64
	allowInsecure    bool
	metrics          *monitoring.Metrics
	now              func() time.Time
}

type Option func(*Invoker)

func WithHTTPClient(client *http.Client) Option {
	return func(i *Invoker) { i.client = client }
}

func WithTimeout(d time.Duration) Option {
	return func(i *Invoker) {
		if d > 0 {
			i.timeout = d
		}
	}
}

func WithLimits(maxPayload int, maxResponse int64) Option {
	return func(i *Invoker) {
		if maxPayload > 0 {
			i.maxPayloadBytes = maxPayload
		}
		if maxResponse > 0 {
			i.maxResponseBytes = maxResponse
		}
	}
}

// WithAllowInsecure permits http:// webhooks. Meant for local development.
func WithAllowInsecure(allow bool) Option {
	return func(i *Invoker) { i.allowInsecure = allow }
}

func WithMetrics(m *monitoring.Metrics) Option {
	return func(i *Invoker) { i.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(i *Invoker) { i.now = now }
}

func CreateInvoker(actions ActionLookup, keys KeySource, opts ...Option) *Invoker {
	i := &Invoker{
		actions:          actions,
		keys:             keys,
		timeout:          DefaultTimeout,
		maxPayloadBytes:  DefaultMaxPayloadBytes,
		maxResponseBytes: DefaultMaxResponseBytes,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.client == nil {
		i.client = &http.Client{
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}
	return i
}

// SetActions wires the action lookup after construction, for callers where
// the lookup itself depends on the invoker.
func (i *Invoker) SetActions(actions ActionLookup) {
	i.actions = actions
}

// Invoke runs a registered action. Parameters are checked against the
// action's schema before anything is sent.
func (i *Invoker) Invoke(ctx context.Context, tenantID, actionName string, params map[string]interface{}) (result *Result, err error) {
	ctx, span := observability.StartSpan(ctx, "Invoker.Invoke",
		observability.TenantAttr(tenantID), observability.ActionAttr(actionName))
	defer func() { observability.EndSpan(span, err) }()

	action, err := i.actions.Get(ctx, tenantID, actionName)
	if err != nil {
		return nil, err
	}

	compiled, err := schema.Compile(action.JSONSchema)
	if err != nil {
		return nil, utils.ErrInternal.Wrap(fmt.Errorf("stored schema for %q: %w", actionName, err))
	}
	if params == nil {
		params = map[string]interface{}{}
	}
	if err := compiled.Validate(params); err != nil {
		return nil, err
	}

	return i.send(ctx, "invoke", tenantID, action.WebhookURL, security.SignedFields{
		ActionName: action.Name,
		Parameters: params,
	})
}

// Probe sends the registration test-call: empty parameters with test set.
// Any outcome other than success is returned as an error.
func (i *Invoker) Probe(ctx context.Context, tenantID string, action *models.Action) (err error) {
	ctx, span := observability.StartSpan(ctx, "Invoker.Probe",
		observability.TenantAttr(tenantID), observability.ActionAttr(action.Name))
	defer func() { observability.EndSpan(span, err) }()

	test := true
	_, err = i.send(ctx, "probe", tenantID, action.WebhookURL, security.SignedFields{
		ActionName: action.Name,
		Parameters: map[string]interface{}{},
		Test:       &test,
	})
	return err
}

func (i *Invoker) send(ctx context.Context, kind, tenantID, webhookURL string, fields security.SignedFields) (*Result, error) {
	if err := i.checkURL(webhookURL); err != nil {
		return nil, err
	}

	key, err := i.keys.SigningKey(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	fields.Timestamp = i.now().Unix()
	payload, err := security.Canonicalize(fields)
	if err != nil {
		return nil, utils.ErrInvalidRequest.WithDetails("parameters are not JSON encodable").Wrap(err)
	}
	signature := security.Sign(payload, key)
	body := attachSignature(payload, signature)

	if len(body) > i.maxPayloadBytes {
		return nil, utils.ErrPayloadTooLarge.WithDetailsf("request body is %d bytes, limit is %d", len(body), i.maxPayloadBytes)
	}

	start := time.Now()
	result, err := i.deliver(ctx, webhookURL, body, signature, fields.Timestamp)
	result.Duration = time.Since(start)

	i.metrics.ObserveInvocation(kind, string(result.Outcome), result.Duration)
	logFields := map[string]interface{}{
		"action":      fields.ActionName,
		"kind":        kind,
		"outcome":     string(result.Outcome),
		"status":      result.StatusCode,
		"duration_ms": result.Duration.Milliseconds(),
	}
	if err != nil {
		logFields["error"] = err.Error()
		utils.Warn(ctx, "Webhook call failed", logFields)
	} else {
		utils.Info(ctx, "Webhook call completed", logFields)
	}
	return result, err
}

// attachSignature appends the signature field to canonical bytes, so the
// body on the wire is exactly the signed bytes plus the signature.
func attachSignature(payload []byte, signature string) []byte {
	body := make([]byte, 0, len(payload)+len(signature)+16)
	body = append(body, payload[:len(payload)-1]...)
	body = append(body, `,"signature":"`...)
	body = append(body, signature...)
	body = append(body, `"}`...)
	return body
}

func (i *Invoker) checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return utils.ErrInvalidRequest.WithDetails("webhook url is not absolute")
	}
	if strings.EqualFold(u.Scheme, "https") || (i.allowInsecure && strings.EqualFold(u.Scheme, "http")) {
		return nil
	}
	return utils.ErrInvalidRequest.WithDetails("webhook url must use https")
}

func (i *Invoker) deliver(ctx context.Context, webhookURL string, body []byte, signature string, timestamp int64) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return failed(models.OutcomeHTTPError, 0, "could not build request"), utils.ErrUpstreamHTTPError.Wrap(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set(SignatureHeader, signature)
	req.Header.Set(TimestampHeader, strconv.FormatInt(timestamp, 10))

	resp, err := i.client.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			msg := fmt.Sprintf("webhook did not respond within %s", i.timeout)
			return failed(models.OutcomeTimeout, 0, msg), utils.ErrUpstreamTimeout.WithDetails(msg).Wrap(err)
		}
		return failed(models.OutcomeHTTPError, 0, "webhook request failed"), utils.ErrUpstreamHTTPError.WithDetails("webhook request failed").Wrap(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, i.maxResponseBytes+1))
	if err != nil {
		if isTimeout(ctx, err) {
			msg := fmt.Sprintf("webhook did not respond within %s", i.timeout)
			return failed(models.OutcomeTimeout, resp.StatusCode, msg), utils.ErrUpstreamTimeout.WithDetails(msg).Wrap(err)
		}
		return failed(models.OutcomeMalformedResponse, resp.StatusCode, "could not read webhook response"),
			utils.ErrUpstreamMalformedResponse.WithDetails("could not read webhook response").Wrap(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := fmt.Sprintf("webhook returned HTTP %d", resp.StatusCode)
		result := failed(models.OutcomeHTTPError, resp.StatusCode, msg)
		if parsed, ok := parseResponse(raw, i.maxResponseBytes); ok {
			result.Response.Result = parsed.Result
			if parsed.Error != "" {
				result.Response.Error = parsed.Error
			}
		}
		return result, utils.ErrUpstreamHTTPError.WithDetails(msg)
	}

	if int64(len(raw)) > i.maxResponseBytes {
		msg := fmt.Sprintf("webhook response exceeds %d bytes", i.maxResponseBytes)
		return failed(models.OutcomeMalformedResponse, resp.StatusCode, msg), utils.ErrUpstreamMalformedResponse.WithDetails(msg)
	}
	parsed, ok := parseResponse(raw, i.maxResponseBytes)
	if !ok {
		msg := `webhook response must be a JSON object with string "result" and "error"`
		return failed(models.OutcomeMalformedResponse, resp.StatusCode, msg), utils.ErrUpstreamMalformedResponse.WithDetails(msg)
	}

	return &Result{
		Response:   parsed,
		Outcome:    models.OutcomeSuccess,
		StatusCode: resp.StatusCode,
	}, nil
}

func failed(outcome models.InvocationOutcome, status int, msg string) *Result {
	return &Result{
		Response:   models.InvocationResponse{Error: msg},
		Outcome:    outcome,
		StatusCode: status,
	}
}

func parseResponse(raw []byte, limit int64) (models.InvocationResponse, bool) {
	if int64(len(raw)) > limit || !gjson.ValidBytes(raw) {
		return models.InvocationResponse{}, false
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return models.InvocationResponse{}, false
	}
	result, errField := doc.Get("result"), doc.Get("error")
	if result.Type != gjson.String || errField.Type != gjson.String {
		return models.InvocationResponse{}, false
	}
	return models.InvocationResponse{Result: result.String(), Error: errField.String()}, true
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
