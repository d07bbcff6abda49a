// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/youssefsiam38/flowent-gateway/models"
	"github.com/youssefsiam38/flowent-gateway/security"
)

const SendEmailSchema = `{"type":"object","properties":{"recipient":{"type":"string"},"subject":{"type":"string"},"body":{"type":"string"}},"required":["recipient","subject","body"]}`

func SendEmailParams() map[string]interface{} {
	return map[string]interface{}{
		"recipient": "user@example.com",
		"subject":   "Welcome",
		"body":      "Hello from Flowent",
	}
}

func MockCreateActionRequest(name, webhookURL string) *models.CreateActionRequest {
	return &models.CreateActionRequest{
		Name:        name,
		Description: "Send an email to a specified recipient",
		WebhookURL:  webhookURL,
		JSONSchema:  json.RawMessage(SendEmailSchema),
	}
}

// SignedInvocation encodes req as the gateway would send it, signed with key.
func SignedInvocation(t testing.TB, key []byte, req models.InvocationRequest) []byte {
	t.Helper()
	payload, err := security.Canonicalize(security.SignedFieldsOf(&req))
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	req.Signature = security.Sign(payload, key)

	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return body
}

func FixedClock(unix int64) func() time.Time {
	return func() time.Time { return time.Unix(unix, 0) }
}

func MockContextWithTimeout(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}
