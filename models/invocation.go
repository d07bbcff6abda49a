package models

// InvocationRequest is the body POSTed to a webhook. Signature covers every
// other field; Test is only present on registration test-calls.
type InvocationRequest struct {
	ActionName string                 `json:"action_name"`
	Parameters map[string]interface{} `json:"parameters"`
	Timestamp  int64                  `json:"timestamp"`
	Test       *bool                  `json:"test,omitempty"`
	Signature  string                 `json:"signature"`
}

type InvocationResponse struct {
	Result string `json:"result"`
	Error  string `json:"error"`
}

type InvocationOutcome string

const (
	OutcomeSuccess           InvocationOutcome = "success"
	OutcomeTimeout           InvocationOutcome = "timeout"
	OutcomeHTTPError         InvocationOutcome = "http_error"
	OutcomeMalformedResponse InvocationOutcome = "malformed_response"
)

type InvokeActionRequest struct {
	Parameters map[string]interface{} `json:"parameters"`
}

type InvokeActionResponse struct {
	InvocationResponse
	Outcome    InvocationOutcome `json:"outcome"`
	StatusCode int               `json:"status_code,omitempty"`
	DurationMS int64             `json:"duration_ms"`
}
