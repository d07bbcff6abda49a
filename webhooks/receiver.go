package webhooks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/youssefsiam38/flowent-gateway/models"
	"github.com/youssefsiam38/flowent-gateway/security"
	"github.com/youssefsiam38/flowent-gateway/utils"
)

// HandlerFunc implements one action on the receiving side. The returned
// string becomes the response's result field.
type HandlerFunc func(ctx context.Context, params map[string]interface{}) (string, error)

// Receiver is a reference action server. It checks each request's signature
// and timestamp before dispatching to the handler registered for the action.
type Receiver struct {
	mu       sync.RWMutex
	key      []byte
	handlers map[string]HandlerFunc
	window   time.Duration
	maxBody  int64
	now      func() time.Time
}

func CreateReceiver(key []byte) *Receiver {
	return &Receiver{
		key:      key,
		handlers: make(map[string]HandlerFunc),
		window:   security.ReplayWindow,
		maxBody:  DefaultMaxPayloadBytes,
		now:      time.Now,
	}
}

func (r *Receiver) Handle(actionName string, fn HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[actionName] = fn
}

func (r *Receiver) Handler(actionName string) (HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.handlers[actionName]
	return fn, ok
}

// SetKey swaps the verification key after the tenant rotates it.
func (r *Receiver) SetKey(key []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.key = append([]byte(nil), key...)
}

func (r *Receiver) SetClock(now func() time.Time) {
	r.now = now
}

func (r *Receiver) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		writeReceiverResponse(w, http.StatusMethodNotAllowed, "", "method not allowed")
		return
	}

	raw, err := io.ReadAll(io.LimitReader(req.Body, r.maxBody+1))
	if err != nil || int64(len(raw)) > r.maxBody {
		writeReceiverResponse(w, http.StatusRequestEntityTooLarge, "", "request body too large")
		return
	}

	var inv models.InvocationRequest
	if err := json.Unmarshal(raw, &inv); err != nil {
		writeReceiverResponse(w, http.StatusBadRequest, "", "invalid JSON body")
		return
	}

	r.mu.RLock()
	key := r.key
	handler, ok := r.handlers[inv.ActionName]
	r.mu.RUnlock()

	if err := security.VerifyRequest(&inv, key, r.now(), r.window); err != nil {
		msg := "invalid signature"
		if errors.Is(err, utils.ErrReplayWindowExceeded) {
			msg = "request timestamp outside allowed window"
		}
		utils.Warn(req.Context(), "Rejected webhook request", map[string]interface{}{
			"action": inv.ActionName,
			"reason": msg,
		})
		writeReceiverResponse(w, http.StatusUnauthorized, "", msg)
		return
	}

	if inv.Test != nil && *inv.Test {
		writeReceiverResponse(w, http.StatusOK, fmt.Sprintf("Test successful for action: %s", inv.ActionName), "")
		return
	}

	if !ok {
		writeReceiverResponse(w, http.StatusNotFound, "", fmt.Sprintf("unknown action: %s", inv.ActionName))
		return
	}

	result, err := handler(req.Context(), inv.Parameters)
	if err != nil {
		writeReceiverResponse(w, http.StatusInternalServerError, "", err.Error())
		return
	}
	writeReceiverResponse(w, http.StatusOK, result, "")
}

func writeReceiverResponse(w http.ResponseWriter, status int, result, errMsg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(models.InvocationResponse{Result: result, Error: errMsg})
}
