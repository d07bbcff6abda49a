package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/youssefsiam38/flowent-gateway/monitoring"
	"github.com/youssefsiam38/flowent-gateway/security"
	"github.com/youssefsiam38/flowent-gateway/utils"
)

type TokenValidator interface {
	Validate(token string) (string, error)
}

type AuthMiddleware struct {
	tokens      TokenValidator
	rateLimiter security.TenantRateLimiter
	metrics     *monitoring.Metrics
}

func CreateAuthMiddleware(tokens TokenValidator, rateLimiter security.TenantRateLimiter, metrics *monitoring.Metrics) *AuthMiddleware {
	return &AuthMiddleware{
		tokens:      tokens,
		rateLimiter: rateLimiter,
		metrics:     metrics,
	}
}

// JWTMiddleware resolves the bearer session token to a tenant and stores
// the tenant id on the request context. Every token problem is a 401.
func (am *AuthMiddleware) JWTMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeErrorResponse(w, utils.ErrInvalidToken.WithDetails("authorization header required"))
			return
		}

		scheme, token, found := strings.Cut(authHeader, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			writeErrorResponse(w, utils.ErrInvalidToken.WithDetails("invalid authorization format"))
			return
		}

		tenantID, err := am.tokens.Validate(strings.TrimSpace(token))
		if err != nil {
			writeErrorResponse(w, utils.AsAPIError(err))
			return
		}

		next.ServeHTTP(w, r.WithContext(utils.WithTenantID(r.Context(), tenantID)))
	})
}

// RateLimitMiddleware applies the per-tenant request budget. It must run
// after JWTMiddleware. Limiter backend failures let the request through.
func (am *AuthMiddleware) RateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenantID := utils.GetTenantID(r.Context())
		if tenantID == "" || am.rateLimiter == nil {
			next.ServeHTTP(w, r)
			return
		}

		allowed, err := am.rateLimiter.Allow(r.Context(), tenantID)
		if err != nil {
			utils.LogError(r.Context(), err, "Rate limiter unavailable", nil)
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			am.metrics.RecordRateLimited()
			utils.Warn(r.Context(), "Rate limit exceeded", map[string]interface{}{"path": r.URL.Path})
			writeErrorResponse(w, utils.ErrRateLimitExceeded)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func HeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cache-Control", "no-store")

		next.ServeHTTP(w, r)
	})
}

type errorEnvelope struct {
	Error *utils.APIError `json:"error"`
}

func writeErrorResponse(w http.ResponseWriter, apiErr *utils.APIError) {
	w.Header().Set("Content-Type", "application/json")
	if apiErr.Kind == utils.KindInvalidToken || apiErr.Kind == utils.KindExpiredToken {
		w.Header().Set("WWW-Authenticate", `Bearer realm="flowent"`)
	}
	w.WriteHeader(apiErr.Code)
	json.NewEncoder(w).Encode(errorEnvelope{Error: apiErr})
}
