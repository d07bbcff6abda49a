package api

import (
	"net/http"
	"strings"

	"github.com/youssefsiam38/flowent-gateway/models"
	"github.com/youssefsiam38/flowent-gateway/services"
	"github.com/youssefsiam38/flowent-gateway/utils"
)

type TokenHandler struct {
	tokenService *services.TokenService
}

func CreateTokenHandler(tokenService *services.TokenService) *TokenHandler {
	return &TokenHandler{tokenService: tokenService}
}

// HandleExchange trades an API token for a 24h bearer session token.
func (h *TokenHandler) HandleExchange(w http.ResponseWriter, r *http.Request) {
	var req models.TokenExchangeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.APIToken) == "" {
		writeError(w, r, utils.ErrInvalidRequest.WithDetails("api_token is required"))
		return
	}

	session, err := h.tokenService.Exchange(r.Context(), req.APIToken)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.TokenExchangeResponse{
		JWTToken:  session.Token,
		TokenType: "Bearer",
		ExpiresIn: int64(session.ExpiresAt.Sub(session.IssuedAt).Seconds()),
	})
}
