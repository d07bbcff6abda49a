package services

import (
	"context"

	"github.com/youssefsiam38/flowent-gateway/models"
	"github.com/youssefsiam38/flowent-gateway/monitoring"
	"github.com/youssefsiam38/flowent-gateway/security"
	"github.com/youssefsiam38/flowent-gateway/utils"
)

type APITokenLookup interface {
	LookupAPIToken(ctx context.Context, plaintext string) (string, error)
}

// TokenService exchanges long-lived API tokens for 24h session tokens.
type TokenService struct {
	tokens  APITokenLookup
	jwt     *security.JWTManager
	metrics *monitoring.Metrics
}

func CreateTokenService(tokens APITokenLookup, jwt *security.JWTManager, metrics *monitoring.Metrics) *TokenService {
	return &TokenService{tokens: tokens, jwt: jwt, metrics: metrics}
}

// Exchange fails with utils.ErrInvalidToken for unknown and revoked tokens
// alike.
func (s *TokenService) Exchange(ctx context.Context, apiToken string) (*models.SessionToken, error) {
	tenantID, err := s.tokens.LookupAPIToken(ctx, apiToken)
	if err != nil {
		if utils.IsKind(err, utils.KindCredentialNotFound) || utils.IsKind(err, utils.KindCredentialRevoked) {
			s.metrics.RecordTokenExchange("rejected")
			utils.Warn(ctx, "Token exchange rejected", map[string]interface{}{"reason": string(utils.AsAPIError(err).Kind)})
			return nil, utils.ErrInvalidToken.Wrap(err)
		}
		s.metrics.RecordTokenExchange("error")
		return nil, err
	}

	signed, claims, err := s.jwt.GenerateToken(tenantID)
	if err != nil {
		s.metrics.RecordTokenExchange("error")
		return nil, utils.ErrInternal.Wrap(err)
	}

	s.metrics.RecordTokenExchange("issued")
	utils.Info(utils.WithTenantID(ctx, tenantID), "Session token issued", map[string]interface{}{"jti": claims.ID})
	return &models.SessionToken{
		Token:     signed,
		TenantID:  tenantID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Validate returns the tenant a session token was issued to.
func (s *TokenService) Validate(token string) (string, error) {
	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		return "", err
	}
	return claims.TenantID, nil
}
