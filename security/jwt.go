package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/youssefsiam38/flowent-gateway/utils"
)

const SessionTTL = 24 * time.Hour

type JWTManager struct {
	secretKey []byte
	issuer    string
	audience  string
	now       func() time.Time
}

type Claims struct {
	TenantID string `json:"tenant_id"`
	jwt.RegisteredClaims
}

func CreateJWTManager(secretKey, issuer, audience string) *JWTManager {
	return &JWTManager{
		secretKey: []byte(secretKey),
		issuer:    issuer,
		audience:  audience,
		now:       time.Now,
	}
}

// GenerateToken issues a session token for tenantID. Expiry is exactly
// SessionTTL after the issue time; both are whole seconds.
func (j *JWTManager) GenerateToken(tenantID string) (string, *Claims, error) {
	if tenantID == "" {
		return "", nil, fmt.Errorf("tenant id is required")
	}

	issuedAt := j.now().UTC().Truncate(time.Second)
	claims := &Claims{
		TenantID: tenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   tenantID,
			Issuer:    j.issuer,
			Audience:  jwt.ClaimStrings{j.audience},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(SessionTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(j.secretKey)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, claims, nil
}

// ValidateToken returns the claims of a token issued by this manager.
// Expired tokens yield utils.ErrExpiredToken, anything else wrong yields
// utils.ErrInvalidToken.
func (j *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	claims := &Claims{}
	_, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return j.secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, utils.ErrExpiredToken.Wrap(err)
		}
		return nil, utils.ErrInvalidToken.Wrap(err)
	}

	if !claims.VerifyIssuer(j.issuer, true) || !claims.VerifyAudience(j.audience, true) {
		return nil, utils.ErrInvalidToken.WithDetails("unexpected issuer or audience")
	}
	if claims.TenantID == "" {
		return nil, utils.ErrInvalidToken.WithDetails("missing tenant")
	}
	return claims, nil
}
