package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	APITokenPrefix    = "flw_"
	APITokenPrefixLen = 12
	hmacSecretBytes   = 32
)

// GenerateAPIToken returns a new plaintext API token of the form
// flw_<64 hex chars>.
func GenerateAPIToken() (string, error) {
	raw, err := randomHex(32)
	if err != nil {
		return "", err
	}
	return APITokenPrefix + raw, nil
}

func GenerateHMACSecret() (string, error) {
	return randomHex(hmacSecretBytes)
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// FingerprintAPIToken is the lookup key stored for a token.
func FingerprintAPIToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// HashAPIToken returns the bcrypt hash used to confirm a token found by
// fingerprint. bcrypt only reads 72 bytes, so the fingerprint is hashed
// rather than the longer plaintext.
func HashAPIToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(FingerprintAPIToken(token)), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash token: %w", err)
	}
	return string(hash), nil
}

func CompareAPIToken(hash, token string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(FingerprintAPIToken(token))) == nil
}

func APITokenDisplayPrefix(token string) string {
	if len(token) < APITokenPrefixLen {
		return token
	}
	return token[:APITokenPrefixLen]
}

func LooksLikeAPIToken(token string) bool {
	return strings.HasPrefix(token, APITokenPrefix) && len(token) == len(APITokenPrefix)+64
}
