package security

import (
	"regexp"
	"testing"
)

var apiTokenPattern = regexp.MustCompile(`^flw_[0-9a-f]{64}$`)

func TestGenerateAPIToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		token, err := GenerateAPIToken()
		if err != nil {
			t.Fatalf("GenerateAPIToken() error = %v", err)
		}
		if !apiTokenPattern.MatchString(token) {
			t.Fatalf("GenerateAPIToken() = %q, bad format", token)
		}
		if !LooksLikeAPIToken(token) {
			t.Errorf("LooksLikeAPIToken(%q) = false", token)
		}
		if seen[token] {
			t.Fatalf("GenerateAPIToken() repeated %q", token)
		}
		seen[token] = true
	}
}

func TestHashAPIToken(t *testing.T) {
	token, err := GenerateAPIToken()
	if err != nil {
		t.Fatal(err)
	}
	hash, err := HashAPIToken(token)
	if err != nil {
		t.Fatalf("HashAPIToken() error = %v", err)
	}

	if hash == token {
		t.Error("hash must not equal the plaintext")
	}
	if !CompareAPIToken(hash, token) {
		t.Error("CompareAPIToken() rejected the matching token")
	}
	other, _ := GenerateAPIToken()
	if CompareAPIToken(hash, other) {
		t.Error("CompareAPIToken() accepted a different token")
	}
	if FingerprintAPIToken(token) != FingerprintAPIToken(token) {
		t.Error("FingerprintAPIToken() is not deterministic")
	}
	if got := APITokenDisplayPrefix(token); got != token[:12] {
		t.Errorf("APITokenDisplayPrefix() = %q", got)
	}
}

func TestGenerateHMACSecret(t *testing.T) {
	a, err := GenerateHMACSecret()
	if err != nil {
		t.Fatal(err)
	}
	b, _ := GenerateHMACSecret()
	if len(a) != 64 || a == b {
		t.Errorf("GenerateHMACSecret() = %q, %q", a, b)
	}
}
