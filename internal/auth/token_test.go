package auth

import (
	"strings"
	"testing"
	"time"
)

func newTestTokens() *TokenService {
	return NewTokenService([]byte("test-secret-key-32bytes-long!!"), 15*time.Minute, 7*24*time.Hour)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	tokens := newTestTokens()
	user := &User{ID: "u1", Username: "runner", Role: RoleAthlete}

	signed, err := tokens.IssueAccessToken(user)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	claims, err := tokens.ValidateAccessToken(signed)
	if err != nil {
		t.Fatalf("ValidateAccessToken: %v", err)
	}
	if claims.UserID != "u1" || claims.Username != "runner" || claims.Role != "athlete" {
		t.Errorf("claims = %+v", claims)
	}
	if claims.Issuer != "readyrun" {
		t.Errorf("issuer = %q, want readyrun", claims.Issuer)
	}
}

func TestValidateAccessToken_WrongSecret(t *testing.T) {
	tokens := newTestTokens()
	other := NewTokenService([]byte("a-completely-different-secret!"), 15*time.Minute, time.Hour)

	signed, err := tokens.IssueAccessToken(&User{ID: "u1", Username: "runner", Role: RoleAdmin})
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	if _, err := other.ValidateAccessToken(signed); err == nil {
		t.Error("token signed with another secret must not validate")
	}
}

func TestValidateAccessToken_Expired(t *testing.T) {
	tokens := NewTokenService([]byte("test-secret-key-32bytes-long!!"), -time.Minute, time.Hour)

	signed, err := tokens.IssueAccessToken(&User{ID: "u1", Username: "runner", Role: RoleAdmin})
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	if _, err := tokens.ValidateAccessToken(signed); err == nil {
		t.Error("expired token must not validate")
	}
}

func TestValidateAccessToken_Garbage(t *testing.T) {
	tokens := newTestTokens()
	if _, err := tokens.ValidateAccessToken("not.a.jwt"); err == nil {
		t.Error("garbage token must not validate")
	}
}

func TestGenerateRefreshToken(t *testing.T) {
	tokens := newTestTokens()

	raw, hash, expiresAt, err := tokens.GenerateRefreshToken()
	if err != nil {
		t.Fatalf("GenerateRefreshToken: %v", err)
	}
	if len(raw) != 64 {
		t.Errorf("raw token length = %d, want 64 hex chars", len(raw))
	}
	if hash != HashToken(raw) {
		t.Error("returned hash does not match HashToken(raw)")
	}
	if strings.Contains(raw, hash) || raw == hash {
		t.Error("raw token and stored hash must differ")
	}
	if time.Until(expiresAt) <= 0 {
		t.Error("refresh token expires in the past")
	}

	// Tokens must not repeat.
	raw2, _, _, err := tokens.GenerateRefreshToken()
	if err != nil {
		t.Fatalf("second GenerateRefreshToken: %v", err)
	}
	if raw == raw2 {
		t.Error("two generated refresh tokens are identical")
	}
}
