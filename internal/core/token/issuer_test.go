package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/authify/identity-api/internal/core/domain"
)

func testIssuer(days int) *JWTIssuer {
	return NewJWTIssuer(Config{
		Key:          "unit-test-key",
		Issuer:       "identity-api",
		Audience:     "identity-api-clients",
		DurationDays: days,
	})
}

func testUser() *domain.User {
	return &domain.User{
		ID:       "64f1c0ffee",
		Email:    "alice@example.com",
		Username: "alice",
	}
}

func parse(t *testing.T, signed string) jwt.MapClaims {
	t.Helper()
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(signed, claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
				t.Fatalf("unexpected signing method: %s", token.Method.Alg())
			}
			return []byte("unit-test-key"), nil
		},
		jwt.WithIssuer("identity-api"),
		jwt.WithAudience("identity-api-clients"),
	)
	if err != nil || !parsed.Valid {
		t.Fatalf("token did not validate: %v", err)
	}
	return claims
}

func TestJWTIssuer_ClaimSet(t *testing.T) {
	signed, _, err := testIssuer(1).IssueToken(testUser(), []string{domain.RoleUser, domain.RoleAdmin})
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	claims := parse(t, signed)
	if claims["sub"] != "alice" {
		t.Fatalf("expected subject alice, got %v", claims["sub"])
	}
	if claims["email"] != "alice@example.com" {
		t.Fatalf("expected email claim, got %v", claims["email"])
	}
	if claims["uid"] != "64f1c0ffee" {
		t.Fatalf("expected uid claim, got %v", claims["uid"])
	}
	if claims["jti"] == "" || claims["jti"] == nil {
		t.Fatalf("expected a jti claim")
	}
	roles, ok := claims["roles"].([]any)
	if !ok || len(roles) != 2 || roles[0] != domain.RoleUser || roles[1] != domain.RoleAdmin {
		t.Fatalf("unexpected roles claim: %v", claims["roles"])
	}
}

func TestJWTIssuer_UniqueTokenID(t *testing.T) {
	issuer := testIssuer(1)
	user := testUser()

	first, _, err := issuer.IssueToken(user, nil)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	second, _, err := issuer.IssueToken(user, nil)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	if parse(t, first)["jti"] == parse(t, second)["jti"] {
		t.Fatalf("expected distinct jti per issuance")
	}
}

func TestJWTIssuer_Expiration(t *testing.T) {
	issuer := testIssuer(3)

	before := time.Now().UTC().Add(3 * 24 * time.Hour)
	_, expiresOn, err := issuer.IssueToken(testUser(), nil)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	after := time.Now().UTC().Add(3 * 24 * time.Hour)

	if expiresOn.Before(before) || expiresOn.After(after) {
		t.Fatalf("expiry %v outside [%v, %v]", expiresOn, before, after)
	}

	// Repeated issuance with the same configuration computes the same
	// lifetime, give or take the wall clock between calls.
	_, again, err := issuer.IssueToken(testUser(), nil)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if delta := again.Sub(expiresOn); delta < 0 || delta > time.Minute {
		t.Fatalf("lifetime not stable across issuance: %v", delta)
	}
}

func TestJWTIssuer_DefaultLifetime(t *testing.T) {
	issuer := NewJWTIssuer(Config{Key: "unit-test-key", Issuer: "identity-api", Audience: "identity-api-clients"})

	_, expiresOn, err := issuer.IssueToken(testUser(), nil)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	want := time.Now().UTC().Add(24 * time.Hour)
	if diff := expiresOn.Sub(want); diff < -time.Minute || diff > time.Minute {
		t.Fatalf("expected one-day default lifetime, got expiry %v", expiresOn)
	}
}

func TestJWTIssuer_ExtraClaimsPassThrough(t *testing.T) {
	user := testUser()
	user.Claims = []domain.Claim{
		{Name: "department", Value: "support"},
		{Name: "sub", Value: "mallory"}, // must not shadow the subject
	}

	signed, _, err := testIssuer(1).IssueToken(user, nil)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	claims := parse(t, signed)
	if claims["department"] != "support" {
		t.Fatalf("expected pass-through claim, got %v", claims["department"])
	}
	if claims["sub"] != "alice" {
		t.Fatalf("reserved claim overridden: %v", claims["sub"])
	}
}
