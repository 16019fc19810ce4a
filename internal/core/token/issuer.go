package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/authify/identity-api/internal/core/domain"
)

// Config holds the signing parameters for issued tokens.
type Config struct {
	Key          string
	Issuer       string
	Audience     string
	DurationDays int
}

// JWTIssuer signs HS256 bearer tokens carrying identity and role claims.
type JWTIssuer struct {
	cfg Config
}

func NewJWTIssuer(cfg Config) *JWTIssuer {
	if cfg.DurationDays <= 0 {
		cfg.DurationDays = 1
	}
	return &JWTIssuer{cfg: cfg}
}

// reservedClaims are set by the issuer itself and cannot be shadowed by
// extra claims attached to the user record.
var reservedClaims = map[string]struct{}{
	"sub": {}, "jti": {}, "email": {}, "uid": {}, "roles": {},
	"iss": {}, "aud": {}, "exp": {},
}

// IssueToken builds and signs a token for the user with the given role set.
// Every call generates a fresh jti; everything else is deterministic given
// the same user, roles and configuration.
func (i *JWTIssuer) IssueToken(user *domain.User, roles []string) (string, time.Time, error) {
	if roles == nil {
		roles = []string{}
	}
	expiresOn := time.Now().UTC().Add(time.Duration(i.cfg.DurationDays) * 24 * time.Hour)

	claims := jwt.MapClaims{
		"sub":   user.Username,
		"jti":   uuid.NewString(),
		"email": user.Email,
		"uid":   user.ID,
		"roles": roles,
		"iss":   i.cfg.Issuer,
		"aud":   i.cfg.Audience,
		"exp":   expiresOn.Unix(),
	}
	for _, c := range user.Claims {
		if _, taken := reservedClaims[c.Name]; taken {
			continue
		}
		claims[c.Name] = c.Value
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(i.cfg.Key))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresOn, nil
}
