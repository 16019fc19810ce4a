package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// TokenConfig holds the parameters bearer tokens are validated against.
// They mirror the issuer's signing configuration.
type TokenConfig struct {
	Key      string
	Issuer   string
	Audience string
}

// Auth validates the JWT (signature, expiry, issuer, audience) and injects
// identity claims into the request context: "username", "uid", "email" and
// "roles" ([]string).
func Auth(cfg TokenConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			claims := jwt.MapClaims{}
			tkn, err := jwt.ParseWithClaims(parts[1], claims,
				func(token *jwt.Token) (interface{}, error) {
					if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
						return nil, jwt.ErrTokenSignatureInvalid
					}
					return []byte(cfg.Key), nil
				},
				jwt.WithIssuer(cfg.Issuer),
				jwt.WithAudience(cfg.Audience),
				jwt.WithExpirationRequired(),
			)
			if err != nil || !tkn.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set("username", claims["sub"])
			c.Set("uid", claims["uid"])
			c.Set("email", claims["email"])
			c.Set("roles", rolesClaim(claims))

			return next(c)
		}
	}
}

// rolesClaim normalises the roles claim, which arrives as []any after JSON
// decoding, into a []string.
func rolesClaim(claims jwt.MapClaims) []string {
	raw, ok := claims["roles"].([]any)
	if !ok {
		return nil
	}
	roles := make([]string, 0, len(raw))
	for _, r := range raw {
		if s, ok := r.(string); ok {
			roles = append(roles, s)
		}
	}
	return roles
}
