package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/authify/identity-api/internal/api/metrics"
	"github.com/authify/identity-api/internal/core/ports"
	"github.com/authify/identity-api/internal/core/service"
)

// LoginThrottle guards the login endpoint against credential stuffing.
// Implemented by the Redis-backed limiter; a nil throttle disables the check.
type LoginThrottle interface {
	Blocked(ctx context.Context, email string) (bool, error)
	RecordFailure(ctx context.Context, email string) error
	Clear(ctx context.Context, email string) error
}

type AuthHandler struct {
	authService ports.AuthService
	throttle    LoginThrottle
	log         zerolog.Logger
}

func NewAuthHandler(authService ports.AuthService, throttle LoginThrottle, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, throttle: throttle, log: log}
}

type registerRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Username  string `json:"username" validate:"required"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Password  string `json:"password" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type roleGrantRequest struct {
	UserID   string `json:"user_id" validate:"required"`
	RoleName string `json:"role_name" validate:"required"`
}

// Register creates a user account and returns a signed bearer token.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Registration details"
// @Success      200   {object}  domain.AuthResult
// @Failure      400   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	result, err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		Email:     req.Email,
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		return err
	}

	if !result.IsAuthenticated {
		metrics.RegistrationsTotal.WithLabelValues("failure").Inc()
		return c.JSON(http.StatusBadRequest, map[string]string{"error": result.Message})
	}

	metrics.RegistrationsTotal.WithLabelValues("success").Inc()
	metrics.TokensIssuedTotal.WithLabelValues("register").Inc()
	return c.JSON(http.StatusOK, result)
}

// Login verifies credentials and returns a signed bearer token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  domain.AuthResult
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      429   {object}  map[string]string
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	ctx := c.Request().Context()

	if h.throttle != nil {
		blocked, err := h.throttle.Blocked(ctx, req.Email)
		if err != nil {
			// Limiter outage must not lock everyone out.
			h.log.Warn().Err(err).Msg("login limiter unavailable, skipping check")
		} else if blocked {
			metrics.LoginsThrottledTotal.Inc()
			return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "too many failed login attempts"})
		}
	}

	result, err := h.authService.Login(ctx, ports.LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		return err
	}

	if !result.IsAuthenticated {
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		if h.throttle != nil {
			if err := h.throttle.RecordFailure(ctx, req.Email); err != nil {
				h.log.Warn().Err(err).Msg("failed to record login failure")
			}
		}
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": result.Message})
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	metrics.TokensIssuedTotal.WithLabelValues("login").Inc()
	if h.throttle != nil {
		if err := h.throttle.Clear(ctx, req.Email); err != nil {
			h.log.Warn().Err(err).Msg("failed to clear login failures")
		}
	}
	return c.JSON(http.StatusOK, result)
}

// AddUserRole grants a role to an existing user. Admin only.
//
// @Summary      Grant a role to a user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      roleGrantRequest  true  "Grant target"
// @Success      200   "granted"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Security     BearerAuth
// @Router       /auth/roles [post]
func (h *AuthHandler) AddUserRole(c echo.Context) error {
	var req roleGrantRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	err := h.authService.AddUserRole(c.Request().Context(), ports.RoleGrantInput{
		UserID:   req.UserID,
		RoleName: req.RoleName,
	})
	msg, recovered := service.GrantStatus(err)
	if !recovered {
		metrics.RoleGrantsTotal.WithLabelValues("error").Inc()
		return err
	}
	if msg != "" {
		metrics.RoleGrantsTotal.WithLabelValues(grantFailureLabel(msg)).Inc()
		return c.JSON(http.StatusBadRequest, map[string]string{"error": msg})
	}

	metrics.RoleGrantsTotal.WithLabelValues("success").Inc()
	h.log.Info().
		Str("actor", ctxActor(c)).
		Str("user_id", req.UserID).
		Str("role", req.RoleName).
		Msg("role grant applied")
	return c.NoContent(http.StatusOK)
}

func grantFailureLabel(msg string) string {
	switch {
	case msg == service.MsgUnknownUserOrRole:
		return "invalid"
	case strings.HasPrefix(msg, "User Already In role"):
		return "redundant"
	default:
		return "rejected"
	}
}
