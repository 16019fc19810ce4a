package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/authify/identity-api/internal/core/domain"
	"github.com/authify/identity-api/internal/core/ports"
	"github.com/authify/identity-api/internal/core/service"
)

type stubAuthService struct {
	registerFn func(ctx context.Context, in ports.RegisterInput) (*domain.AuthResult, error)
	loginFn    func(ctx context.Context, in ports.LoginInput) (*domain.AuthResult, error)
	grantFn    func(ctx context.Context, in ports.RoleGrantInput) error
}

func (s *stubAuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.AuthResult, error) {
	return s.registerFn(ctx, in)
}

func (s *stubAuthService) Login(ctx context.Context, in ports.LoginInput) (*domain.AuthResult, error) {
	return s.loginFn(ctx, in)
}

func (s *stubAuthService) AddUserRole(ctx context.Context, in ports.RoleGrantInput) error {
	return s.grantFn(ctx, in)
}

type stubThrottle struct {
	blocked  bool
	failures []string
	cleared  []string
}

func (s *stubThrottle) Blocked(_ context.Context, _ string) (bool, error) {
	return s.blocked, nil
}

func (s *stubThrottle) RecordFailure(_ context.Context, email string) error {
	s.failures = append(s.failures, email)
	return nil
}

func (s *stubThrottle) Clear(_ context.Context, email string) error {
	s.cleared = append(s.cleared, email)
	return nil
}

func newTestContext(t *testing.T, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func authenticated(username string) *domain.AuthResult {
	return &domain.AuthResult{
		Email:           username + "@example.com",
		Username:        username,
		FirstName:       "Alice",
		LastName:        "Anders",
		IsAuthenticated: true,
		Roles:           []string{domain.RoleUser},
		Token:           "signed-token",
		ExpiresOn:       time.Now().UTC().Add(24 * time.Hour),
	}
}

func TestAuthHandler_Register_Success(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(_ context.Context, in ports.RegisterInput) (*domain.AuthResult, error) {
			if in.Username != "alice" || in.Email != "alice@example.com" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return authenticated("alice"), nil
		},
	}
	h := NewAuthHandler(stub, &stubThrottle{}, zerolog.Nop())

	c, rec := newTestContext(t, "/auth/register",
		`{"email":"alice@example.com","username":"alice","first_name":"Alice","last_name":"Anders","password":"s3cret"}`)

	if err := h.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["is_authenticated"] != true || resp["token"] != "signed-token" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
	if _, present := resp["message"]; present {
		t.Fatalf("message must be omitted on success: %+v", resp)
	}
}

func TestAuthHandler_Register_Duplicate(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(_ context.Context, _ ports.RegisterInput) (*domain.AuthResult, error) {
			return domain.AuthFailure(service.MsgDuplicateEmail), nil
		},
	}
	h := NewAuthHandler(stub, &stubThrottle{}, zerolog.Nop())

	c, rec := newTestContext(t, "/auth/register",
		`{"email":"alice@example.com","username":"alice","first_name":"Alice","last_name":"Anders","password":"s3cret"}`)

	_ = h.Register(c)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), service.MsgDuplicateEmail) {
		t.Fatalf("expected duplicate message in body: %s", rec.Body.String())
	}
}

func TestAuthHandler_Register_InvalidPayload(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(_ context.Context, _ ports.RegisterInput) (*domain.AuthResult, error) {
			t.Fatalf("service must not be called")
			return nil, nil
		},
	}
	h := NewAuthHandler(stub, &stubThrottle{}, zerolog.Nop())

	c, rec := newTestContext(t, "/auth/register", "not-json")
	_ = h.Register(c)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAuthHandler_Register_MissingFields(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(_ context.Context, _ ports.RegisterInput) (*domain.AuthResult, error) {
			t.Fatalf("service must not be called")
			return nil, nil
		},
	}
	h := NewAuthHandler(stub, &stubThrottle{}, zerolog.Nop())

	c, rec := newTestContext(t, "/auth/register", `{"email":"not-an-email"}`)
	_ = h.Register(c)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	throttle := &stubThrottle{}
	stub := &stubAuthService{
		loginFn: func(_ context.Context, in ports.LoginInput) (*domain.AuthResult, error) {
			if in.Email != "alice@example.com" || in.Password != "s3cret" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return authenticated("alice"), nil
		},
	}
	h := NewAuthHandler(stub, throttle, zerolog.Nop())

	c, rec := newTestContext(t, "/auth/login", `{"email":"alice@example.com","password":"s3cret"}`)

	if err := h.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(throttle.cleared) != 1 || throttle.cleared[0] != "alice@example.com" {
		t.Fatalf("expected failure counter cleared, got %v", throttle.cleared)
	}
}

func TestAuthHandler_Login_Failure(t *testing.T) {
	throttle := &stubThrottle{}
	stub := &stubAuthService{
		loginFn: func(_ context.Context, _ ports.LoginInput) (*domain.AuthResult, error) {
			return domain.AuthFailure(service.MsgBadCredentials), nil
		},
	}
	h := NewAuthHandler(stub, throttle, zerolog.Nop())

	c, rec := newTestContext(t, "/auth/login", `{"email":"alice@example.com","password":"wrong"}`)
	_ = h.Login(c)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), service.MsgBadCredentials) {
		t.Fatalf("expected credentials message, got %s", rec.Body.String())
	}
	if len(throttle.failures) != 1 {
		t.Fatalf("expected one recorded failure, got %v", throttle.failures)
	}
}

func TestAuthHandler_Login_Throttled(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(_ context.Context, _ ports.LoginInput) (*domain.AuthResult, error) {
			t.Fatalf("service must not be called when throttled")
			return nil, nil
		},
	}
	h := NewAuthHandler(stub, &stubThrottle{blocked: true}, zerolog.Nop())

	c, rec := newTestContext(t, "/auth/login", `{"email":"alice@example.com","password":"s3cret"}`)
	_ = h.Login(c)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
}

func TestAuthHandler_AddUserRole_Success(t *testing.T) {
	stub := &stubAuthService{
		grantFn: func(_ context.Context, in ports.RoleGrantInput) error {
			if in.UserID != "42" || in.RoleName != "Admin" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return nil
		},
	}
	h := NewAuthHandler(stub, &stubThrottle{}, zerolog.Nop())

	c, rec := newTestContext(t, "/auth/roles", `{"user_id":"42","role_name":"Admin"}`)

	if err := h.AddUserRole(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("success grant must have an empty body, got %q", rec.Body.String())
	}
}

func TestAuthHandler_AddUserRole_UnknownUserOrRole(t *testing.T) {
	stub := &stubAuthService{
		grantFn: func(_ context.Context, _ ports.RoleGrantInput) error {
			return domain.ErrUnknownUserOrRole
		},
	}
	h := NewAuthHandler(stub, &stubThrottle{}, zerolog.Nop())

	c, rec := newTestContext(t, "/auth/roles", `{"user_id":"404","role_name":"Ghost"}`)
	_ = h.AddUserRole(c)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), service.MsgUnknownUserOrRole) {
		t.Fatalf("expected unknown-user-or-role message, got %s", rec.Body.String())
	}
}

func TestAuthHandler_AddUserRole_Redundant(t *testing.T) {
	stub := &stubAuthService{
		grantFn: func(_ context.Context, _ ports.RoleGrantInput) error {
			return &domain.RedundantGrantError{Role: "Admin"}
		},
	}
	h := NewAuthHandler(stub, &stubThrottle{}, zerolog.Nop())

	c, rec := newTestContext(t, "/auth/roles", `{"user_id":"42","role_name":"Admin"}`)
	_ = h.AddUserRole(c)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "User Already In role Admin ") {
		t.Fatalf("expected already-in-role message, got %s", rec.Body.String())
	}
}

func TestAuthHandler_AddUserRole_UnrecoverableError(t *testing.T) {
	wantErr := errors.New("store unreachable")
	stub := &stubAuthService{
		grantFn: func(_ context.Context, _ ports.RoleGrantInput) error {
			return wantErr
		},
	}
	h := NewAuthHandler(stub, &stubThrottle{}, zerolog.Nop())

	c, _ := newTestContext(t, "/auth/roles", `{"user_id":"42","role_name":"Admin"}`)
	if err := h.AddUserRole(c); !errors.Is(err, wantErr) {
		t.Fatalf("expected error to propagate to the error handler, got %v", err)
	}
}
