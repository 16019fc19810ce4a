package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/authify/identity-api/internal/core/domain"
	"github.com/authify/identity-api/internal/core/ports"
)

// Status messages returned verbatim to clients. Kept byte-for-byte stable:
// they are part of the public API contract.
const (
	MsgDuplicateEmail    = "Email Already Exist !"
	MsgDuplicateUsername = "UserName Already Exist !"
	MsgBadCredentials    = "Email Or PassWord Incorrect"
	MsgUnknownUserOrRole = "User Not Exist Or Role Not Valid"
)

// reasonSeparator joins store rejection reasons when a multi-reason failure
// is rendered as a single message.
const reasonSeparator = " , "

// AuthService implements registration, login and role grants on top of an
// injected identity store and token issuer.
type AuthService struct {
	store  ports.IdentityStore
	issuer ports.TokenIssuer
	log    zerolog.Logger
}

func NewAuthService(store ports.IdentityStore, issuer ports.TokenIssuer, log zerolog.Logger) *AuthService {
	return &AuthService{store: store, issuer: issuer, log: log}
}

// Register creates an account, grants the default "User" role and issues a
// token. Duplicate identities and store rejections come back as a failed
// AuthResult, never as an error.
//
// A failed default-role grant leaves the created user row in place: the
// store owns durability and this service performs no compensating delete.
// The failure is reported to the caller rather than hidden.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.AuthResult, error) {
	if _, err := s.store.FindUserByEmail(ctx, in.Email); err == nil {
		return domain.AuthFailure(MsgDuplicateEmail), nil
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("register: lookup email: %w", err)
	}

	if _, err := s.store.FindUserByUsername(ctx, in.Username); err == nil {
		return domain.AuthFailure(MsgDuplicateUsername), nil
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("register: lookup username: %w", err)
	}

	user := &domain.User{
		Email:     in.Email,
		Username:  in.Username,
		FirstName: in.FirstName,
		LastName:  in.LastName,
	}

	created, err := s.store.CreateUser(ctx, user, in.Password)
	if err != nil {
		if msg, ok := recoverMessage(err); ok {
			return domain.AuthFailure(msg), nil
		}
		return nil, fmt.Errorf("register: create user: %w", err)
	}

	if err := s.store.AddUserToRole(ctx, created, domain.RoleUser); err != nil {
		if msg, ok := recoverMessage(err); ok {
			s.log.Warn().Str("username", created.Username).Msg("default role grant rejected, user row kept")
			return domain.AuthFailure(msg), nil
		}
		return nil, fmt.Errorf("register: grant default role: %w", err)
	}

	roles := []string{domain.RoleUser}
	token, expiresOn, err := s.issuer.IssueToken(created, roles)
	if err != nil {
		return nil, fmt.Errorf("register: issue token: %w", err)
	}

	s.log.Info().Str("username", created.Username).Msg("user registered")

	return &domain.AuthResult{
		Email:           created.Email,
		Username:        created.Username,
		FirstName:       created.FirstName,
		LastName:        created.LastName,
		IsAuthenticated: true,
		Roles:           roles,
		Token:           token,
		ExpiresOn:       expiresOn,
	}, nil
}

// Login verifies credentials and issues a token carrying the user's current
// role set. A missing account and a wrong password produce the exact same
// message so that responses never reveal whether an email is registered.
func (s *AuthService) Login(ctx context.Context, in ports.LoginInput) (*domain.AuthResult, error) {
	user, err := s.store.FindUserByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.AuthFailure(MsgBadCredentials), nil
		}
		return nil, fmt.Errorf("login: lookup email: %w", err)
	}

	if !s.store.CheckPassword(ctx, user, in.Password) {
		return domain.AuthFailure(MsgBadCredentials), nil
	}

	roles, err := s.store.GetUserRoles(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("login: fetch roles: %w", err)
	}
	claims, err := s.store.GetUserClaims(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("login: fetch claims: %w", err)
	}
	user.Claims = claims

	token, expiresOn, err := s.issuer.IssueToken(user, roles)
	if err != nil {
		return nil, fmt.Errorf("login: issue token: %w", err)
	}

	s.log.Info().Str("username", user.Username).Msg("user logged in")

	return &domain.AuthResult{
		Email:           user.Email,
		Username:        user.Username,
		FirstName:       user.FirstName,
		LastName:        user.LastName,
		IsAuthenticated: true,
		Roles:           roles,
		Token:           token,
		ExpiresOn:       expiresOn,
	}, nil
}

// AddUserRole grants a role to an existing user. Expected outcomes are typed:
// domain.ErrUnknownUserOrRole when the user id or role name does not resolve,
// *domain.RedundantGrantError when the user already holds the role, and
// *domain.StoreError when the store rejects the mutation.
func (s *AuthService) AddUserRole(ctx context.Context, in ports.RoleGrantInput) error {
	user, err := s.store.FindUserByID(ctx, in.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrUnknownUserOrRole
		}
		return fmt.Errorf("grant role: lookup user: %w", err)
	}

	exists, err := s.store.RoleExists(ctx, in.RoleName)
	if err != nil {
		return fmt.Errorf("grant role: lookup role: %w", err)
	}
	if !exists {
		return domain.ErrUnknownUserOrRole
	}

	has, err := s.store.UserHasRole(ctx, user, in.RoleName)
	if err != nil {
		return fmt.Errorf("grant role: membership check: %w", err)
	}
	if has {
		return &domain.RedundantGrantError{Role: in.RoleName}
	}

	if err := s.store.AddUserToRole(ctx, user, in.RoleName); err != nil {
		var se *domain.StoreError
		if errors.As(err, &se) {
			return se
		}
		return fmt.Errorf("grant role: %w", err)
	}

	s.log.Info().Str("username", user.Username).Str("role", in.RoleName).Msg("role granted")
	return nil
}

// GrantStatus converts an AddUserRole outcome into the wire status string.
// The empty string means success; anything else names the failure. The
// second return is false for unrecoverable errors, which must propagate.
func GrantStatus(err error) (string, bool) {
	var rg *domain.RedundantGrantError
	var se *domain.StoreError
	switch {
	case err == nil:
		return "", true
	case errors.Is(err, domain.ErrUnknownUserOrRole):
		return MsgUnknownUserOrRole, true
	case errors.As(err, &rg):
		return fmt.Sprintf("User Already In role %s ", rg.Role), true
	case errors.As(err, &se):
		return strings.Join(se.Reasons, reasonSeparator), true
	}
	return "", false
}

// recoverMessage renders an expected store failure as a client message.
func recoverMessage(err error) (string, bool) {
	var se *domain.StoreError
	switch {
	case errors.Is(err, domain.ErrDuplicateEmail):
		return MsgDuplicateEmail, true
	case errors.Is(err, domain.ErrDuplicateUsername):
		return MsgDuplicateUsername, true
	case errors.As(err, &se):
		return strings.Join(se.Reasons, reasonSeparator), true
	}
	return "", false
}
