package ports

import (
	"context"

	"github.com/authify/identity-api/internal/core/domain"
)

// RegisterInput carries the fields of a registration request.
type RegisterInput struct {
	Email     string
	Username  string
	FirstName string
	LastName  string
	Password  string
}

// LoginInput carries login credentials.
type LoginInput struct {
	Email    string
	Password string
}

// RoleGrantInput targets a user by stable id and a role by name.
type RoleGrantInput struct {
	UserID   string
	RoleName string
}

// AuthService orchestrates registration, login and role-grant flows.
//
// Register and Login recover every expected failure into the AuthResult
// record; a non-nil error means an unrecoverable condition (store
// unreachable, signing misconfiguration). AddUserRole returns nil on
// success and a typed error otherwise: domain.ErrUnknownUserOrRole,
// *domain.RedundantGrantError or *domain.StoreError for expected outcomes.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.AuthResult, error)
	Login(ctx context.Context, in LoginInput) (*domain.AuthResult, error)
	AddUserRole(ctx context.Context, in RoleGrantInput) error
}
