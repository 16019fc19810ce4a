package ports

import (
	"context"

	"github.com/authify/identity-api/internal/core/domain"
)

// IdentityStore persists user and role records. Implementations own password
// hashing and verification; the core never sees a credential in any form.
//
// Lookup methods return domain.ErrUserNotFound when no record matches.
// CreateUser and AddUserToRole report policy rejections as *domain.StoreError
// and identity collisions as domain.ErrDuplicateEmail / ErrDuplicateUsername;
// the store may surface a collision even after a pre-check passed, since
// uniqueness is only authoritative at the storage layer.
type IdentityStore interface {
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	FindUserByUsername(ctx context.Context, username string) (*domain.User, error)
	FindUserByID(ctx context.Context, id string) (*domain.User, error)
	CreateUser(ctx context.Context, user *domain.User, password string) (*domain.User, error)
	CheckPassword(ctx context.Context, user *domain.User, password string) bool
	GetUserRoles(ctx context.Context, user *domain.User) ([]string, error)
	GetUserClaims(ctx context.Context, user *domain.User) ([]domain.Claim, error)
	RoleExists(ctx context.Context, name string) (bool, error)
	UserHasRole(ctx context.Context, user *domain.User, name string) (bool, error)
	AddUserToRole(ctx context.Context, user *domain.User, name string) error
}
