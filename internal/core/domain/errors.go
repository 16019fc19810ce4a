package domain

import (
	"errors"
	"fmt"
	"strings"
)

var ErrDuplicateEmail = errors.New("email already registered")
var ErrDuplicateUsername = errors.New("username already registered")
var ErrUserNotFound = errors.New("user not found")
var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrUnknownUserOrRole = errors.New("unknown user or role")

// StoreError carries the individual reasons the identity store rejected a
// mutation (e.g. each password policy rule that failed). Reasons stay
// separate until rendered at the API boundary.
type StoreError struct {
	Reasons []string
}

func (e *StoreError) Error() string {
	return "identity store: " + strings.Join(e.Reasons, "; ")
}

// RedundantGrantError reports a role grant the user already holds.
// It is a notice, not a failure: no state changed and none needed to.
type RedundantGrantError struct {
	Role string
}

func (e *RedundantGrantError) Error() string {
	return fmt.Sprintf("user already in role %q", e.Role)
}
