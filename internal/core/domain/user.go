package domain

import "time"

const (
	RoleUser  = "User"
	RoleAdmin = "Admin"
)

// Claim is a named fact embedded in issued tokens (e.g. a department or a
// locale attached to the account by an administrator).
type Claim struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// User models an account held in the identity store. The password credential
// is owned and verified by the store and never appears on this struct.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Roles     []string  `json:"roles"`
	Claims    []Claim   `json:"claims,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
