package domain

import "time"

// AuthResult is the uniform outcome record for registration and login.
//
// Exactly one of two shapes is ever produced: an authenticated result with
// token, expiry and roles populated and an empty message, or a failed result
// where only Message is set. Callers branch on IsAuthenticated alone and
// never infer success from field presence.
type AuthResult struct {
	Email           string    `json:"email,omitempty"`
	Username        string    `json:"username,omitempty"`
	FirstName       string    `json:"first_name,omitempty"`
	LastName        string    `json:"last_name,omitempty"`
	Message         string    `json:"message,omitempty"`
	IsAuthenticated bool      `json:"is_authenticated"`
	Roles           []string  `json:"roles,omitempty"`
	Token           string    `json:"token,omitempty"`
	ExpiresOn       time.Time `json:"expires_on,omitzero"`
}

// AuthFailure builds the failed shape of AuthResult.
func AuthFailure(message string) *AuthResult {
	return &AuthResult{Message: message}
}
