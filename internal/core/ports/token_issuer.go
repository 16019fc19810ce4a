package ports

import (
	"time"

	"github.com/authify/identity-api/internal/core/domain"
)

// TokenIssuer builds a signed bearer token for a user and an already-fetched
// role set. Issuance is a pure computation: the issuer performs no I/O and
// reads extra claims straight off the user record.
type TokenIssuer interface {
	IssueToken(user *domain.User, roles []string) (token string, expiresOn time.Time, err error)
}
