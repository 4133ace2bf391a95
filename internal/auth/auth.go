// Package auth issues and verifies login tokens and checks the shared login secret.
package auth

import (
	"errors"
	"time"

	"github.com/listenupapp/booklist-server/internal/domain"
)

// Token formats.
const (
	FormatJWT    = "jwt"
	FormatPaseto = "paseto"
)

const (
	tokenIssuer   = "booklist-server"
	tokenAudience = "booklist-client"
)

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = errors.New("invalid token")

// Claims is what a verified token says about its holder.
type Claims struct {
	UserID   string
	Username string
	TokenID  string
	IssuedAt time.Time
	// ExpiresAt is zero for non-expiring tokens.
	ExpiresAt time.Time
}

// Issuer signs tokens for users and verifies tokens presented by clients.
type Issuer interface {
	Issue(user *domain.User) (domain.Token, error)
	Verify(value string) (*Claims, error)
	Format() string
}
