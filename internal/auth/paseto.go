package auth

import (
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"

	"github.com/listenupapp/booklist-server/internal/domain"
	"github.com/listenupapp/booklist-server/internal/id"
)

// PasetoIssuer creates encrypted PASETO v4.local tokens.
type PasetoIssuer struct {
	key paseto.V4SymmetricKey
	ttl time.Duration
	now func() time.Time
}

// NewPasetoIssuer creates an issuer from a 32-byte symmetric key,
// usually the one returned by LoadOrGenerateKey.
func NewPasetoIssuer(key []byte, ttl time.Duration) (*PasetoIssuer, error) {
	if len(key) != keyLength {
		return nil, fmt.Errorf("PASETO v4 key must be exactly %d bytes, got %d", keyLength, len(key))
	}
	if ttl < 0 {
		return nil, fmt.Errorf("token ttl cannot be negative: %s", ttl)
	}

	symmetric, err := paseto.V4SymmetricKeyFromBytes(key)
	if err != nil {
		return nil, fmt.Errorf("create PASETO symmetric key: %w", err)
	}
	return &PasetoIssuer{key: symmetric, ttl: ttl, now: time.Now}, nil
}

// Format implements Issuer.
func (i *PasetoIssuer) Format() string { return FormatPaseto }

// Issue implements Issuer.
func (i *PasetoIssuer) Issue(user *domain.User) (domain.Token, error) {
	now := i.now()

	token := paseto.NewToken()
	token.SetIssuer(tokenIssuer)
	token.SetAudience(tokenAudience)
	token.SetSubject(user.ID)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	if i.ttl > 0 {
		token.SetExpiration(now.Add(i.ttl))
	}

	tokenID, err := id.Generate("token")
	if err != nil {
		return domain.Token{}, fmt.Errorf("generate token ID: %w", err)
	}
	token.SetJti(tokenID)

	//nolint:errcheck // Set only fails for values that cannot be JSON encoded
	_ = token.Set("username", user.Username)
	//nolint:errcheck // Set only fails for values that cannot be JSON encoded
	_ = token.Set("id", user.ID)

	return domain.Token{Value: token.V4Encrypt(i.key, nil)}, nil
}

// Verify implements Issuer.
func (i *PasetoIssuer) Verify(value string) (*Claims, error) {
	now := i.now()

	parser := paseto.NewParserWithoutExpiryCheck()
	parser.AddRule(paseto.ForAudience(tokenAudience))
	parser.AddRule(paseto.IssuedBy(tokenIssuer))
	parser.AddRule(expiresAfter(now))

	token, err := parser.ParseV4Local(i.key, value, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	userID, err := token.GetString("id")
	if err != nil || userID == "" {
		return nil, fmt.Errorf("%w: missing id claim", ErrInvalidToken)
	}
	username, _ := token.GetString("username")
	tokenID, _ := token.GetJti()

	claims := &Claims{UserID: userID, Username: username, TokenID: tokenID}
	if iat, err := token.GetIssuedAt(); err == nil {
		claims.IssuedAt = iat
	}
	if exp, err := token.GetExpiration(); err == nil {
		claims.ExpiresAt = exp
	}
	return claims, nil
}

// expiresAfter rejects tokens whose "exp" has passed and accepts tokens without one.
func expiresAfter(now time.Time) paseto.Rule {
	return func(token paseto.Token) error {
		exp, err := token.GetExpiration()
		if err != nil {
			return nil
		}
		if !now.Before(exp) {
			return fmt.Errorf("token expired at %s", exp.Format(time.RFC3339))
		}
		return nil
	}
}
