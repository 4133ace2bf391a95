package providers

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/booklist-server/internal/auth"
	"github.com/listenupapp/booklist-server/internal/config"
	"github.com/listenupapp/booklist-server/internal/logger"
	"github.com/listenupapp/booklist-server/internal/ratelimit"
)

// ProvideTokenIssuer provides the JWT or PASETO issuer selected by TOKEN_FORMAT.
func ProvideTokenIssuer(i do.Injector) (auth.Issuer, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	var (
		issuer auth.Issuer
		err    error
	)
	switch cfg.Auth.TokenFormat {
	case config.TokenPaseto:
		var key []byte
		key, err = auth.LoadOrGenerateKey(cfg.Store.DataPath)
		if err != nil {
			return nil, err
		}
		issuer, err = auth.NewPasetoIssuer(key, cfg.Auth.TokenTTL)
	default:
		issuer, err = auth.NewJWTIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	}
	if err != nil {
		return nil, err
	}

	log.Info("Token issuer ready",
		"format", issuer.Format(),
		"token_ttl", cfg.Auth.TokenTTL,
	)

	return issuer, nil
}

// ProvideSharedSecret provides the hashed login password.
func ProvideSharedSecret(i do.Injector) (*auth.SharedSecret, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return auth.NewSharedSecret(cfg.Auth.LoginPassword)
}

// LoginLimiterHandle wraps the per-username login limiter with shutdown capability.
type LoginLimiterHandle struct {
	*ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable.
func (h *LoginLimiterHandle) Shutdown() error {
	h.Stop()
	return nil
}

// ProvideLoginLimiter provides the per-username login rate limiter.
func ProvideLoginLimiter(i do.Injector) (*LoginLimiterHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)

	limiter := ratelimit.New(ratelimit.PerMinute(cfg.Auth.LoginRate), cfg.Auth.LoginBurst)
	return &LoginLimiterHandle{KeyedRateLimiter: limiter}, nil
}
