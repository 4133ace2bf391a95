package api

import (
	"net"
	"net/http"
	"strings"

	"github.com/listenupapp/booklist-server/internal/auth"
	"github.com/listenupapp/booklist-server/internal/ratelimit"
)

// authContext resolves the Authorization header to a user and stores it in
// the request context. Requests without a usable token continue anonymously;
// resolvers that need a user reject them.
func (s *Server) authContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := ratelimit.WithClient(r.Context(), clientAddr(r.RemoteAddr))

		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		user, err := s.accounts.Authenticate(ctx, token)
		if err != nil {
			s.logger.Debug("continuing anonymously after token rejection",
				"path", r.URL.Path,
				"error", err,
			)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithUser(ctx, user)))
	})
}

// clientAddr strips the port from RemoteAddr. RealIP runs earlier and may
// already have replaced it with a bare forwarded address.
func clientAddr(remoteAddr string) string {
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}

// bearerToken extracts the token from "Bearer <token>". A header without a
// scheme is taken as a bare token.
func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	if scheme, rest, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(rest)
	}
	return header
}
