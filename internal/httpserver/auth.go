// internal/httpserver/auth.go
//
// Session tokens and cookies.
//   - A session token is an HS256 JWT whose subject is the session ID and whose
//     expiry is the session TTL.
//   - Clients send it as "Authorization: Bearer <token>", as the session
//     cookie, or (for the websocket, which cannot set headers) as ?token=.
//   - requireSession resolves the token to a live *shell.Shell.

package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/robalobadob/neuroprime/internal/shell"
	"github.com/robalobadob/neuroprime/internal/store"
)

var errInvalidToken = errors.New("invalid session token")

// signToken creates an HS256 JWT for a session.
func (s *Server) signToken(sessionID string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(s.opts.SessionTTL)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sessionID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	ss, err := t.SignedString([]byte(s.opts.SessionSecret))
	return ss, exp, err
}

// parseToken validates a token and returns its session ID.
func (s *Server) parseToken(tok string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	t, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.opts.SessionSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !t.Valid {
		return "", errInvalidToken
	}
	if claims.Subject == "" {
		return "", errInvalidToken
	}
	return claims.Subject, nil
}

// setSessionCookie writes the session cookie with appropriate security attributes.
func (s *Server) setSessionCookie(w http.ResponseWriter, token string, exp time.Time) {
	http.SetCookie(w, s.cookie(token, exp, 0))
}

// clearSessionCookie deletes the session cookie.
func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, s.cookie("", time.Time{}, -1))
}

func (s *Server) cookie(value string, exp time.Time, maxAge int) *http.Cookie {
	sameSite := http.SameSiteLaxMode
	if s.opts.SecureCookies {
		sameSite = http.SameSiteNoneMode // required for third-party contexts when Secure
	}
	return &http.Cookie{
		Name:     s.opts.CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: sameSite,
		Expires:  exp,
		MaxAge:   maxAge,
	}
}

// bearerOrCookie extracts a token from the Authorization header, the session
// cookie or the token query parameter, in that order.
func (s *Server) bearerOrCookie(r *http.Request) string {
	// Authorization: Bearer <token>
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if c, err := r.Cookie(s.opts.CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	return r.URL.Query().Get("token")
}

// ctxSessionKey is the context key type for storing the session shell.
type ctxSessionKey struct{}

// requireSession enforces a valid token and injects the session's shell into
// the request context.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := s.bearerOrCookie(r)
		if tok == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		id, err := s.parseToken(tok)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_token")
			return
		}
		sh, err := s.opts.Store.Get(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "session_not_found")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal")
			return
		}
		hlog.FromRequest(r).UpdateContext(func(c zerolog.Context) zerolog.Context {
			return c.Str("session", id)
		})
		ctx := context.WithValue(r.Context(), ctxSessionKey{}, sh)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionFrom returns the shell injected by requireSession.
func sessionFrom(r *http.Request) *shell.Shell {
	sh, _ := r.Context().Value(ctxSessionKey{}).(*shell.Shell)
	return sh
}
