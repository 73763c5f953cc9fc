// Package identity provides the anonymous per-browser session ID.
package identity

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// CookieName holds the session ID.
	CookieName = "stock_session"

	sessionPrefix = "sess_"
	cookieMaxAge  = 7 * 24 * time.Hour
)

type contextKey int

const sessionIDKey contextKey = iota

// SessionIDFromContext returns the session ID set by Middleware, or "".
func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		return v
	}
	return ""
}

// WithSessionID returns a context carrying id.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

// NewSessionID returns a fresh session ID.
func NewSessionID() string {
	return sessionPrefix + uuid.NewString()
}

// IsValidSessionID reports whether id was produced by NewSessionID.
func IsValidSessionID(id string) bool {
	rest, ok := strings.CutPrefix(id, sessionPrefix)
	if !ok {
		return false
	}
	_, err := uuid.Parse(rest)
	return err == nil && len(rest) == 36
}

func setCookie(w http.ResponseWriter, id string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(cookieMaxAge.Seconds()),
		Expires:  time.Now().Add(cookieMaxAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
	})
}

func getOrCreateSessionID(w http.ResponseWriter, r *http.Request, isDev bool) string {
	id := ""
	if c, err := r.Cookie(CookieName); err == nil && IsValidSessionID(c.Value) {
		id = c.Value
	} else {
		id = NewSessionID()
	}
	// Refresh on every request so active sessions keep their cookie.
	setCookie(w, id, !isDev)
	return id
}

// Middleware assigns every request a session ID backed by a cookie.
func Middleware(isDev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := getOrCreateSessionID(w, r, isDev)
			next.ServeHTTP(w, r.WithContext(WithSessionID(r.Context(), id)))
		})
	}
}

// PeerKey returns the client host of r. Session IDs are client-chosen, so
// limits that must hold across sessions key on this instead.
func PeerKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
