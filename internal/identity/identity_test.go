package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, isDev bool, req *http.Request) (string, *http.Cookie) {
	t.Helper()
	var seen string
	h := Middleware(isDev)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = SessionIDFromContext(r.Context())
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	return seen, cookies[0]
}

func TestMiddlewareIssuesSessionCookie(t *testing.T) {
	id, cookie := serve(t, true, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.True(t, IsValidSessionID(id))
	assert.Equal(t, CookieName, cookie.Name)
	assert.Equal(t, id, cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.False(t, cookie.Secure)
}

func TestMiddlewareReusesValidCookie(t *testing.T) {
	existing := NewSessionID()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: existing})

	id, cookie := serve(t, false, req)
	assert.Equal(t, existing, id)
	assert.True(t, cookie.Secure)
}

func TestMiddlewareReplacesInvalidCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "sess_../../etc"})

	id, _ := serve(t, true, req)
	assert.NotEqual(t, "sess_../../etc", id)
	assert.True(t, IsValidSessionID(id))
}

func TestIsValidSessionID(t *testing.T) {
	assert.True(t, IsValidSessionID(NewSessionID()))
	assert.False(t, IsValidSessionID(""))
	assert.False(t, IsValidSessionID("anon_123"))
	assert.False(t, IsValidSessionID("sess_not-a-uuid"))
	assert.Empty(t, SessionIDFromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context()))
}

func TestPeerKeyIgnoresSessionAndForwardedHeaders(t *testing.T) {
	a := httptest.NewRequest(http.MethodPost, "/", nil)
	a.RemoteAddr = "203.0.113.7:5123"
	a.AddCookie(&http.Cookie{Name: CookieName, Value: NewSessionID()})
	a.Header.Set("X-Forwarded-For", "198.51.100.1")

	b := httptest.NewRequest(http.MethodPost, "/", nil)
	b.RemoteAddr = "203.0.113.7:6000"
	b.AddCookie(&http.Cookie{Name: CookieName, Value: NewSessionID()})
	b.Header.Set("X-Forwarded-For", "198.51.100.2")

	assert.Equal(t, "203.0.113.7", PeerKey(a))
	assert.Equal(t, PeerKey(a), PeerKey(b))

	noPort := httptest.NewRequest(http.MethodPost, "/", nil)
	noPort.RemoteAddr = "unix"
	assert.Equal(t, "unix", PeerKey(noPort))
}
