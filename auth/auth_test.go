package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionCookie(t *testing.T, uid string) *http.Cookie {
	t.Helper()
	rr := httptest.NewRecorder()
	CreateSession(rr, uid)
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func TestSessionRoundTrip(t *testing.T) {
	SetSecret("test-secret")
	t.Cleanup(func() { SetSecret("") })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(sessionCookie(t, "9b2f7c1e-user"))
	uid, ok := ParseSession(req)
	require.True(t, ok)
	assert.Equal(t, "9b2f7c1e-user", uid)
}

func TestParseSessionRejectsTampering(t *testing.T) {
	SetSecret("test-secret")
	t.Cleanup(func() { SetSecret("") })

	c := sessionCookie(t, "alice")
	c.Value = "mallory" + c.Value[len("alice"):]
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(c)
	_, ok := ParseSession(req)
	assert.False(t, ok)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "nosignature"})
	_, ok = ParseSession(req)
	assert.False(t, ok)
}

func TestRequireAuth(t *testing.T) {
	SetSecret("test-secret")
	t.Cleanup(func() {
		SetSecret("")
		SetUserVerifier(nil)
	})

	var seen string
	h := Middleware(RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/invoices", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.JSONEq(t, `{"error":"unauthorized"}`, rr.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/api/invoices", nil)
	req.AddCookie(sessionCookie(t, "alice"))
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "alice", seen)

	SetUserVerifier(func(_ context.Context, uid string) bool { return uid != "alice" })
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
