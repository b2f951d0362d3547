package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maisonverre/storefront-api/internal/domain/user"
)

func TestSessions_IssueValidate(t *testing.T) {
	s := NewSessions("test-secret", time.Hour)

	token, err := s.Issue("u1", "asha@example.com", user.RoleCustomer)
	require.NoError(t, err)

	claims, err := s.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "asha@example.com", claims.Email)
	assert.Equal(t, "customer", claims.Role)
}

func TestSessions_WrongSecret(t *testing.T) {
	token, err := NewSessions("secret-a", time.Hour).Issue("u1", "a@b.c", user.RoleCustomer)
	require.NoError(t, err)

	_, err = NewSessions("secret-b", time.Hour).Validate(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestSessions_Expired(t *testing.T) {
	s := NewSessions("test-secret", -time.Minute)
	token, err := s.Issue("u1", "a@b.c", user.RoleCustomer)
	require.NoError(t, err)

	_, err = s.Validate(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestSessions_Garbage(t *testing.T) {
	s := NewSessions("test-secret", time.Hour)

	_, err := s.Validate("not.a.jwt")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestBearerToken(t *testing.T) {
	newReq := func() *http.Request {
		return httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	}

	r := newReq()
	assert.Empty(t, bearerToken(r))

	r = newReq()
	r.Header.Set("Authorization", "Bearer abc123")
	assert.Equal(t, "abc123", bearerToken(r))

	r = newReq()
	r.Header.Set("Authorization", "bearer abc123")
	assert.Equal(t, "abc123", bearerToken(r), "scheme match is case-insensitive")

	r = newReq()
	r.Header.Set("Authorization", "Basic abc123")
	assert.Empty(t, bearerToken(r))

	// Cookie wins over the header.
	r = newReq()
	r.AddCookie(&http.Cookie{Name: "session", Value: "cookie-token"})
	r.Header.Set("Authorization", "Bearer header-token")
	assert.Equal(t, "cookie-token", bearerToken(r))
}

func TestAuthenticate_Middleware(t *testing.T) {
	s := NewSessions("test-secret", time.Hour)
	var gotClaims *Claims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotClaims = SessionFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	handler := s.Authenticate(next)

	// No token.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/orders", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"code":401,"message":"authentication required"}`, rec.Body.String())

	// Bad token.
	rec = httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	r.Header.Set("Authorization", "Bearer bogus")
	handler.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Valid token.
	token, err := s.Issue("u1", "a@b.c", user.RoleCustomer)
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	r.AddCookie(&http.Cookie{Name: "session", Value: token})
	handler.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, gotClaims)
	assert.Equal(t, "u1", gotClaims.UserID)
}

func TestRequireAdmin(t *testing.T) {
	s := NewSessions("test-secret", time.Hour)
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handler := s.Authenticate(RequireAdmin(next))

	customer, err := s.Issue("u1", "a@b.c", user.RoleCustomer)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/admin/coupons", nil)
	r.Header.Set("Authorization", "Bearer "+customer)
	handler.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"code":403,"message":"admin access required"}`, rec.Body.String())

	admin, err := s.Issue("u2", "ops@b.c", user.RoleAdmin)
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodGet, "/api/admin/coupons", nil)
	r.Header.Set("Authorization", "Bearer "+admin)
	handler.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
