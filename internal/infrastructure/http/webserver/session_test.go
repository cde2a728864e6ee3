package webserver

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/alchemorsel/chefnano/internal/infrastructure/config"
)

func newTestSessions(t *testing.T, secret string) *SessionManager {
	t.Helper()
	m, err := NewSessionManager(config.SessionConfig{
		Secret:     secret,
		TTL:        time.Hour,
		CookieName: "kitchen",
	}, zap.NewNop())
	require.NoError(t, err)
	return m
}

func TestSessionIssueAndVerify(t *testing.T) {
	m := newTestSessions(t, "test-secret")
	id := uuid.New().String()

	token, expires, err := m.Issue(id)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, time.Minute)

	got, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestSessionVerifyRejects(t *testing.T) {
	m := newTestSessions(t, "test-secret")
	id := uuid.New().String()

	t.Run("expired", func(t *testing.T) {
		token, _, err := m.Issue(id)
		require.NoError(t, err)

		later := newTestSessions(t, "test-secret")
		later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err = later.Verify(token)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("other secret", func(t *testing.T) {
		token, _, err := newTestSessions(t, "other").Issue(id)
		require.NoError(t, err)

		_, err = m.Verify(token)
		assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
	})

	t.Run("subject is not a uuid", func(t *testing.T) {
		token, _, err := m.Issue("../../etc")
		require.NoError(t, err)

		_, err = m.Verify(token)
		assert.Error(t, err)
	})

	t.Run("none algorithm", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   id,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = m.Verify(token)
		assert.Error(t, err)
	})
}

func TestSessionMiddleware(t *testing.T) {
	m := newTestSessions(t, "")

	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = SessionID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "kitchen", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
	_, err := uuid.Parse(seen)
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	first := seen
	h.ServeHTTP(rec, req)

	assert.Equal(t, first, seen)
	assert.Empty(t, rec.Result().Cookies())
}

func TestCSRFTokenBoundToSession(t *testing.T) {
	m := newTestSessions(t, "test-secret")

	a := m.CSRFToken("a")
	assert.Len(t, a, 64)
	assert.Equal(t, a, m.CSRFToken("a"))
	assert.NotEqual(t, a, m.CSRFToken("b"))
	assert.NotEqual(t, a, newTestSessions(t, "other").CSRFToken("a"))
}
