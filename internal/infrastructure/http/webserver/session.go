// Package webserver provides session management for the web frontend
package webserver

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alchemorsel/chefnano/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const sessionIssuer = "chefnano"

type sessionKey struct{}

// SessionClaims is the payload of the session cookie. The subject holds
// the session UUID that keys the kitchen state.
type SessionClaims struct {
	jwt.RegisteredClaims
}

// SessionManager issues and verifies signed session cookies.
type SessionManager struct {
	secret     []byte
	ttl        time.Duration
	cookieName string
	secure     bool
	logger     *zap.Logger
	now        func() time.Time
}

// NewSessionManager creates a session manager. Without a configured
// secret a random one is generated, so sessions do not survive restarts.
func NewSessionManager(cfg config.SessionConfig, logger *zap.Logger) (*SessionManager, error) {
	secret := []byte(cfg.Secret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("failed to generate session secret: %w", err)
		}
		logger.Warn("No session secret configured, using an ephemeral one")
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	name := cfg.CookieName
	if name == "" {
		name = "chefnano_session"
	}

	return &SessionManager{
		secret:     secret,
		ttl:        ttl,
		cookieName: name,
		secure:     cfg.Secure,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// Issue signs a token for the session ID.
func (m *SessionManager) Issue(sessionID string) (string, time.Time, error) {
	now := m.now()
	expires := now.Add(m.ttl)
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session: %w", err)
	}
	return token, expires, nil
}

// Verify returns the session ID carried by a valid token.
func (m *SessionManager) Verify(token string) (string, error) {
	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return "", err
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", errors.New("session subject is not a UUID")
	}
	return claims.Subject, nil
}

// Middleware attaches the session ID to the request context, starting a
// new session when the cookie is missing or invalid.
func (m *SessionManager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := ""
		if cookie, err := r.Cookie(m.cookieName); err == nil {
			id, err := m.Verify(cookie.Value)
			if err != nil {
				m.logger.Debug("Discarding invalid session cookie", zap.Error(err))
			}
			sessionID = id
		}

		if sessionID == "" {
			sessionID = uuid.New().String()
			token, expires, err := m.Issue(sessionID)
			if err != nil {
				m.logger.Error("Failed to issue session", zap.Error(err))
				http.Error(w, "session unavailable", http.StatusInternalServerError)
				return
			}
			http.SetCookie(w, &http.Cookie{
				Name:     m.cookieName,
				Value:    token,
				Path:     "/",
				HttpOnly: true,
				Secure:   m.secure,
				SameSite: http.SameSiteLaxMode,
				Expires:  expires,
				MaxAge:   int(m.ttl.Seconds()),
			})
		}

		ctx := context.WithValue(r.Context(), sessionKey{}, sessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SessionID returns the session ID attached by the middleware.
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}
