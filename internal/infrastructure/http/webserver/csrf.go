package webserver

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"

	"github.com/alchemorsel/chefnano/internal/infrastructure/http/middleware"
	apperrors "github.com/alchemorsel/chefnano/pkg/errors"
	"go.uber.org/zap"
)

// CSRFHeader is sent by HTMX on every request; plain forms post csrf_token.
const CSRFHeader = "X-CSRF-Token"

// maxFormBytes bounds form bodies; both fields are short free text.
const maxFormBytes = 64 << 10

// CSRFToken derives the anti-forgery token bound to a session.
func (m *SessionManager) CSRFToken(sessionID string) string {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte("csrf:" + sessionID))
	return hex.EncodeToString(mac.Sum(nil))
}

// csrfMiddleware provides CSRF protection for state-changing requests
func (s *WebServer) csrfMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)

		token := r.Header.Get(CSRFHeader)
		if token == "" {
			token = r.PostFormValue("csrf_token")
		}

		expected := s.sessions.CSRFToken(SessionID(r.Context()))
		if !hmac.Equal([]byte(token), []byte(expected)) {
			s.logger.Warn("Invalid CSRF token",
				zap.String("request_id", middleware.GetRequestID(r.Context())),
				zap.String("path", r.URL.Path),
				zap.Bool("missing", token == ""),
			)
			middleware.WriteError(w, r, apperrors.NewForbiddenError("Invalid CSRF token"))
			return
		}

		next.ServeHTTP(w, r)
	})
}
