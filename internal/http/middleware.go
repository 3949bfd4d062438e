package http

import (
	"context"
	"crypto/subtle"
	"encoding/gob"
	"net/http"
	"strconv"
	"strings"

	"github.com/fjod/storefront/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

type contextKey string

const (
	userIDKey    contextKey = "user_id"
	requestIDKey contextKey = "request_id"
	sessionKey   contextKey = "session"

	sessionName     = "storefront"
	cartTokenField  = "cart_token"
	apiKeyHeader    = "X-API-Key"
	requestIDHeader = "X-Request-ID"
)

// Flash is a one-shot message shown on the next page the client loads.
type Flash struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

func init() {
	gob.Register(Flash{})
}

// RequestIDMiddleware adds a unique request ID to each request
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set(requestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SessionMiddleware loads the cookie session and makes sure it carries an
// anonymous cart token. A tampered or expired cookie starts a fresh session.
func SessionMiddleware(store sessions.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := store.Get(r, sessionName)
			if err != nil {
				zap.L().Debug("discarding unreadable session", zap.Error(err))
			}

			if token, _ := session.Values[cartTokenField].(string); token == "" {
				session.Values[cartTokenField] = uuid.NewString()
				if err := session.Save(r, w); err != nil {
					zap.L().Error("failed to save session", zap.Error(err))
					respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
					return
				}
			}

			ctx := context.WithValue(r.Context(), sessionKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AuthMiddleware reads an optional HS256 bearer token whose subject is the
// numeric user id. Requests without a token stay anonymous; a token that
// does not verify is rejected.
func AuthMiddleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			tokenString, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || len(secret) == 0 {
				respondError(w, http.StatusUnauthorized, "unauthorized", "invalid authorization header")
				return
			}

			userID, err := parseUserToken(tokenString, secret)
			if err != nil {
				zap.L().Debug("rejected bearer token", zap.Error(err))
				respondError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func parseUserToken(tokenString string, secret []byte) (int64, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return 0, err
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return 0, jwt.ErrTokenInvalidSubject
	}
	return userID, nil
}

// AdminMiddleware guards the admin routes with a static API key. An empty
// key disables them.
func AdminMiddleware(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			given := r.Header.Get(apiKeyHeader)
			if apiKey == "" || subtle.ConstantTimeCompare([]byte(given), []byte(apiKey)) != 1 {
				respondError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func getUserIDFromContext(ctx context.Context) int64 {
	if userID, ok := ctx.Value(userIDKey).(int64); ok {
		return userID
	}
	return 0
}

func getRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}

func getSession(ctx context.Context) *sessions.Session {
	if s, ok := ctx.Value(sessionKey).(*sessions.Session); ok {
		return s
	}
	return nil
}

// identityFromRequest prefers the authenticated user over the session token.
func identityFromRequest(r *http.Request) domain.Identity {
	if userID := getUserIDFromContext(r.Context()); userID > 0 {
		return domain.UserIdentity(userID)
	}
	if s := getSession(r.Context()); s != nil {
		if token, ok := s.Values[cartTokenField].(string); ok {
			return domain.SessionIdentity(token)
		}
	}
	return domain.Identity{}
}

// addFlash stores a message for the next page. It must run before the
// response header is written.
func addFlash(w http.ResponseWriter, r *http.Request, level, message string) {
	s := getSession(r.Context())
	if s == nil {
		return
	}
	s.AddFlash(Flash{Level: level, Message: message})
	if err := s.Save(r, w); err != nil {
		zap.L().Error("failed to save flash", zap.Error(err))
	}
}

// popFlashes returns and clears the pending messages.
func popFlashes(w http.ResponseWriter, r *http.Request) []Flash {
	s := getSession(r.Context())
	if s == nil {
		return nil
	}
	raw := s.Flashes()
	if len(raw) == 0 {
		return nil
	}
	out := make([]Flash, 0, len(raw))
	for _, v := range raw {
		if f, ok := v.(Flash); ok {
			out = append(out, f)
		}
	}
	if err := s.Save(r, w); err != nil {
		zap.L().Error("failed to clear flashes", zap.Error(err))
	}
	return out
}
