package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/rustyeddy/tradelog/logger"
)

type contextKey string

const (
	requestIDContextKey contextKey = "requestID"
	userIDContextKey    contextKey = "userID"
)

// UserHeader carries the caller's identity. Authentication happens in
// front of this service.
const UserHeader = "X-User-ID"

// contextualLogger gives each request an id, a span and a logger carrying
// both.
func contextualLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()
		w.Header().Set("X-Request-ID", requestID)

		ctx, span := logger.StartSpan(r.Context(), "http "+r.Method)
		defer span.End()

		ctxLogger := logger.L.With(slog.String("requestID", requestID)).With(logger.TraceAttrs(ctx)...)
		ctx = logger.ToContext(ctx, ctxLogger)
		ctx = context.WithValue(ctx, requestIDContextKey, requestID)

		ctxLogger.Debug("request", "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			logger.FromContext(r.Context()).Warn("Rate limit exceeded", "path", r.URL.Path)
			sendJSONError(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(UserHeader))
		if userID == "" {
			logger.FromContext(r.Context()).Debug("user header missing", "path", r.URL.Path)
			sendJSONError(w, UserHeader+" header required", http.StatusUnauthorized)
			return
		}

		enriched := logger.FromContext(r.Context()).With(slog.String("userID", userID))
		ctx := logger.ToContext(r.Context(), enriched)
		ctx = context.WithValue(ctx, userIDContextKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(userIDContextKey).(string)
	return id
}

// busyGuard allows one chat request in flight per user.
type busyGuard struct {
	mu    sync.Mutex
	users map[string]struct{}
}

func newBusyGuard() *busyGuard {
	return &busyGuard{users: make(map[string]struct{})}
}

func (b *busyGuard) acquire(userID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.users[userID]; ok {
		return false
	}
	b.users[userID] = struct{}{}
	return true
}

func (b *busyGuard) release(userID string) {
	b.mu.Lock()
	delete(b.users, userID)
	b.mu.Unlock()
}
