package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/nicoirigoyen/e-commerce/internal/auth"
	"github.com/nicoirigoyen/e-commerce/internal/domain"
	"github.com/sirupsen/logrus"
)

type ctxKey int

const claimsKey ctxKey = iota

// Authenticate validates the bearer token and stores its claims on the
// request context.
func Authenticate(tokens *auth.TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || raw == "" {
				respondError(w, http.StatusUnauthorized, "unauthenticated", "no token")
				return
			}
			claims, err := tokens.Parse(raw)
			if err != nil {
				respondError(w, http.StatusUnauthorized, "unauthenticated", "invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
		})
	}
}

// RequireAdmin must run after Authenticate.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFrom(r.Context())
		if claims == nil {
			respondError(w, http.StatusUnauthorized, "unauthenticated", "no token")
			return
		}
		if !claims.IsAdmin {
			respondError(w, http.StatusForbidden, "forbidden", "admin only")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func withClaims(ctx context.Context, c *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

func claimsFrom(ctx context.Context) *auth.Claims {
	c, _ := ctx.Value(claimsKey).(*auth.Claims)
	return c
}

func actorFrom(ctx context.Context) domain.Actor {
	if c := claimsFrom(ctx); c != nil {
		return c.Actor()
	}
	return domain.Actor{}
}

// RequestLogger is chi's access log with logrus as the sink.
func RequestLogger(logger *logrus.Logger) func(http.Handler) http.Handler {
	return middleware.RequestLogger(&logFormatter{logger: logger})
}

type logFormatter struct {
	logger *logrus.Logger
}

func (f *logFormatter) NewLogEntry(r *http.Request) middleware.LogEntry {
	return &logEntry{
		entry: f.logger.WithContext(r.Context()).WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"remote_addr": r.RemoteAddr,
		}),
	}
}

type logEntry struct {
	entry *logrus.Entry
}

func (e *logEntry) Write(status, bytes int, _ http.Header, elapsed time.Duration, _ interface{}) {
	entry := e.entry.WithFields(logrus.Fields{
		"status":      status,
		"bytes":       bytes,
		"duration_ms": elapsed.Milliseconds(),
	})
	if status >= http.StatusInternalServerError {
		entry.Error("request completed")
		return
	}
	entry.Info("request completed")
}

func (e *logEntry) Panic(v interface{}, stack []byte) {
	e.entry.WithFields(logrus.Fields{
		"panic": v,
		"stack": string(stack),
	}).Error("request panicked")
}

// BodyLimit caps request bodies at n bytes.
func BodyLimit(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}
