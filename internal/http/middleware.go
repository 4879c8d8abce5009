package http

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/robertarktes/gatherly/internal/idempotency"
	"github.com/robertarktes/gatherly/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
)

type ctxKey int

const (
	loggerKey ctxKey = iota
	sessionKey
	userKey
)

const (
	SessionHeader     = "X-Session-ID"
	UserHeader        = "X-User-ID"
	IdempotencyHeader = "Idempotency-Key"
)

func RequestIDMiddleware(next http.Handler) http.Handler {
	return middleware.RequestID(next)
}

func LoggerMiddleware(logger observability.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := middleware.GetReqID(r.Context())
			entry := logger.WithField("request_id", reqID)
			ctx := context.WithValue(r.Context(), loggerKey, entry)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			started := time.Now()
			next.ServeHTTP(ww, r.WithContext(ctx))

			entry.WithField("method", r.Method).
				WithField("path", r.URL.Path).
				WithField("status", ww.Status()).
				WithField("duration_ms", time.Since(started).Milliseconds()).
				Debug("request served")
		})
	}
}

func requestLogger(r *http.Request, fallback observability.Logger) observability.Logger {
	if l, ok := r.Context().Value(loggerKey).(observability.Logger); ok {
		return l
	}
	return fallback
}

// MetricsMiddleware counts requests by route pattern, not raw path.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		observability.RequestsTotal.WithLabelValues(route, strconv.Itoa(status), r.Method).Inc()
	})
}

// SessionMiddleware reads the caller's session and user ids. Authentication
// happens upstream; the ids are taken as given.
func SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if sid := r.Header.Get(SessionHeader); sid != "" {
			ctx = context.WithValue(ctx, sessionKey, sid)
		}
		if uid := r.Header.Get(UserHeader); uid != "" {
			ctx = context.WithValue(ctx, userKey, uid)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireSession rejects requests that carry no session id.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sessionID(r.Context()) == "" {
			respondError(w, r, http.StatusBadRequest, "missing "+SessionHeader)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func sessionID(ctx context.Context) string {
	s, _ := ctx.Value(sessionKey).(string)
	return s
}

func userID(ctx context.Context) string {
	s, _ := ctx.Value(userKey).(string)
	return s
}

type captureWriter struct {
	middleware.WrapResponseWriter
	buf bytes.Buffer
}

func (c *captureWriter) Write(b []byte) (int, error) {
	c.buf.Write(b)
	return c.WrapResponseWriter.Write(b)
}

// IdempotencyMiddleware replays the stored response for a repeated key.
// Only successful responses are stored, so a failed attempt can be retried
// under the same key. Keys are scoped to the session.
func IdempotencyMiddleware(idemp *idempotency.Idempotency, logger observability.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}
			key := r.Header.Get(IdempotencyHeader)
			if key == "" {
				respondError(w, r, http.StatusBadRequest, "missing "+IdempotencyHeader)
				return
			}
			if len(key) < 16 {
				respondError(w, r, http.StatusBadRequest, "invalid "+IdempotencyHeader)
				return
			}
			scoped := sessionID(r.Context()) + ":" + key

			existing, err := idemp.Get(r.Context(), scoped)
			if err != nil {
				requestLogger(r, logger).Warn("idempotency lookup failed: ", err)
			}
			if existing != nil {
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.Header().Set("Idempotent-Replayed", "true")
				w.WriteHeader(existing.Status)
				w.Write(existing.Result)
				return
			}

			cw := &captureWriter{WrapResponseWriter: middleware.NewWrapResponseWriter(w, r.ProtoMajor)}
			next.ServeHTTP(cw, r)

			status := cw.Status()
			if status >= 200 && status < 300 {
				resp := idempotency.Response{Status: status, Result: cw.buf.Bytes()}
				if err := idemp.Set(r.Context(), scoped, resp); err != nil {
					requestLogger(r, logger).Warn("idempotency store failed: ", err)
				}
			}
		})
	}
}

type Limiter interface {
	Allow(ctx context.Context, key string, rate int, period time.Duration) (bool, error)
}

// RateLimitMiddleware limits per user when the caller is known and per client
// address otherwise. Limiter errors let the request through.
func RateLimitMiddleware(rl Limiter, perMinute int, logger observability.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "ip:" + clientIP(r)
			if uid := userID(r.Context()); uid != "" {
				key = "user:" + uid
			}
			ok, err := rl.Allow(r.Context(), key, perMinute, time.Minute)
			if err != nil {
				requestLogger(r, logger).Warn("rate limiter unavailable: ", err)
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				observability.RateLimitExceeded.Inc()
				respondError(w, r, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func TracingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		tracer := observability.Tracer("http")
		ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path)
		defer span.End()

		span.SetAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.url", r.URL.String()),
		)
		if sid := r.Header.Get(SessionHeader); sid != "" {
			span.SetAttributes(attribute.String("gatherly.session_id", sid))
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
