package api

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"jpk2json-service/internal/domain/ports/adapter"
	"jpk2json-service/internal/domain/ports/repository"
	"jpk2json-service/internal/infra/logging"
	"jpk2json-service/internal/infra/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Middleware func(http.Handler) http.Handler

func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

type ctxKey string

const (
	ctxClientIP ctxKey = "client_ip"
	ctxIdentity ctxKey = "identity"
)

// ClientIPFrom returns the resolved origin address of the request.
func ClientIPFrom(ctx context.Context) string {
	if v, ok := ctx.Value(ctxClientIP).(string); ok {
		return v
	}
	return ""
}

// IdentityFrom returns the authenticated identity, or "" for anonymous.
func IdentityFrom(ctx context.Context) string {
	if v, ok := ctx.Value(ctxIdentity).(string); ok {
		return v
	}
	return ""
}

// ClientIP resolves the request origin, preferring proxy headers the way
// the deployment's reverse proxy sets them.
func ClientIP() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			ctx := context.WithValue(r.Context(), ctxClientIP, ip)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		return real
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// IdentityVerifier is implemented by the JWT verifier; it yields "" when
// the request carries no usable credentials.
type IdentityVerifier interface {
	Identity(r *http.Request) string
}

// Identity resolves the bearer identity and leaves a login-attempt audit
// record for every request that carried credentials, valid or not.
func Identity(v IdentityVerifier, audit repository.AuditSink, logger *zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := v.Identity(r)
			if r.Header.Get("Authorization") != "" {
				rec := repository.LoginRecord{
					Identity:  identity,
					ClientIP:  ClientIPFrom(r.Context()),
					Method:    "bearer",
					UserAgent: r.UserAgent(),
					Success:   identity != "",
				}
				if !rec.Success {
					rec.ErrorDetail = "invalid or expired token"
				}
				if err := audit.RecordLogin(r.Context(), rec); err != nil {
					logger.Warn().Err(err).Msg("login audit write failed")
				}
			}
			ctx := context.WithValue(r.Context(), ctxIdentity, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Gate rejects blocked origins before anything else runs. It is the first
// middleware on every protected route, so a blocked address never reaches
// authentication, rate limiting or the handlers.
func Gate(gate adapter.AccessGate, audit repository.AuditSink, logger *zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIPFrom(r.Context())
			if ip == "" {
				ip = clientIP(r)
			}
			if gate.IsBlocked(r.Context(), ip) {
				metrics.IncBlockedRequest()
				if err := audit.RecordBlocked(r.Context(), ip, r.URL.Path); err != nil {
					logger.Warn().Err(err).Msg("blocked-event audit write failed")
				}
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func TraceID(logger *zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tid := uuid.NewString()
			ctx := logging.WithTraceID(r.Context(), tid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RequestLog(logger *zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := logging.With(r.Context(), logger)
			start := time.Now()
			ww := &respWriter{ResponseWriter: w, status: 200}
			next.ServeHTTP(ww, r)
			metrics.IncHTTPRequest(r.Method, strconv.Itoa(ww.status))
			l.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("client_ip", ClientIPFrom(r.Context())).
				Int("status", ww.status).
				Dur("duration", time.Since(start)).
				Msg("http_request")
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func Recover(logger *zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					l := logging.With(r.Context(), logger)
					l.Error().Interface("panic", rec).Msg("panic recovered")
					http.Error(w, "internal error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func Timeout(d time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
