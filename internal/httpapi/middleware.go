// ABOUTME: HTTP middleware stack: request ids, recovery, timeouts, logging, sessions.
// ABOUTME: The session middleware attaches the caller identity for owner checks.
package httpapi

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/harperreed/painlog/internal/session"
)

const requestTimeout = 60 * time.Second

type chiRouter interface {
	Use(middlewares ...func(http.Handler) http.Handler)
}

func applyMiddlewares(r chiRouter, log *zap.Logger) {
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(requestTimeout))
	r.Use(requestLogger(log))
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			log.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", chimiddleware.GetReqID(r.Context())),
			)
		})
	}
}

// sessionMiddleware verifies a bearer token when one is sent. A token that
// fails verification is always rejected. Without a token the request passes
// through anonymously unless required is set.
func sessionMiddleware(sessions *session.Manager, required bool, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				if required {
					writeError(w, http.StatusUnauthorized, CodeUnauthorized, msgUnauthorized)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			token, ok := session.BearerToken(header)
			if !ok {
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, msgUnauthorized)
				return
			}
			identity, err := sessions.Parse(token)
			if err != nil {
				log.Debug("session validation failed", zap.Error(err))
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, msgUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(session.WithIdentity(r.Context(), identity)))
		})
	}
}
