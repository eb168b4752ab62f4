package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/roastsync/roastery/auth"
	"github.com/roastsync/roastery/roastery"
)

type ctxKey string

const userKey ctxKey = "user"

// currentUser returns the user set by RequireUser. Zero outside it.
func currentUser(ctx context.Context) roastery.User {
	u, _ := ctx.Value(userKey).(roastery.User)
	return u
}

// accessLog logs one line per request.
func accessLog(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("client_ip", r.RemoteAddr),
			)
		})
	}
}

// RequireUser resolves the bearer token to an active user.
func (h *Handler) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			token, ok = strings.CutPrefix(header, "bearer ")
		}
		if !ok || strings.TrimSpace(token) == "" {
			h.handleError(w, r, "unauthorized", auth.ErrInvalidToken)
			return
		}

		u, err := h.auth.Authenticate(r.Context(), strings.TrimSpace(token))
		if err != nil {
			h.handleError(w, r, "failed to authenticate", err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, u)))
	})
}

// RequireSuperuser must run after RequireUser.
func (h *Handler) RequireSuperuser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !currentUser(r.Context()).IsSuperuser {
			writeError(w, http.StatusForbidden, "insufficient privileges", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
