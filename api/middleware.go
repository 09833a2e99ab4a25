package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"github.com/warp/attendance-engine/auth"
	"github.com/warp/attendance-engine/generic"
)

// =============================================================================
// ACCESS GATE MIDDLEWARE
// =============================================================================

type principalKey struct{}

// LegacyTokenHeader is the header the browser UI sends.
const LegacyTokenHeader = "x-auth-token"

// tokenFrom prefers "Authorization: Bearer" and falls back to x-auth-token.
func tokenFrom(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return strings.TrimSpace(r.Header.Get(LegacyTokenHeader))
}

// authenticate runs the gate and stores the principal if allow accepts it.
func (h *Handler) authenticate(allow func(*auth.Principal) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := h.gate.Authenticate(tokenFrom(r))
			if err != nil {
				h.fail(w, r, err)
				return
			}
			if !allow(p) {
				h.fail(w, r, generic.ErrForbidden)
				return
			}
			ctx := context.WithValue(r.Context(), principalKey{}, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireEmployee admits employee sessions only.
func (h *Handler) RequireEmployee(next http.Handler) http.Handler {
	return h.authenticate(func(p *auth.Principal) bool { return p.Employee != nil })(next)
}

// RequireAdmin admits the administrator session only.
func (h *Handler) RequireAdmin(next http.Handler) http.Handler {
	return h.authenticate(func(p *auth.Principal) bool { return p.Admin })(next)
}

// PrincipalFrom returns the caller stored by the gate middleware.
func PrincipalFrom(ctx context.Context) *auth.Principal {
	p, _ := ctx.Value(principalKey{}).(*auth.Principal)
	return p
}

// =============================================================================
// REQUEST LOGGING
// =============================================================================

// RequestLogger writes one structured entry per request.
func RequestLogger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				entry := log.WithFields(logrus.Fields{
					"request_id": middleware.GetReqID(r.Context()),
					"method":     r.Method,
					"path":       r.URL.Path,
					"status":     ww.Status(),
					"bytes":      ww.BytesWritten(),
					"duration":   time.Since(start).String(),
				})
				switch {
				case ww.Status() >= 500:
					entry.Error("request failed")
				case ww.Status() >= 400:
					entry.Info("request rejected")
				default:
					entry.Debug("request served")
				}
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
