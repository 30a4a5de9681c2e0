// Package admin guards the operator surface: program management, ceiling
// changes, review and manual sweeps.
package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	dErrors "reliefpass/pkg/domain-errors"
	"reliefpass/pkg/platform/httputil"
	request "reliefpass/pkg/platform/middleware/request"
)

// HeaderName carries the shared operator token.
const HeaderName = "X-Admin-Token"

// RequireAdminToken answers 401 when the header is absent and 403 when it
// does not match. With no token configured the operator surface is closed.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	expected := []byte(expectedToken)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			presented := r.Header.Get(HeaderName)
			switch {
			case presented == "":
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "admin token required"))
				return
			case len(expected) == 0:
				logger.WarnContext(ctx, "admin request refused, no admin token configured",
					"path", r.URL.Path,
					"request_id", request.GetRequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "admin API disabled"))
				return
			case subtle.ConstantTimeCompare([]byte(presented), expected) != 1:
				logger.WarnContext(ctx, "admin token mismatch",
					"path", r.URL.Path,
					"request_id", request.GetRequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "admin token rejected"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
