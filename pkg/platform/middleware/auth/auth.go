package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	id "reliefpass/pkg/domain"
	request "reliefpass/pkg/platform/middleware/request"
	"reliefpass/pkg/requestcontext"
)

// JWTValidator validates a bearer token issued by the identity collaborator.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims is the subset of staff claims the middleware needs.
type JWTClaims struct {
	StaffID string
	JTI     string
}

func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// RequireStaff rejects requests without a valid staff bearer token and puts
// the staff ID into the request context for redemption and lookup.
func RequireStaff(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", request.GetRequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", request.GetRequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			staffID, err := id.ParseStaffID(claims.StaffID)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - malformed staff subject",
					"request_id", request.GetRequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			ctx = requestcontext.WithStaffID(ctx, staffID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
