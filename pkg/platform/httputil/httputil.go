// Package httputil holds the JSON envelope helpers shared by every handler.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	dErrors "reliefpass/pkg/domain-errors"
)

// maxBodyBytes caps request bodies; every request in this API is small.
const maxBodyBytes = 1 << 20

// Validatable is implemented by request DTOs that normalise and check
// themselves after decoding.
type Validatable interface {
	Validate() error
}

// ErrorResponse is the wire shape of every error.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err's code to a status. Internal and invariant failures
// never leak their description.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := StatusFor(code)

	resp := ErrorResponse{Error: string(code)}
	if status < http.StatusInternalServerError {
		var de *dErrors.Error
		if errors.As(err, &de) {
			resp.ErrorDescription = de.Message
		}
	}
	if code == dErrors.CodeInvariantViolation {
		resp.Error = string(dErrors.CodeInternal)
	}
	WriteJSON(w, status, resp)
}

// StatusFor translates a domain code into an HTTP status.
func StatusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeBadRequest, dErrors.CodeValidation:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict,
		dErrors.CodeCapacityExceeded,
		dErrors.CodeImmutableCeiling,
		dErrors.CodeProgramNotOpen,
		dErrors.CodeDuplicateEnrollment,
		dErrors.CodeAlreadyIssued,
		dErrors.CodeRegistrationNotApproved:
		return http.StatusConflict
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// DecodeAndPrepare decodes the body into a T, runs its Validate and writes a
// 400 on failure. The bool is false when a response was already written.
func DecodeAndPrepare[T any, PT interface {
	*T
	Validatable
}](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (PT, bool) {
	req := PT(new(T))
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(req); err != nil && !errors.Is(err, io.EOF) {
		logger.WarnContext(ctx, "failed to decode request body",
			"error", err,
			"request_id", requestID,
		)
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid JSON body"))
		return nil, false
	}
	if err := req.Validate(); err != nil {
		logger.InfoContext(ctx, "request validation failed",
			"error", err,
			"request_id", requestID,
		)
		WriteError(w, err)
		return nil, false
	}
	return req, true
}

// PathID parses the chi URL parameter key with parse.
func PathID[T any](r *http.Request, key string, parse func(string) (T, error)) (T, error) {
	return parse(chi.URLParam(r, key))
}
