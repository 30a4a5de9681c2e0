package testutil

import (
	"net/http"
	"time"

	id "reliefpass/pkg/domain"
	"reliefpass/pkg/requestcontext"
)

// WithStaff puts a staff ID into the request context, as the staff auth
// middleware would after validating a bearer token.
func WithStaff(req *http.Request, staffID id.StaffID) *http.Request {
	return req.WithContext(requestcontext.WithStaffID(req.Context(), staffID))
}

// WithAdminToken sets the admin header checked by the admin middleware.
func WithAdminToken(req *http.Request, token string) *http.Request {
	req.Header.Set("X-Admin-Token", token)
	return req
}

// AtTime pins the request clock.
func AtTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}
