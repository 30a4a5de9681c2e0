// Package device summarises the scanning device from its User-Agent so scan
// records show which handset accepted a voucher.
package device

import (
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"reliefpass/pkg/requestcontext"
)

const unknownDevice = "Unknown Device"

// Middleware stores a device summary in the request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithDevice(r.Context(), ParseUserAgent(r.Header.Get("User-Agent")))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ParseUserAgent renders "<browser> on <platform>" for display. Unparseable
// agents still yield a non-empty string.
func ParseUserAgent(userAgent string) string {
	if strings.TrimSpace(userAgent) == "" {
		return unknownDevice
	}
	ua := useragent.New(userAgent)
	browser, _ := ua.Browser()
	if browser == "" {
		browser = "Unknown Browser"
	}

	platform := ua.OS()
	if ua.Mobile() && ua.Platform() != "" && !strings.Contains(platform, ua.Platform()) {
		platform = ua.Platform()
	}
	if platform == "" {
		platform = ua.Platform()
	}
	if platform == "" {
		platform = "Unknown OS"
	}
	return strings.TrimSpace(browser + " on " + platform)
}
