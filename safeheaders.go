package profilegen

import (
	"net/http"
	"net/url"
	"strings"
)

// SafeHeaderMiddleware sets the usual security headers. The preview image comes straight
// from the rendering service, so its origin has to be allowed in img-src.
func SafeHeaderMiddleware(serviceURL string) func(http.Handler) http.Handler {
	imgSrc := []string{"'self'"}
	if origin := originOf(serviceURL); origin != "" {
		imgSrc = append(imgSrc, origin)
	}
	csp := "default-src 'self'; img-src " + strings.Join(imgSrc, " ") + "; frame-ancestors 'none'"
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Security-Policy", csp)
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
			h.ServeHTTP(w, r)
		})
	}
}

func originOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
