package common

import (
	"net"
	"net/http"
	"net/url"
	"strings"
)

// ClientIP determines the caller address used for rate-limit keys. chi's RealIP
// middleware normally rewrites RemoteAddr first; the headers are a fallback for
// handlers mounted without it.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if candidate := strings.TrimSpace(first); candidate != "" {
			return candidate
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}

// RequestOrigin returns scheme://host of the page that issued the request,
// taken from the Origin header or, failing that, the Referer. Anything that
// is not an absolute http(s) URL yields "".
func RequestOrigin(r *http.Request) string {
	if r == nil {
		return ""
	}
	for _, raw := range []string{r.Header.Get("Origin"), r.Header.Get("Referer")} {
		raw = strings.TrimSpace(raw)
		if raw == "" || raw == "null" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			continue
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			continue
		}
		return u.Scheme + "://" + u.Host
	}
	return ""
}
