package common

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.9:5555"
	require.Equal(t, "10.0.0.9", ClientIP(req))

	req.Header.Set("X-Real-IP", "192.0.2.1")
	require.Equal(t, "192.0.2.1", ClientIP(req))

	req.Header.Set("X-Forwarded-For", "198.51.100.7, 10.0.0.1")
	require.Equal(t, "198.51.100.7", ClientIP(req))
}

func TestRequestOrigin(t *testing.T) {
	cases := map[string]struct {
		origin  string
		referer string
		want    string
	}{
		"origin":           {origin: "https://shop.example", want: "https://shop.example"},
		"referer fallback": {referer: "https://shop.example:8443/cart.html?x=1", want: "https://shop.example:8443"},
		"origin wins":      {origin: "http://a.example", referer: "https://b.example/page", want: "http://a.example"},
		"null origin":      {origin: "null", referer: "https://b.example/page", want: "https://b.example"},
		"relative referer": {referer: "/cart.html", want: ""},
		"bad scheme":       {origin: "file:///etc/passwd", want: ""},
		"none":             {want: ""},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/initialize-payment", nil)
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			if tc.referer != "" {
				req.Header.Set("Referer", tc.referer)
			}
			require.Equal(t, tc.want, RequestOrigin(req))
		})
	}
}
