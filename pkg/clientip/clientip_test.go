package clientip_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/botframe/billingcore/pkg/clientip"
)

func TestGetIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "remote addr fallback",
			remoteAddr: "203.0.113.7:4821",
			want:       "203.0.113.7",
		},
		{
			name:       "remote addr without port",
			remoteAddr: "203.0.113.7",
			want:       "203.0.113.7",
		},
		{
			name:       "cloudflare header wins",
			remoteAddr: "10.0.0.1:80",
			headers: map[string]string{
				"CF-Connecting-IP": "198.51.100.2",
				"X-Forwarded-For":  "192.0.2.9",
			},
			want: "198.51.100.2",
		},
		{
			name:       "digitalocean header",
			remoteAddr: "10.0.0.1:80",
			headers:    map[string]string{"DO-Connecting-IP": "198.51.100.3"},
			want:       "198.51.100.3",
		},
		{
			name:       "first valid forwarded entry",
			remoteAddr: "10.0.0.1:80",
			headers:    map[string]string{"X-Forwarded-For": "garbage, 192.0.2.9, 10.0.0.2"},
			want:       "192.0.2.9",
		},
		{
			name:       "x-real-ip",
			remoteAddr: "10.0.0.1:80",
			headers:    map[string]string{"X-Real-IP": "192.0.2.10"},
			want:       "192.0.2.10",
		},
		{
			name:       "spoofed header ignored",
			remoteAddr: "203.0.113.7:4821",
			headers:    map[string]string{"CF-Connecting-IP": "not-an-ip"},
			want:       "203.0.113.7",
		},
		{
			name:       "ipv6 normalized",
			remoteAddr: "[2001:db8::1]:443",
			want:       "2001:db8::1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, clientip.GetIP(req))
		})
	}
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	var seen string
	h := clientip.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = clientip.GetIPFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.4:9000"
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "198.51.100.4", seen)
}

func TestGetIPFromContext_Missing(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, clientip.GetIPFromContext(req.Context()))
}
