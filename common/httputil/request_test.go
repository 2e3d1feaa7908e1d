package httputil

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		{
			name:       "X-Forwarded-For single IP",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.195"},
			remoteAddr: "10.0.0.1:1234",
			want:       "203.0.113.195",
		},
		{
			name:       "X-Forwarded-For chain takes the client",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.195, 70.41.3.18, 150.172.238.178"},
			remoteAddr: "10.0.0.1:1234",
			want:       "203.0.113.195",
		},
		{
			name:       "X-Real-IP",
			headers:    map[string]string{"X-Real-IP": " 198.51.100.7 "},
			remoteAddr: "10.0.0.1:1234",
			want:       "198.51.100.7",
		},
		{
			name:       "X-Forwarded-For wins over X-Real-IP",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.1", "X-Real-IP": "198.51.100.7"},
			remoteAddr: "10.0.0.1:1234",
			want:       "203.0.113.1",
		},
		{
			name:       "RemoteAddr fallback",
			remoteAddr: "10.0.0.1:1234",
			want:       "10.0.0.1:1234",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/submit", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, GetClientIP(req))
		})
	}
}

func TestClientKey(t *testing.T) {
	tests := []struct {
		remoteAddr string
		want       string
	}{
		{"10.0.0.1:1234", "10.0.0.1"},
		{"[2001:db8::1]:443", "2001:db8::1"},
		{"10.0.0.1", "10.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.remoteAddr, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/submit", nil)
			req.RemoteAddr = tt.remoteAddr
			assert.Equal(t, tt.want, ClientKey(req))
		})
	}
}
