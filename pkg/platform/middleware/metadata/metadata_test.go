package metadata

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"gatepass/pkg/requestcontext"
)

func TestClientIPFromRequest(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded chain takes first", map[string]string{"X-Forwarded-For": "1.2.3.4, 10.0.0.1"}, "9.9.9.9:1", "1.2.3.4"},
		{"real ip header", map[string]string{"X-Real-IP": " 5.6.7.8 "}, "9.9.9.9:1", "5.6.7.8"},
		{"remote addr v4", nil, "127.0.0.1:5000", "127.0.0.1"},
		{"remote addr v6", nil, "[::1]:5000", "::1"},
		{"remote addr without port", nil, "10.1.1.1", "10.1.1.1"},
		{"empty forwarded hop falls through", map[string]string{"X-Forwarded-For": " ,10.0.0.1"}, "9.9.9.9:1", "9.9.9.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIPFromRequest(req))
		})
	}
}

func TestClientMetadata(t *testing.T) {
	const chromeAndroid = "Mozilla/5.0 (Linux; Android 13; Pixel 7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36"

	var ip, ua, device string
	h := ClientMetadata(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip = requestcontext.ClientIP(r.Context())
		ua = requestcontext.UserAgent(r.Context())
		device = requestcontext.Device(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.20:4444"
	req.Header.Set("User-Agent", chromeAndroid)
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "192.168.1.20", ip)
	assert.Equal(t, chromeAndroid, ua)
	assert.Contains(t, device, "Chrome")
}

func TestDeviceLabel_Empty(t *testing.T) {
	assert.Equal(t, "unknown", DeviceLabel(""))
}
