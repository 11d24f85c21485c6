package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	iphoneUA  = "Mozilla/5.0 (iPhone; CPU iPhone OS 16_5 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.5 Mobile/15E148 Safari/604.1"
	desktopUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

func TestParseUserAgent(t *testing.T) {
	info := ParseUserAgent(iphoneUA)
	assert.Equal(t, "mobile", info.DeviceType)
	assert.Equal(t, "ios", info.Platform)
	assert.False(t, info.IsBot)

	info = ParseUserAgent(desktopUA)
	assert.Equal(t, "desktop", info.DeviceType)
	assert.Equal(t, "windows", info.Platform)
	assert.Equal(t, "Chrome", info.Browser)

	info = ParseUserAgent("")
	assert.Equal(t, "unknown", info.DeviceType)
	assert.Equal(t, "Unknown", info.Browser)
}

func TestDeviceInfoMap(t *testing.T) {
	m := ParseUserAgent(desktopUA).Map()
	assert.Equal(t, "desktop", m["device_type"])
	assert.Equal(t, false, m["is_bot"])
}

func TestGenerateSecrets(t *testing.T) {
	access, refresh, err := GenerateJWTSecrets()
	require.NoError(t, err)
	assert.Len(t, access, 64)
	assert.NotEqual(t, access, refresh)

	webhook, err := GenerateWebhookSecret()
	require.NoError(t, err)
	assert.Len(t, webhook, 48)
}

func TestGetRealIP(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		headers  map[string]string
		remote   string
		expected string
	}{
		{"x-real-ip public", map[string]string{"X-Real-IP": "203.0.113.7"}, "10.0.0.1:1234", "203.0.113.7"},
		{"forwarded skips private", map[string]string{"X-Forwarded-For": "10.1.1.1, 198.51.100.4"}, "10.0.0.1:1234", "198.51.100.4"},
		{"no proxy headers", map[string]string{}, "203.0.113.9:80", "203.0.113.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest("GET", "/", nil)
			c.Request.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				c.Request.Header.Set(k, v)
			}
			assert.Equal(t, tt.expected, GetRealIP(c))
		})
	}
}
