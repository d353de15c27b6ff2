package utils

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contextWithHeaders(headers map[string]string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	c.Request = req
	return c
}

func TestGetRealIP(t *testing.T) {
	t.Run("Public X-Real-IP", func(t *testing.T) {
		c := contextWithHeaders(map[string]string{"X-Real-IP": "203.0.113.9"})
		assert.Equal(t, "203.0.113.9", GetRealIP(c))
	})

	t.Run("First public forwarded hop", func(t *testing.T) {
		c := contextWithHeaders(map[string]string{"X-Forwarded-For": "192.168.1.5, 198.51.100.7, 10.0.0.1"})
		assert.Equal(t, "198.51.100.7", GetRealIP(c))
	})

	t.Run("All private forwarded", func(t *testing.T) {
		c := contextWithHeaders(map[string]string{"X-Forwarded-For": "192.168.1.5, 10.0.0.1"})
		assert.Equal(t, "192.168.1.5", GetRealIP(c))
	})

	t.Run("Fallback to remote addr", func(t *testing.T) {
		c := contextWithHeaders(nil)
		assert.Equal(t, "10.1.2.3", GetRealIP(c))
	})
}

func TestGetUserAgent(t *testing.T) {
	c := contextWithHeaders(nil)
	assert.Equal(t, "Unknown", GetUserAgent(c))

	c = contextWithHeaders(map[string]string{"User-Agent": "resortctl/1.0"})
	assert.Equal(t, "resortctl/1.0", GetUserAgent(c))
}

func TestIsPrivateIP(t *testing.T) {
	assert.True(t, IsPrivateIP(net.ParseIP("172.16.4.1")))
	assert.False(t, IsPrivateIP(net.ParseIP("8.8.8.8")))
	assert.False(t, IsPrivateIP(nil))
}

func TestParseUserAgent(t *testing.T) {
	t.Run("Android phone", func(t *testing.T) {
		info := ParseUserAgent("Mozilla/5.0 (Linux; Android 12; Pixel 6) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/112.0.0.0 Mobile Safari/537.36")
		assert.Equal(t, "mobile", info.DeviceType)
		assert.Equal(t, "android", info.Platform)
		assert.Equal(t, "Chrome", info.Browser)
	})

	t.Run("Desktop", func(t *testing.T) {
		info := ParseUserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/112.0.0.0 Safari/537.36")
		assert.Equal(t, "desktop", info.DeviceType)
		assert.Equal(t, "windows", info.Platform)
	})

	t.Run("Unknown", func(t *testing.T) {
		info := ParseUserAgent("")
		assert.Equal(t, "unknown", info.DeviceType)
	})
}

func TestGenerateSecrets(t *testing.T) {
	secret, err := GenerateJWTSecret()
	require.NoError(t, err)
	assert.Len(t, secret, 64)

	token, err := GenerateResetToken()
	require.NoError(t, err)
	assert.Len(t, token, 43)

	other, err := GenerateResetToken()
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}

func TestOTPCodeAndHashing(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := GenerateOTPCode()
		require.NoError(t, err)
		assert.Regexp(t, `^[0-9]{6}$`, code)
	}

	hash := HashSecret("123456")
	assert.Len(t, hash, 64)
	assert.True(t, SecretMatches("123456", hash))
	assert.False(t, SecretMatches("654321", hash))
	assert.False(t, SecretMatches("123456", ""))
}
