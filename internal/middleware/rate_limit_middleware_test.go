package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
)

// unreachableRedis points at a closed port so every command fails fast.
func unreachableRedis(t *testing.T) redis.UniversalClient {
	t.Helper()
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:       []string{"127.0.0.1:1"},
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRateLimiter_FailsOpenWithoutRedis(t *testing.T) {
	rl := NewRateLimiter(unreachableRedis(t))
	r := gin.New()
	r.POST("/auth/login", rl.Limit(StrictAuthRateLimitConfig(1)), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/upload", rl.LimitByIP(UploadRateLimitConfig()), func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/auth/login", "/auth/login", "/upload"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestStrictAuthRateLimitConfig_Default(t *testing.T) {
	assert.Equal(t, 10, StrictAuthRateLimitConfig(0).MaxRequests)
	assert.Equal(t, 3, StrictAuthRateLimitConfig(3).MaxRequests)
	assert.Equal(t, time.Minute, StrictAuthRateLimitConfig(3).Window)
}
