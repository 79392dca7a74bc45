//go:build integration

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/school-event-seating/internal/config"
	"github.com/iliyamo/school-event-seating/internal/testutil/containers"
)

func TestTokenBucketWithRedis(t *testing.T) {
	rdb := containers.NewRedisClient(t)
	cfg := config.RateLimitConfig{
		Enabled: true, Capacity: 2, RefillTokens: 1, RefillInterval: time.Minute,
		TTL: 5 * time.Minute, KeyStrategy: "ip", Prefix: "test:rl",
	}
	e := echo.New()
	e.POST("/v1/registrations", func(c echo.Context) error { return c.NoContent(http.StatusCreated) },
		NewTokenBucket(cfg, rdb, nil))

	codes := make([]int, 3)
	for i := range codes {
		req := httptest.NewRequest(http.MethodPost, "/v1/registrations", nil)
		req.Header.Set(echo.HeaderXRealIP, "192.0.2.1")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		codes[i] = rec.Code
		if i == 2 {
			assert.NotEmpty(t, rec.Header().Get("Retry-After"))
		}
	}
	assert.Equal(t, []int{http.StatusCreated, http.StatusCreated, http.StatusTooManyRequests}, codes)
}

func TestRedisCacheWithPurge(t *testing.T) {
	rdb := containers.NewRedisClient(t)
	cfg := config.CacheConfig{
		Enabled: true, Methods: map[string]bool{http.MethodGet: true},
		TTL: time.Minute, Prefix: "test:cache", MaxBodyBytes: 1 << 20,
	}
	var hits atomic.Int32
	e := echo.New()
	e.GET("/v1/seats", func(c echo.Context) error {
		hits.Add(1)
		return c.JSON(http.StatusOK, echo.Map{"n": hits.Load()})
	}, NewRedisCache(cfg, rdb, nil))

	get := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/seats", nil))
		return rec
	}

	first := get()
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	second := get()
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.EqualValues(t, 1, hits.Load())

	NewCachePurger(cfg, rdb, nil)(context.Background())
	third := get()
	assert.Equal(t, "MISS", third.Header().Get("X-Cache"))
	assert.EqualValues(t, 2, hits.Load())
}
