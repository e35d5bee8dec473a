package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bloodbank/config"
	"bloodbank/live"
	"bloodbank/middleware"
	"bloodbank/ratelim"
	"bloodbank/routes"

	"github.com/stretchr/testify/assert"
)

func TestOriginChecker(t *testing.T) {
	assert.Nil(t, originChecker(nil))
	assert.Nil(t, originChecker([]string{"*"}))

	check := originChecker([]string{"https://bloodbank.example"})
	req := httptest.NewRequest(http.MethodGet, "/api/camps/c1/live", nil)
	assert.True(t, check(req))
	req.Header.Set("Origin", "https://bloodbank.example")
	assert.True(t, check(req))
	req.Header.Set("Origin", "https://evil.example")
	assert.False(t, check(req))
}

func TestHandlerChain(t *testing.T) {
	cfg := &config.Config{Server: config.ServerConfig{CORSOrigins: []string{"*"}}}
	h := newHandler(cfg, routes.Deps{
		Tokens:      middleware.NewTokens([]byte("secret"), time.Hour),
		RateLimiter: ratelim.NewRateLimiter(60, 5),
		StaticDir:   t.TempDir(),
		Hub:         live.NewHub(nil),
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/donor/stats", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRootCommandTree(t *testing.T) {
	root := rootCmd()
	for _, name := range []string{"serve", "reconcile", "create-admin"} {
		cmd, _, err := root.Find([]string{name})
		assert.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
}
