package gin_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	ginpkg "github.com/gin-gonic/gin"
	infragin "github.com/jonesrussell/north-cloud/affiliate-engine/infrastructure/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveHealth(t *testing.T, checks map[string]infragin.HealthChecker) (int, infragin.HealthResponse) {
	t.Helper()

	router := ginpkg.New()
	infragin.RegisterHealthRoutes(router, infragin.HealthOptions{
		ServiceName:    "affiliate-engine",
		ServiceVersion: "test",
		Checks:         checks,
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", http.NoBody))

	var body infragin.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func ok(context.Context) error   { return nil }
func down(context.Context) error { return errors.New("dial tcp: connection refused") }

func TestHealth_AllHealthy(t *testing.T) {
	code, body := serveHealth(t, map[string]infragin.HealthChecker{
		"database": infragin.DatabaseHealthChecker(ok),
	})

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, infragin.HealthStatusHealthy, body.Status)
	assert.Equal(t, "affiliate-engine", body.Service)
}

func TestHealth_RedisDownDegrades(t *testing.T) {
	code, body := serveHealth(t, map[string]infragin.HealthChecker{
		"database": infragin.DatabaseHealthChecker(ok),
		"redis":    infragin.RedisHealthChecker(down),
	})

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, infragin.HealthStatusDegraded, body.Status)
	assert.Equal(t, infragin.HealthStatusDegraded, body.Checks["redis"].Status)
}

func TestHealth_DatabaseDownIsUnavailable(t *testing.T) {
	code, body := serveHealth(t, map[string]infragin.HealthChecker{
		"database": infragin.DatabaseHealthChecker(down),
		"redis":    infragin.RedisHealthChecker(ok),
	})

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, infragin.HealthStatusUnhealthy, body.Status)
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	router := ginpkg.New()
	router.Use(infragin.CORSMiddleware(infragin.CORSConfig{
		Enabled:        true,
		AllowedOrigins: []string{"https://dashboard.example.com"},
	}))
	router.GET("/api/v1/links", func(c *ginpkg.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/links", http.NoBody)
	req.Header.Set("Origin", "https://dashboard.example.com")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://dashboard.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "43200", w.Header().Get("Access-Control-Max-Age"))
}
