package app

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func metricsRouter(username, password string) *gin.Engine {
	router := gin.New()
	router.GET("/metrics", metricsAuthMiddleware(username, password), func(c *gin.Context) {
		c.String(http.StatusOK, "metrics")
	})
	return router
}

func TestMetricsAuthMiddlewareOpenWithoutPassword(t *testing.T) {
	w := httptest.NewRecorder()
	metricsRouter("prometheus", "").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "metrics", w.Body.String())
}

func TestMetricsAuthMiddleware(t *testing.T) {
	router := metricsRouter("prometheus", "secret123")

	tests := []struct {
		name     string
		auth     bool
		username string
		password string
		want     int
	}{
		{"valid", true, "prometheus", "secret123", http.StatusOK},
		{"wrong username", true, "grafana", "secret123", http.StatusUnauthorized},
		{"wrong password", true, "prometheus", "nope", http.StatusUnauthorized},
		{"empty password", true, "prometheus", "", http.StatusUnauthorized},
		{"no header", false, "", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			if tt.auth {
				req.SetBasicAuth(tt.username, tt.password)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusUnauthorized {
				assert.Equal(t, `Basic realm="metrics"`, w.Header().Get("WWW-Authenticate"))
			}
		})
	}
}
