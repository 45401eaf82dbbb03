package adminauth

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gochang/agri-notify/internal/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=1,p=4$"))

	other, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, hash, other, "salt is random")
}

func TestVerifyPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)

	ok, err := VerifyPassword("s3cret", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("wrong", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyPasswordMalformed(t *testing.T) {
	for _, hash := range []string{
		"",
		"plain",
		"$bcrypt$v=19$m=65536,t=1,p=4$c2FsdA$a2V5",
		"$argon2id$v=18$m=65536,t=1,p=4$c2FsdA$a2V5",
		"$argon2id$v=19$m=x,t=1,p=4$c2FsdA$a2V5",
		"$argon2id$v=19$m=0,t=1,p=4$c2FsdA$a2V5",
		"$argon2id$v=19$m=65536,t=1,p=4$!!$a2V5",
		"$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$",
	} {
		_, err := VerifyPassword("x", hash)
		assert.ErrorIs(t, err, ErrMalformedHash, hash)
	}
}

func newRouter(t *testing.T, hash string) *gin.Engine {
	t.Helper()
	r := gin.New()
	r.POST("/admin", Middleware("admin", hash, logger.NewWithWriter("error", io.Discard)), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return r
}

func TestMiddleware(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	r := newRouter(t, hash)

	tests := []struct {
		name     string
		user     string
		pass     string
		noAuth   bool
		wantCode int
	}{
		{name: "valid", user: "admin", pass: "s3cret", wantCode: http.StatusOK},
		{name: "wrong password", user: "admin", pass: "nope", wantCode: http.StatusUnauthorized},
		{name: "wrong user", user: "root", pass: "s3cret", wantCode: http.StatusUnauthorized},
		{name: "no credentials", noAuth: true, wantCode: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/admin", nil)
			if !tt.noAuth {
				req.SetBasicAuth(tt.user, tt.pass)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantCode == http.StatusUnauthorized {
				assert.Equal(t, `Basic realm="admin"`, w.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestMiddlewareWithoutHashRefusesEverything(t *testing.T) {
	r := newRouter(t, "")
	req := httptest.NewRequest(http.MethodPost, "/admin", nil)
	req.SetBasicAuth("admin", "")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
