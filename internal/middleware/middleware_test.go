package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"frp-manager/internal/models"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type stubAuth map[string]*models.Caller

func (s stubAuth) Authenticate(token string) (*models.Caller, error) {
	if c, ok := s[token]; ok {
		return c, nil
	}
	return nil, errors.New("bad token")
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	auth := stubAuth{
		"admin-token": {ID: "1", Username: "admin", Role: models.RoleAdmin},
		"user-token":  {ID: "2", Username: "bob", Role: models.RoleUser},
	}
	r := gin.New()
	r.GET("/me", Auth(auth), func(c *gin.Context) {
		c.String(http.StatusOK, GetCaller(c).Username)
	})
	r.GET("/admin", Auth(auth), AdminOnly(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func do(r http.Handler, path, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r := newRouter()

	cases := []struct {
		path, header string
		want         int
	}{
		{"/me", "", http.StatusUnauthorized},
		{"/me", "Bearer nope", http.StatusUnauthorized},
		{"/me", "Bearer user-token", http.StatusOK},
		{"/me?token=user-token", "", http.StatusOK},
		{"/admin", "Bearer user-token", http.StatusForbidden},
		{"/admin", "Bearer admin-token", http.StatusNoContent},
	}
	for _, c := range cases {
		if w := do(r, c.path, c.header); w.Code != c.want {
			t.Errorf("GET %s (%q) = %d, want %d", c.path, c.header, w.Code, c.want)
		}
	}
}

func TestRateLimiterPerIP(t *testing.T) {
	rl := NewRateLimiter(rate.Every(rate.InfDuration), 2)
	if !rl.Allow("1.1.1.1") || !rl.Allow("1.1.1.1") {
		t.Fatal("burst should be allowed")
	}
	if rl.Allow("1.1.1.1") {
		t.Error("third request should be limited")
	}
	if !rl.Allow("2.2.2.2") {
		t.Error("other IPs have their own bucket")
	}

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/login", NewRateLimiter(rate.Every(rate.InfDuration), 1).Middleware(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	codes := []int{}
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Errorf("codes = %v", codes)
	}
}
