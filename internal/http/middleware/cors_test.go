package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestCORSAllowsConfiguredOrigins(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := map[string]string{
		"http://localhost:5173":   "http://localhost:5173",
		"https://dash.example.io": "https://dash.example.io",
		"https://evil.example":    "",
	}
	for origin, want := range cases {
		r := gin.New()
		r.Use(CORS("https://dash.example.io"))
		r.OPTIONS("/api/context", func(c *gin.Context) { c.Status(http.StatusNoContent) })

		req := httptest.NewRequest(http.MethodOptions, "/api/context", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != want {
			t.Fatalf("allow-origin for %s: want=%q got=%q", origin, want, got)
		}
	}
}
