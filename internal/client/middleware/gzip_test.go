package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestGzip(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Gzip())
	body := strings.Repeat("x", 2048)
	r.GET("/v1/status", func(c *gin.Context) { c.String(http.StatusOK, body) })
	r.GET(EventsPath, func(c *gin.Context) { c.String(http.StatusOK, body) })

	tests := []struct {
		name           string
		path           string
		acceptEncoding string
		wantEncoding   string
	}{
		{"json endpoint", "/v1/status", "gzip", "gzip"},
		{"client without gzip", "/v1/status", "", ""},
		{"event stream", EventsPath, "gzip", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.acceptEncoding != "" {
				req.Header.Set("Accept-Encoding", tt.acceptEncoding)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.wantEncoding, w.Header().Get("Content-Encoding"))
		})
	}
}
