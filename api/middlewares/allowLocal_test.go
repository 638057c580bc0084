package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestOnlyAllowLocal(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/probe", OnlyAllowLocal, func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	var tests = []struct {
		remote string
		want   int
	}{
		{"127.0.0.1:12345", http.StatusOK},
		{"[::1]:12345", http.StatusOK},
		{"10.0.0.1:12345", http.StatusForbidden},
		{"192.168.1.2:80", http.StatusForbidden},
	}

	for _, test := range tests {
		req, _ := http.NewRequest("GET", "/probe", nil)
		req.RemoteAddr = test.remote
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != test.want {
			t.Errorf("from %s: status %d, want %d", test.remote, w.Code, test.want)
		}
	}
}
