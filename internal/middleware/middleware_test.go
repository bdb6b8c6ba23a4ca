package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter() *gin.Engine {
	r := gin.New()
	r.Use(LoggingMiddleware())
	r.Use(gin.CustomRecovery(HandlePanics()))
	return r
}

func TestRequireCaller(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantCaller string
	}{
		{name: "present", header: "0xowner", wantStatus: http.StatusOK, wantCaller: "0xowner"},
		{name: "trimmed", header: "  0xaddr1 ", wantStatus: http.StatusOK, wantCaller: "0xaddr1"},
		{name: "missing", header: "", wantStatus: http.StatusUnauthorized},
		{name: "blank", header: "   ", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter()
			var got string
			r.POST("/", RequireCaller(), func(c *gin.Context) {
				got = string(Caller(c))
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.header != "" {
				req.Header.Set(CallerHeader, tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if got != tt.wantCaller {
				t.Errorf("caller = %q, want %q", got, tt.wantCaller)
			}
		})
	}
}

func TestCaller_WithoutMiddleware(t *testing.T) {
	r := newTestRouter()
	var got string
	r.GET("/", func(c *gin.Context) {
		got = string(Caller(c))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if got != "" {
		t.Errorf("Caller() = %q, want empty", got)
	}
}

func TestLoggingMiddleware_RequestID(t *testing.T) {
	r := newTestRouter()
	var seen string
	r.GET("/", func(c *gin.Context) {
		seen = RequestID(c)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if seen == "" {
		t.Fatal("request ID not set")
	}
	if w.Header().Get(RequestIDHeader) != seen {
		t.Errorf("%s header = %q, want %q", RequestIDHeader, w.Header().Get(RequestIDHeader), seen)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if seen != "abc-123" {
		t.Errorf("request ID = %q, want incoming header value", seen)
	}
}

func TestHandlePanics(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{name: "error value", value: errors.New("boom")},
		{name: "string value", value: "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter()
			r.GET("/", func(c *gin.Context) {
				panic(tt.value)
			})

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

			if w.Code != http.StatusInternalServerError {
				t.Errorf("status = %d, want 500", w.Code)
			}
		})
	}
}
