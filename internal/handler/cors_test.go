package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newCORSRouter(origins ...string) *gin.Engine {
	router := gin.New()
	router.Use(CORSMiddleware(origins, []string{"GET", "POST", "DELETE"}, []string{"Content-Type", "Authorization"}))
	router.GET("/api/favourite/top", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router
}

func TestCORSMiddleware_AllowedOrigin(t *testing.T) {
	router := newCORSRouter("http://localhost:3000")

	req := httptest.NewRequest(http.MethodGet, "/api/favourite/top", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORSMiddleware_UnknownOrigin(t *testing.T) {
	router := newCORSRouter("http://localhost:3000")

	req := httptest.NewRequest(http.MethodGet, "/api/favourite/top", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	router := newCORSRouter("*")

	req := httptest.NewRequest(http.MethodOptions, "/api/favourite/top", nil)
	req.Header.Set("Origin", "http://anywhere.example")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST, DELETE", rec.Header().Get("Access-Control-Allow-Methods"))
}
