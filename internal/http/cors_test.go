package http

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCORSMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name    string
		enabled bool
		origins string
		wantNil bool
	}{
		{name: "Disabled", enabled: false, origins: "https://chart.example.org", wantNil: true},
		{name: "NoOrigins", enabled: true, origins: "", wantNil: true},
		{name: "WildcardOnly", enabled: true, origins: "*", wantNil: true},
		{name: "Origins", enabled: true, origins: "https://chart.example.org, https://admin.example.org"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			middleware := createCORSMiddleware(tt.enabled, tt.origins, logger)
			if tt.wantNil {
				assert.Nil(t, middleware)
				return
			}
			assert.NotNil(t, middleware)
		})
	}
}

func TestParseOrigins(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{name: "Empty", input: "", expected: nil},
		{name: "CommaSeparated", input: "https://a.example.org,https://b.example.org",
			expected: []string{"https://a.example.org", "https://b.example.org"}},
		{name: "TrimsWhitespace", input: " https://a.example.org , ", expected: []string{"https://a.example.org"}},
		{name: "DropsWildcard", input: "*,https://a.example.org", expected: []string{"https://a.example.org"}},
		{name: "DropsDuplicates", input: "https://a.example.org,https://a.example.org",
			expected: []string{"https://a.example.org"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseOrigins(tt.input))
		})
	}
}

func TestCORSIntegration_Preflight(t *testing.T) {
	middleware := createCORSMiddleware(true, "https://chart.example.org", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NotNil(t, middleware)

	router := gin.New()
	router.Use(middleware)
	router.POST("/v1/patients/:patient_id/access/verify", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/v1/patients/42/access/verify", nil)
	req.Header.Set("Origin", "https://chart.example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://chart.example.org", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
}

func TestCORSIntegration_UnknownOrigin(t *testing.T) {
	middleware := createCORSMiddleware(true, "https://chart.example.org", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NotNil(t, middleware)

	router := gin.New()
	router.Use(middleware)
	router.GET("/v1/patients/:patient_id/access", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/patients/42/access", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
