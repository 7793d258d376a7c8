package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCORS(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name           string
		config         CORSConfig
		origin         string
		method         string
		expectedOrigin string
		expectedStatus int
	}{
		{
			name:           "exact origin match",
			config:         CORSConfig{AllowedOrigins: []string{"https://dash.example.com"}, AllowedMethods: []string{"GET"}},
			origin:         "https://dash.example.com",
			method:         http.MethodGet,
			expectedOrigin: "https://dash.example.com",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "wildcard subdomain match",
			config:         CORSConfig{AllowedOrigins: []string{"*.example.com"}},
			origin:         "https://app.example.com",
			method:         http.MethodGet,
			expectedOrigin: "https://app.example.com",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "wildcard subdomain does not match apex",
			config:         CORSConfig{AllowedOrigins: []string{"*.example.com"}},
			origin:         "https://example.com",
			method:         http.MethodGet,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "star allows any origin",
			config:         DefaultCORSConfig(),
			origin:         "http://localhost:5173",
			method:         http.MethodGet,
			expectedOrigin: "http://localhost:5173",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "preflight short-circuits",
			config:         DefaultCORSConfig(),
			origin:         "http://localhost:5173",
			method:         http.MethodOptions,
			expectedOrigin: "http://localhost:5173",
			expectedStatus: http.StatusNoContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/score", nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()

			CORS(tt.config)(ok).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedOrigin, w.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, "300", w.Header().Get("Access-Control-Max-Age"))
		})
	}
}

func TestDefaultCORSConfig(t *testing.T) {
	cfg := DefaultCORSConfig()
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Contains(t, cfg.AllowedHeaders, RequestIDHeader)
	assert.False(t, cfg.AllowCredentials)
}
