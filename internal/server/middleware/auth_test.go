package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func authedStatus(t *testing.T, apiKey string, decorate func(*http.Request)) int {
	t.Helper()
	handler := Auth(apiKey)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	if decorate != nil {
		decorate(req)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec.Code
}

func TestAuth_DisabledWhenNoKeyConfigured(t *testing.T) {
	assert.Equal(t, http.StatusOK, authedStatus(t, "", nil))
}

func TestAuth_BearerToken(t *testing.T) {
	code := authedStatus(t, "secret", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer secret")
	})
	assert.Equal(t, http.StatusOK, code)
}

func TestAuth_APIKeyHeader(t *testing.T) {
	code := authedStatus(t, "secret", func(r *http.Request) {
		r.Header.Set("X-API-Key", "secret")
	})
	assert.Equal(t, http.StatusOK, code)
}

func TestAuth_MissingToken(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, authedStatus(t, "secret", nil))
}

func TestAuth_WrongToken(t *testing.T) {
	code := authedStatus(t, "secret", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer nope")
	})
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestAuth_NonBearerSchemeRejected(t *testing.T) {
	code := authedStatus(t, "secret", func(r *http.Request) {
		r.Header.Set("Authorization", "Basic secret")
	})
	assert.Equal(t, http.StatusUnauthorized, code)
}
