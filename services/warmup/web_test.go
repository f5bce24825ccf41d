package warmup

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWarmup(t *testing.T) {

	t.Run("health", func(t *testing.T) {
		// setup
		router := setup(nil)

		// when
		request, err := http.NewRequest(http.MethodGet, "/api/health", nil)
		require.NoError(t, err)
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		assert.JSONEq(t, `{"status":"ok","message":"Marketplace API is running"}`, response.Body.String())
	})

	t.Run("warmup with healthy dependencies", func(t *testing.T) {
		// setup
		router := setup(map[string]Check{
			"orders": func(c context.Context) error { return nil },
		})

		// when
		request, err := http.NewRequest(http.MethodGet, "/_ah/warmup", nil)
		require.NoError(t, err)
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, http.StatusOK, response.Code)
	})

	t.Run("warmup with unreachable dependency", func(t *testing.T) {
		// setup
		router := setup(map[string]Check{
			"stock": func(c context.Context) error { return fmt.Errorf("dial tcp: connection refused") },
		})

		// when
		request, err := http.NewRequest(http.MethodGet, "/_ah/warmup", nil)
		require.NoError(t, err)
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, http.StatusServiceUnavailable, response.Code)
		assert.Contains(t, response.Body.String(), "stock not ready")
	})
}

func setup(checks map[string]Check) *mux.Router {
	router := mux.NewRouter()
	NewService(checks).RegisterEndpoints(context.TODO(), router)
	return router
}
