package fulfillment

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MarcGrol/marketplace/lib/mytime"
	"github.com/MarcGrol/marketplace/services/checkoutapi"
)

func TestWebService(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// setup
	c, service, orderStore, _, _, _, _ := setup(t, ctrl, time.Second)
	router := mux.NewRouter()
	err := NewWebService(service, "admin", "secret").RegisterEndpoints(c, router)
	require.NoError(t, err)

	// given
	err = orderStore.Create(c, Order{
		UID:                "order_1",
		ExternalSessionID:  "cs_test_1",
		CustomerEmail:      "shopper@example.com",
		Currency:           "USD",
		TotalAmountInCents: 2000,
		Status:             OrderStatusCompleted,
		CreatedAt:          mytime.ExampleTime,
		Items: []OrderItem{
			{ProductUID: "p1", ProductName: "Desk Lamp", Kind: checkoutapi.KindPhysical, Quantity: 2, UnitPriceInCents: 1000},
		},
	})
	require.NoError(t, err)

	t.Run("confirmation by session", func(t *testing.T) {
		// when
		request, err := http.NewRequest(http.MethodGet, "/api/orders/session/cs_test_1", nil)
		require.NoError(t, err)
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		resp := map[string]any{}
		require.NoError(t, json.Unmarshal(response.Body.Bytes(), &resp))
		assert.Equal(t, "order_1", resp["id"])
		assert.Equal(t, "COMPLETED", resp["status"])
		assert.Equal(t, "20.00", resp["totalAmount"])
		lines := resp["lines"].([]any)
		require.Len(t, lines, 1)
		assert.Equal(t, "10.00", lines[0].(map[string]any)["unitPrice"])
	})

	t.Run("unknown session", func(t *testing.T) {
		// when
		request, err := http.NewRequest(http.MethodGet, "/api/orders/session/cs_unknown", nil)
		require.NoError(t, err)
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, http.StatusNotFound, response.Code)
	})

	t.Run("admin orders without credentials", func(t *testing.T) {
		// when
		request, err := http.NewRequest(http.MethodGet, "/api/admin/orders", nil)
		require.NoError(t, err)
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, http.StatusUnauthorized, response.Code)
		assert.NotEmpty(t, response.Header().Get("WWW-Authenticate"))
	})

	t.Run("admin orders with wrong password", func(t *testing.T) {
		// when
		request, err := http.NewRequest(http.MethodGet, "/api/admin/orders", nil)
		require.NoError(t, err)
		request.SetBasicAuth("admin", "guess")
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, http.StatusUnauthorized, response.Code)
	})

	t.Run("admin orders", func(t *testing.T) {
		// when
		request, err := http.NewRequest(http.MethodGet, "/api/admin/orders", nil)
		require.NoError(t, err)
		request.SetBasicAuth("admin", "secret")
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		resp := []map[string]any{}
		require.NoError(t, json.Unmarshal(response.Body.Bytes(), &resp))
		require.Len(t, resp, 1)
		assert.Equal(t, "cs_test_1", resp[0]["externalSessionId"])
	})

	t.Run("admin summary", func(t *testing.T) {
		// when
		request, err := http.NewRequest(http.MethodGet, "/api/admin/orders/summary", nil)
		require.NoError(t, err)
		request.SetBasicAuth("admin", "secret")
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		summary := Summary{}
		require.NoError(t, json.Unmarshal(response.Body.Bytes(), &summary))
		assert.Equal(t, 1, summary.TotalOrders)
		assert.Equal(t, "20.00", summary.Revenue["USD"])
	})

	t.Run("admin disabled when unconfigured", func(t *testing.T) {
		// setup
		disabled := mux.NewRouter()
		err := NewWebService(service, "", "").RegisterEndpoints(c, disabled)
		require.NoError(t, err)

		// when
		request, err := http.NewRequest(http.MethodGet, "/api/admin/orders", nil)
		require.NoError(t, err)
		request.SetBasicAuth("", "")
		response := httptest.NewRecorder()
		disabled.ServeHTTP(response, request)

		// then
		assert.Equal(t, http.StatusUnauthorized, response.Code)
	})
}
