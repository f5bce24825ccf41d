package myhttp

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MarcGrol/marketplace/lib/myerrors"
	"github.com/MarcGrol/marketplace/lib/mylog"
)

func TestResponseWriter(t *testing.T) {
	c := context.Background()
	writer := NewWriter(mylog.New("myhttp"))

	t.Run("error", func(t *testing.T) {
		recorder := httptest.NewRecorder()

		writer.WriteError(c, recorder, 7, myerrors.NewGatewayError(fmt.Errorf("stripe down")))

		assert.Equal(t, http.StatusBadGateway, recorder.Code)
		assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"))
		assert.JSONEq(t, `{"errorCode":7, "kind":"gateway", "message":"status: 502, err: stripe down"}`, recorder.Body.String())
	})

	t.Run("success", func(t *testing.T) {
		recorder := httptest.NewRecorder()

		writer.Write(c, recorder, http.StatusOK, SuccessResponse{Message: "ok"})

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.JSONEq(t, `{"message":"ok"}`, recorder.Body.String())
	})
}

func TestHostnameWithScheme(t *testing.T) {
	req := httptest.NewRequest("GET", "http://shop.example.com/api", nil)
	assert.Equal(t, "http://shop.example.com", HostnameWithScheme(req))

	req.Header.Set("X-Forwarded-Proto", "https")
	assert.Equal(t, "https://shop.example.com", HostnameWithScheme(req))
}
