package checkoutstripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v74"
	"go.uber.org/mock/gomock"

	"github.com/MarcGrol/marketplace/lib/myerrors"
	"github.com/MarcGrol/marketplace/lib/mytime"
	"github.com/MarcGrol/marketplace/services/checkoutapi"
)

const (
	webhookSecret = "whsec_test"
	cartSecret    = "cart_secret"
)

var (
	cfg = Config{
		FrontendURL:        "http://localhost:5173",
		Currency:           "usd",
		PaymentMethodTypes: []string{"card"},
	}

	lines = []checkoutapi.CartLine{
		{ProductUID: "p1", Quantity: 2, UnitPrice: decimal.RequireFromString("10.00"), Name: "Desk Lamp", Kind: checkoutapi.KindPhysical},
	}

	sessionResp = stripe.CheckoutSession{
		ID:  "cs_test_1",
		URL: "https://checkout.stripe.com/c/pay/cs_test_1",
	}
)

func TestCheckout(t *testing.T) {

	t.Run("json checkout", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		router, payer, _, _ := setup(t, ctrl)

		// given
		payer.EXPECT().CreateCheckoutSession(gomock.Any(), gomock.Any()).DoAndReturn(func(c context.Context, params stripe.CheckoutSessionParams) (stripe.CheckoutSession, error) {
			assert.Equal(t, "http://localhost:5173/order-confirmation?session_id={CHECKOUT_SESSION_ID}", *params.SuccessURL)
			assert.Equal(t, "http://localhost:5173/cart", *params.CancelURL)
			assert.Equal(t, "payment", *params.Mode)
			assert.Equal(t, "shopper@example.com", *params.CustomerEmail)
			require.Len(t, params.LineItems, 1)
			assert.Equal(t, int64(1000), *params.LineItems[0].PriceData.UnitAmount)
			assert.Equal(t, "usd", *params.LineItems[0].PriceData.Currency)
			assert.Equal(t, "Desk Lamp", *params.LineItems[0].PriceData.ProductData.Name)
			assert.Equal(t, int64(2), *params.LineItems[0].Quantity)

			decoded, err := checkoutapi.NewCartCodec(cartSecret).Decode(params.Metadata)
			require.NoError(t, err)
			require.Len(t, decoded, 1)
			assert.True(t, lines[0].Equal(decoded[0]))

			return sessionResp, nil
		})

		// when
		request, err := http.NewRequest(http.MethodPost, "/api/stripe/checkout",
			strings.NewReader(`{"lines":[{"productId":"p1","quantity":2,"unitPrice":"10.00","name":"Desk Lamp","type":"PHYSICAL"}],"customerEmail":"shopper@example.com"}`))
		require.NoError(t, err)
		request.Header.Set("Content-Type", "application/json")
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		resp := checkoutapi.CheckoutResponse{}
		require.NoError(t, json.Unmarshal(response.Body.Bytes(), &resp))
		assert.Equal(t, checkoutapi.CheckoutResponse{SessionID: "cs_test_1", RedirectURL: sessionResp.URL}, resp)
	})

	t.Run("form checkout redirects", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		router, payer, _, _ := setup(t, ctrl)

		// given
		payer.EXPECT().CreateCheckoutSession(gomock.Any(), gomock.Any()).Return(sessionResp, nil)

		// when
		request, err := http.NewRequest(http.MethodPost, "/api/stripe/checkout",
			strings.NewReader(`lines[0].productId=p1&lines[0].quantity=2&lines[0].unitPrice=10.00&lines[0].name=Desk+Lamp&lines[0].type=PHYSICAL&customerEmail=shopper%40example.com`))
		require.NoError(t, err)
		request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, http.StatusSeeOther, response.Code)
		assert.Equal(t, sessionResp.URL, response.Header().Get("Location"))
	})

	t.Run("empty cart is rejected locally", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		router, _, _, _ := setup(t, ctrl)

		// when
		request, err := http.NewRequest(http.MethodPost, "/api/stripe/checkout", strings.NewReader(`{"lines":[],"customerEmail":"shopper@example.com"}`))
		require.NoError(t, err)
		request.Header.Set("Content-Type", "application/json")
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, http.StatusBadRequest, response.Code)
	})

	t.Run("negative price is rejected locally", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		router, _, _, _ := setup(t, ctrl)

		// when
		request, err := http.NewRequest(http.MethodPost, "/api/stripe/checkout",
			strings.NewReader(`{"lines":[{"productId":"p1","quantity":1,"unitPrice":"-1.00","name":"Desk Lamp","type":"PHYSICAL"}]}`))
		require.NoError(t, err)
		request.Header.Set("Content-Type", "application/json")
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, http.StatusBadRequest, response.Code)
	})

	t.Run("gateway failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		router, payer, _, _ := setup(t, ctrl)

		// given
		payer.EXPECT().CreateCheckoutSession(gomock.Any(), gomock.Any()).Return(stripe.CheckoutSession{}, myerrors.NewGatewayError(fmt.Errorf("stripe down")))

		// when
		request, err := http.NewRequest(http.MethodPost, "/api/stripe/checkout",
			strings.NewReader(`{"lines":[{"productId":"p1","quantity":1,"unitPrice":"10.00","name":"Desk Lamp","type":"PHYSICAL"}]}`))
		require.NoError(t, err)
		request.Header.Set("Content-Type", "application/json")
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, http.StatusBadGateway, response.Code)
	})
}

func TestWebhook(t *testing.T) {

	t.Run("completed session is fulfilled", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		router, _, nower, fulfiller := setup(t, ctrl)

		// given
		nower.EXPECT().Now().Return(mytime.ExampleTime)
		fulfiller.EXPECT().OnPaymentCompleted(gomock.Any(), gomock.Any()).DoAndReturn(func(c context.Context, event checkoutapi.PaymentEvent) error {
			assert.Equal(t, "evt_1", event.EventUID)
			assert.Equal(t, "cs_test_1", event.ExternalSessionID)
			assert.Equal(t, int64(2000), event.AmountTotalInCents)
			assert.Equal(t, "USD", event.Currency)
			assert.Equal(t, "details@example.com", event.CustomerEmail)
			require.Len(t, event.Lines, 1)
			assert.True(t, lines[0].Equal(event.Lines[0]))
			return nil
		})
		payload := completedEvent(t, "checkout.session.completed", "paid")

		// when
		response := deliver(router, payload, sign(payload, mytime.ExampleTime, webhookSecret))

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		assert.JSONEq(t, `{"received":true}`, response.Body.String())
	})

	t.Run("async payment succeeded is fulfilled", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		router, _, nower, fulfiller := setup(t, ctrl)

		// given
		nower.EXPECT().Now().Return(mytime.ExampleTime)
		fulfiller.EXPECT().OnPaymentCompleted(gomock.Any(), gomock.Any()).Return(nil)
		payload := completedEvent(t, "checkout.session.async_payment_succeeded", "paid")

		// when
		response := deliver(router, payload, sign(payload, mytime.ExampleTime, webhookSecret))

		// then
		assert.Equal(t, http.StatusOK, response.Code)
	})

	t.Run("unpaid session is acknowledged without effect", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		router, _, nower, _ := setup(t, ctrl)

		// given
		nower.EXPECT().Now().Return(mytime.ExampleTime)
		payload := completedEvent(t, "checkout.session.completed", "unpaid")

		// when
		response := deliver(router, payload, sign(payload, mytime.ExampleTime, webhookSecret))

		// then
		assert.Equal(t, http.StatusOK, response.Code)
	})

	t.Run("other event types are acknowledged without effect", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		router, _, nower, _ := setup(t, ctrl)

		// given
		nower.EXPECT().Now().Return(mytime.ExampleTime)
		payload := []byte(`{"id":"evt_2","object":"event","type":"checkout.session.expired","created":1,"data":{"object":{"id":"cs_test_2","object":"checkout.session"}}}`)

		// when
		response := deliver(router, payload, sign(payload, mytime.ExampleTime, webhookSecret))

		// then
		assert.Equal(t, http.StatusOK, response.Code)
	})

	t.Run("tampered body is rejected", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		router, _, nower, _ := setup(t, ctrl)

		// given
		nower.EXPECT().Now().Return(mytime.ExampleTime)
		payload := completedEvent(t, "checkout.session.completed", "paid")
		signature := sign(payload, mytime.ExampleTime, webhookSecret)
		tampered := []byte(strings.Replace(string(payload), `"amount_total":2000`, `"amount_total":2001`, 1))
		require.NotEqual(t, payload, tampered)

		// when
		response := deliver(router, tampered, signature)

		// then
		assert.Equal(t, http.StatusBadRequest, response.Code)
		assert.Contains(t, response.Body.String(), string(myerrors.KindAuthentication))
	})

	t.Run("wrong secret is rejected", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		router, _, nower, _ := setup(t, ctrl)

		// given
		nower.EXPECT().Now().Return(mytime.ExampleTime)
		payload := completedEvent(t, "checkout.session.completed", "paid")

		// when
		response := deliver(router, payload, sign(payload, mytime.ExampleTime, "whsec_other"))

		// then
		assert.Equal(t, http.StatusBadRequest, response.Code)
	})

	t.Run("stale signature is rejected", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		router, _, nower, _ := setup(t, ctrl)

		// given
		nower.EXPECT().Now().Return(mytime.ExampleTime.Add(6 * time.Minute))
		payload := completedEvent(t, "checkout.session.completed", "paid")

		// when
		response := deliver(router, payload, sign(payload, mytime.ExampleTime, webhookSecret))

		// then
		assert.Equal(t, http.StatusBadRequest, response.Code)
	})

	t.Run("missing signature is rejected", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		router, _, _, _ := setup(t, ctrl)

		// when
		response := deliver(router, completedEvent(t, "checkout.session.completed", "paid"), "")

		// then
		assert.Equal(t, http.StatusBadRequest, response.Code)
	})

	t.Run("signed garbage is a data error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		router, _, nower, _ := setup(t, ctrl)

		// given
		nower.EXPECT().Now().Return(mytime.ExampleTime)
		payload := []byte(`{"id":`)

		// when
		response := deliver(router, payload, sign(payload, mytime.ExampleTime, webhookSecret))

		// then
		assert.Equal(t, http.StatusBadRequest, response.Code)
		assert.Contains(t, response.Body.String(), string(myerrors.KindData))
	})

	t.Run("storage unavailable asks for redelivery", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		router, _, nower, fulfiller := setup(t, ctrl)

		// given
		nower.EXPECT().Now().Return(mytime.ExampleTime)
		fulfiller.EXPECT().OnPaymentCompleted(gomock.Any(), gomock.Any()).Return(myerrors.NewUnavailableError(fmt.Errorf("connection refused")))
		payload := completedEvent(t, "checkout.session.completed", "paid")

		// when
		response := deliver(router, payload, sign(payload, mytime.ExampleTime, webhookSecret))

		// then
		assert.Equal(t, http.StatusServiceUnavailable, response.Code)
	})
}

func TestVerifier(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)

	testCases := []struct {
		name   string
		now    time.Time
		header string
		valid  bool
	}{
		{name: "valid", now: mytime.ExampleTime, header: sign(payload, mytime.ExampleTime, webhookSecret), valid: true},
		{name: "within tolerance", now: mytime.ExampleTime.Add(4 * time.Minute), header: sign(payload, mytime.ExampleTime, webhookSecret), valid: true},
		{name: "too old", now: mytime.ExampleTime.Add(5*time.Minute + time.Second), header: sign(payload, mytime.ExampleTime, webhookSecret)},
		{name: "too far in the future", now: mytime.ExampleTime.Add(-6 * time.Minute), header: sign(payload, mytime.ExampleTime, webhookSecret)},
		{name: "second signature matches", now: mytime.ExampleTime, header: sign(payload, mytime.ExampleTime, "whsec_old") + ",v1=" + signature(payload, mytime.ExampleTime, webhookSecret), valid: true},
		{name: "no timestamp", now: mytime.ExampleTime, header: "v1=" + signature(payload, mytime.ExampleTime, webhookSecret)},
		{name: "no signature", now: mytime.ExampleTime, header: fmt.Sprintf("t=%d", mytime.ExampleTime.Unix())},
		{name: "only legacy scheme", now: mytime.ExampleTime, header: fmt.Sprintf("t=%d,v0=%s", mytime.ExampleTime.Unix(), signature(payload, mytime.ExampleTime, webhookSecret))},
		{name: "bad timestamp", now: mytime.ExampleTime, header: "t=yesterday,v1=00"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			nower := mytime.NewMockNower(ctrl)
			nower.EXPECT().Now().Return(tc.now).AnyTimes()

			err := newVerifier(webhookSecret, 0, nower).verify(payload, tc.header)
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.True(t, myerrors.IsAuthenticationError(err), "got %v", err)
			}
		})
	}
}

func setup(t *testing.T, ctrl *gomock.Controller) (*mux.Router, *MockPayer, *mytime.MockNower, *checkoutapi.MockFulfiller) {
	payer := NewMockPayer(ctrl)
	nower := mytime.NewMockNower(ctrl)
	fulfiller := checkoutapi.NewMockFulfiller(ctrl)

	sut := NewWebService(cfg, payer, checkoutapi.NewCartCodec(cartSecret), webhookSecret, 5*time.Minute, nower, fulfiller)
	router := mux.NewRouter()
	err := sut.RegisterEndpoints(context.TODO(), router)
	require.NoError(t, err)

	return router, payer, nower, fulfiller
}

func completedEvent(t *testing.T, eventType string, paymentStatus string) []byte {
	metadata, err := checkoutapi.NewCartCodec(cartSecret).Encode(lines)
	require.NoError(t, err)

	payload, err := json.Marshal(map[string]any{
		"id":      "evt_1",
		"object":  "event",
		"type":    eventType,
		"created": mytime.ExampleTime.Unix(),
		"data": map[string]any{
			"object": map[string]any{
				"id":               "cs_test_1",
				"object":           "checkout.session",
				"amount_total":     2000,
				"currency":         "usd",
				"customer_email":   "shopper@example.com",
				"customer_details": map[string]any{"email": "details@example.com"},
				"payment_status":   paymentStatus,
				"metadata":         metadata,
			},
		},
	})
	require.NoError(t, err)
	return payload
}

func signature(payload []byte, timestamp time.Time, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.%s", timestamp.Unix(), payload)))
	return hex.EncodeToString(mac.Sum(nil))
}

func sign(payload []byte, timestamp time.Time, secret string) string {
	return fmt.Sprintf("t=%d,v1=%s", timestamp.Unix(), signature(payload, timestamp, secret))
}

func deliver(router *mux.Router, payload []byte, header string) *httptest.ResponseRecorder {
	request := httptest.NewRequest(http.MethodPost, "/api/webhook/stripe", strings.NewReader(string(payload)))
	request.Header.Set("Content-Type", "application/json")
	if header != "" {
		request.Header.Set("Stripe-Signature", header)
	}
	response := httptest.NewRecorder()
	router.ServeHTTP(response, request)
	return response
}
