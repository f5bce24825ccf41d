package checkoutapi

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarcGrol/marketplace/lib/myerrors"
)

var lamp = CartLine{
	ProductUID: "p1",
	Quantity:   2,
	UnitPrice:  decimal.RequireFromString("49.99"),
	Name:       "Minimalist Desk Lamp",
	Kind:       KindPhysical,
}

var uiKit = CartLine{
	ProductUID: "p2",
	Quantity:   1,
	UnitPrice:  decimal.RequireFromString("29.00"),
	Name:       "React UI Kit",
	Kind:       KindDigital,
}

func TestValidateLines(t *testing.T) {
	testCases := []struct {
		name    string
		lines   []CartLine
		invalid bool
	}{
		{name: "valid", lines: []CartLine{lamp, uiKit}},
		{name: "free item", lines: []CartLine{{ProductUID: "p3", Quantity: 1, UnitPrice: decimal.Zero}}},
		{name: "empty", lines: []CartLine{}, invalid: true},
		{name: "zero quantity", lines: []CartLine{lamp, {ProductUID: "p3", Quantity: 0, UnitPrice: decimal.NewFromInt(1)}}, invalid: true},
		{name: "negative quantity", lines: []CartLine{{ProductUID: "p3", Quantity: -1, UnitPrice: decimal.NewFromInt(1)}}, invalid: true},
		{name: "negative price", lines: []CartLine{{ProductUID: "p3", Quantity: 1, UnitPrice: decimal.RequireFromString("-0.01")}}, invalid: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			before := append([]CartLine{}, tc.lines...)

			err := ValidateLines(tc.lines)

			if tc.invalid {
				assert.True(t, myerrors.IsInvalidInputError(err))
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, before, tc.lines)
		})
	}
}

func TestMoney(t *testing.T) {
	assert.Equal(t, int64(4999), ToCents(decimal.RequireFromString("49.99")))
	assert.Equal(t, int64(1001), ToCents(decimal.RequireFromString("10.005")))
	assert.Equal(t, int64(12950), ToCents(decimal.RequireFromString("129.5")))
	assert.Equal(t, "20.00", FormatCents(2000))
	assert.Equal(t, "0.05", FormatCents(5))
	assert.Equal(t, int64(12927), SumInCents([]CartLine{lamp, uiKit}))
	assert.Equal(t, int64(9998), lamp.SubtotalInCents())
}

func TestKind(t *testing.T) {
	assert.True(t, KindPhysical.IsPhysical())
	assert.True(t, ProductKind("physical").IsPhysical())
	assert.False(t, KindDigital.IsPhysical())
	assert.False(t, ProductKind("").IsPhysical())
}

func TestPaymentEventValidate(t *testing.T) {
	event := PaymentEvent{
		EventUID:           "evt_1",
		ExternalSessionID:  "cs_1",
		AmountTotalInCents: 9998,
		Currency:           "USD",
		Lines:              []CartLine{lamp},
	}
	assert.NoError(t, event.Validate())

	noSession := event
	noSession.ExternalSessionID = ""
	assert.True(t, myerrors.IsDataError(noSession.Validate()))

	badCart := event
	badCart.Lines = []CartLine{{ProductUID: "p1", Quantity: 0}}
	assert.True(t, myerrors.IsDataError(badCart.Validate()))
}

func TestCartCodec(t *testing.T) {
	codec := NewCartCodec("secret")

	t.Run("round trip", func(t *testing.T) {
		metadata, err := codec.Encode([]CartLine{lamp, uiKit})
		require.NoError(t, err)
		assert.Equal(t, "1", metadata["cart_chunks"])
		assert.Len(t, metadata["cart_mac"], 64)

		lines, err := codec.Decode(metadata)
		require.NoError(t, err)
		require.Len(t, lines, 2)
		assert.True(t, lines[0].Equal(lamp))
		assert.True(t, lines[1].Equal(uiKit))
	})

	t.Run("large cart is chunked", func(t *testing.T) {
		lines := []CartLine{}
		for i := 0; i < 40; i++ {
			l := lamp
			l.Name = strings.Repeat("ü", 30)
			lines = append(lines, l)
		}
		metadata, err := codec.Encode(lines)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(metadata), MaxMetadataKeys)
		for _, v := range metadata {
			assert.LessOrEqual(t, len([]rune(v)), MaxMetadataValueLen)
		}

		decoded, err := codec.Decode(metadata)
		require.NoError(t, err)
		assert.Len(t, decoded, 40)
	})

	t.Run("cart too large", func(t *testing.T) {
		lines := []CartLine{}
		for i := 0; i < 200; i++ {
			l := lamp
			l.Name = strings.Repeat("x", 200)
			lines = append(lines, l)
		}
		_, err := codec.Encode(lines)
		assert.True(t, myerrors.IsInvalidInputError(err))
	})

	t.Run("tampered", func(t *testing.T) {
		metadata, err := codec.Encode([]CartLine{lamp})
		require.NoError(t, err)
		metadata["cart_0"] = strings.Replace(metadata["cart_0"], `"quantity":2`, `"quantity":1`, 1)

		_, err = codec.Decode(metadata)
		assert.True(t, myerrors.IsDataError(err))
	})

	t.Run("other secret", func(t *testing.T) {
		metadata, err := NewCartCodec("other").Encode([]CartLine{lamp})
		require.NoError(t, err)

		_, err = codec.Decode(metadata)
		assert.True(t, myerrors.IsDataError(err))
	})

	t.Run("missing", func(t *testing.T) {
		_, err := codec.Decode(map[string]string{})
		assert.True(t, myerrors.IsDataError(err))
	})
}

func TestNewFromRequest(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/stripe/checkout", strings.NewReader(
			`{"lines":[{"productId":"p1","quantity":2,"unitPrice":49.99,"name":"Minimalist Desk Lamp","type":"PHYSICAL"}],"customerEmail":"a@b.nl"}`))
		req.Header.Set("Content-Type", "application/json; charset=utf-8")

		checkoutReq, err := NewFromRequest(req)
		require.NoError(t, err)
		assert.Equal(t, "a@b.nl", checkoutReq.CustomerEmail)
		require.Len(t, checkoutReq.Lines, 1)
		assert.True(t, checkoutReq.Lines[0].Equal(lamp))
	})

	t.Run("form", func(t *testing.T) {
		form := url.Values{
			"customerEmail":      []string{"a@b.nl"},
			"lines[0].productId": []string{"p1"},
			"lines[0].quantity":  []string{"2"},
			"lines[0].unitPrice": []string{"49.99"},
			"lines[0].name":      []string{"Minimalist Desk Lamp"},
			"lines[0].type":      []string{"PHYSICAL"},
			"lines[1].productId": []string{"p2"},
			"lines[1].quantity":  []string{"1"},
			"lines[1].unitPrice": []string{"29.00"},
			"lines[1].name":      []string{"React UI Kit"},
			"lines[1].type":      []string{"DIGITAL"},
		}
		req := httptest.NewRequest(http.MethodPost, "/api/stripe/checkout", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		checkoutReq, err := NewFromRequest(req)
		require.NoError(t, err)
		require.Len(t, checkoutReq.Lines, 2)
		assert.True(t, checkoutReq.Lines[0].Equal(lamp))
		assert.True(t, checkoutReq.Lines[1].Equal(uiKit))
	})

	t.Run("unsupported", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/stripe/checkout", strings.NewReader("<xml/>"))
		req.Header.Set("Content-Type", "text/xml")

		_, err := NewFromRequest(req)
		assert.Equal(t, http.StatusUnsupportedMediaType, myerrors.GetHTTPStatus(err))
	})
}
