package checkoutapi

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	formcodec "github.com/go-playground/form/v4"
	"github.com/shopspring/decimal"

	"github.com/MarcGrol/marketplace/lib/myerrors"
)

const maxRequestBodyBytes = 1 << 20

type ProductKind string

const (
	KindPhysical ProductKind = "PHYSICAL"
	KindDigital  ProductKind = "DIGITAL"
)

// IsPhysical is case-insensitive; anything that is not physical carries no stock.
func (k ProductKind) IsPhysical() bool {
	return strings.EqualFold(string(k), string(KindPhysical))
}

// CartLine is one line of the cart as captured at checkout time.
type CartLine struct {
	ProductUID string          `json:"productId" form:"productId"`
	Quantity   int             `json:"quantity" form:"quantity"`
	UnitPrice  decimal.Decimal `json:"unitPrice" form:"unitPrice"`
	Name       string          `json:"name" form:"name"`
	Kind       ProductKind     `json:"type" form:"type"`
}

func (l CartLine) UnitPriceInCents() int64 {
	return ToCents(l.UnitPrice)
}

func (l CartLine) SubtotalInCents() int64 {
	return l.UnitPriceInCents() * int64(l.Quantity)
}

type CheckoutRequest struct {
	Lines         []CartLine `json:"lines" form:"lines"`
	CustomerEmail string     `json:"customerEmail" form:"customerEmail"`
	Currency      string     `json:"currency,omitempty" form:"currency"`
}

type CheckoutResponse struct {
	SessionID   string `json:"sessionId"`
	RedirectURL string `json:"redirectUrl"`
}

// ValidateLines rejects an empty cart, a non-positive quantity or a negative price.
func ValidateLines(lines []CartLine) error {
	if len(lines) == 0 {
		return myerrors.NewInvalidInputErrorf("cart is empty")
	}
	for idx, line := range lines {
		if line.Quantity <= 0 {
			return myerrors.NewInvalidInputErrorf("line %d (%s): quantity must be positive, got %d", idx, line.ProductUID, line.Quantity)
		}
		if line.UnitPrice.IsNegative() {
			return myerrors.NewInvalidInputErrorf("line %d (%s): unit price must not be negative, got %s", idx, line.ProductUID, line.UnitPrice)
		}
	}
	return nil
}

func SumInCents(lines []CartLine) int64 {
	total := int64(0)
	for _, line := range lines {
		total += line.SubtotalInCents()
	}
	return total
}

// PaymentEvent is a verified completion reported by the payment gateway.
type PaymentEvent struct {
	EventUID           string
	EventType          string
	ExternalSessionID  string
	AmountTotalInCents int64
	Currency           string
	CustomerEmail      string
	Lines              []CartLine
	CreatedAt          time.Time
}

func (e PaymentEvent) Validate() error {
	if e.ExternalSessionID == "" {
		return myerrors.NewDataErrorf("event %s has no session id", e.EventUID)
	}
	if e.Currency == "" {
		return myerrors.NewDataErrorf("event %s has no currency", e.EventUID)
	}
	if e.AmountTotalInCents < 0 {
		return myerrors.NewDataErrorf("event %s has a negative amount %d", e.EventUID, e.AmountTotalInCents)
	}
	err := ValidateLines(e.Lines)
	if err != nil {
		return myerrors.NewDataErrorf("event %s carries an invalid cart: %s", e.EventUID, err)
	}
	return nil
}

func newFormDecoder() *formcodec.Decoder {
	decoder := formcodec.NewDecoder()
	decoder.RegisterCustomTypeFunc(func(vals []string) (any, error) {
		return decimal.NewFromString(vals[0])
	}, decimal.Decimal{})
	return decoder
}

// NewFromRequest accepts both a json body and an html form post.
func NewFromRequest(r *http.Request) (CheckoutRequest, error) {
	mediaType := ""
	if contentType := r.Header.Get("Content-Type"); contentType != "" {
		var err error
		mediaType, _, err = mime.ParseMediaType(contentType)
		if err != nil {
			return CheckoutRequest{}, myerrors.NewUnsupportedMediaTypeError(err)
		}
	}

	switch mediaType {
	case "application/json":
		req := CheckoutRequest{}
		err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodyBytes)).Decode(&req)
		if err != nil {
			return CheckoutRequest{}, myerrors.NewInvalidInputErrorf("error decoding json: %s", err)
		}
		return req, nil
	case "application/x-www-form-urlencoded", "":
		err := r.ParseForm()
		if err != nil {
			return CheckoutRequest{}, myerrors.NewInvalidInputError(err)
		}
		return NewFromValues(r.PostForm)
	default:
		return CheckoutRequest{}, myerrors.NewUnsupportedMediaTypeError(fmt.Errorf("unsupported content-type %s", mediaType))
	}
}

func NewFromValues(values url.Values) (CheckoutRequest, error) {
	req := CheckoutRequest{}
	err := newFormDecoder().Decode(&req, values)
	if err != nil {
		return req, myerrors.NewInvalidInputErrorf("error decoding form: %s", err)
	}

	return req, nil
}

// Equal compares lines by value; decimals with different exponents are equal when their values are.
func (l CartLine) Equal(other CartLine) bool {
	return l.ProductUID == other.ProductUID &&
		l.Quantity == other.Quantity &&
		l.UnitPrice.Equal(other.UnitPrice) &&
		l.Name == other.Name &&
		l.Kind == other.Kind
}
