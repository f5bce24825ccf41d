package fulfillment

import (
	"context"
	"errors"
	"time"

	"github.com/MarcGrol/marketplace/services/checkoutapi"
)

// ErrOrderAlreadyExists is the conflict outcome of Create: an order for the session was materialized before.
var ErrOrderAlreadyExists = errors.New("order already exists for session")

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

type OrderItem struct {
	ProductUID       string                  `json:"productId"`
	ProductName      string                  `json:"productName"`
	Kind             checkoutapi.ProductKind `json:"type"`
	Quantity         int                     `json:"quantity"`
	UnitPriceInCents int64                   `json:"unitPriceInCents"`
}

func (i OrderItem) SubtotalInCents() int64 {
	return i.UnitPriceInCents * int64(i.Quantity)
}

type Order struct {
	UID                string      `json:"id"`
	ExternalSessionID  string      `json:"externalSessionId"`
	CustomerEmail      string      `json:"customerEmail"`
	Currency           string      `json:"currency"`
	TotalAmountInCents int64       `json:"totalAmountInCents"`
	Status             OrderStatus `json:"status"`
	CreatedAt          time.Time   `json:"createdAt"`
	Items              []OrderItem `json:"items"`
}

func (o Order) ItemsTotalInCents() int64 {
	total := int64(0)
	for _, item := range o.Items {
		total += item.SubtotalInCents()
	}
	return total
}

//go:generate mockgen -source=model.go -package fulfillment -destination order_store_mock.go OrderStore
type OrderStore interface {
	// Create stores the order and its items atomically. The external session id is unique:
	// a second create for the same session fails with ErrOrderAlreadyExists.
	Create(c context.Context, order Order) error
	GetBySessionID(c context.Context, externalSessionID string) (Order, bool, error)
	// List returns all orders, newest first.
	List(c context.Context) ([]Order, error)
}
