package checkoutapi

import "context"

//go:generate mockgen -source=fulfiller.go -package checkoutapi -destination fulfiller_mock.go Fulfiller
type Fulfiller interface {
	// OnPaymentCompleted materializes the event at most once per external session id.
	// A nil error means the delivery can be acknowledged.
	OnPaymentCompleted(c context.Context, event PaymentEvent) error
}
