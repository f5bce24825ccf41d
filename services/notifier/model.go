package notifier

import "context"

type ReceiptItem struct {
	Name             string
	Quantity         int
	UnitPriceInCents int64
}

type Receipt struct {
	ToAddress          string
	OrderUID           string
	TotalAmountInCents int64
	Currency           string
	Items              []ReceiptItem
}

//go:generate mockgen -source=model.go -package notifier -destination sender_mock.go Sender
type Sender interface {
	Send(c context.Context, receipt Receipt) error
}
