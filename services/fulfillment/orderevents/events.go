package orderevents

const (
	TopicName          = "order"
	orderCompletedName = TopicName + ".completed"
)

type OrderCompletedItem struct {
	ProductUID       string
	Quantity         int
	UnitPriceInCents int64
	Physical         bool
}

// OrderCompleted is published once per materialized order.
type OrderCompleted struct {
	OrderUID           string
	ExternalSessionID  string
	CustomerEmail      string
	TotalAmountInCents int64
	Currency           string
	Items              []OrderCompletedItem
}

func (e OrderCompleted) GetEventTypeName() string {
	return orderCompletedName
}

func (e OrderCompleted) GetAggregateName() string {
	return e.OrderUID
}
