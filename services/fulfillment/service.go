package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/MarcGrol/marketplace/lib/myerrors"
	"github.com/MarcGrol/marketplace/lib/mylog"
	"github.com/MarcGrol/marketplace/lib/mypublisher"
	"github.com/MarcGrol/marketplace/lib/mytime"
	"github.com/MarcGrol/marketplace/lib/myuuid"
	"github.com/MarcGrol/marketplace/services/checkoutapi"
	"github.com/MarcGrol/marketplace/services/fulfillment/orderevents"
	"github.com/MarcGrol/marketplace/services/inventory"
	"github.com/MarcGrol/marketplace/services/notifier"
)

type receiptDispatcher interface {
	Dispatch(c context.Context, receipt notifier.Receipt)
}

// Service is the fulfillment engine: it turns verified payment events into orders.
type Service struct {
	logger               mylog.Logger
	nower                mytime.Nower
	uuider               myuuid.UUIDer
	orderStore           OrderStore
	stockKeeper          inventory.StockKeeper
	publisher            mypublisher.Publisher
	dispatcher           receiptDispatcher
	amountToleranceCents int64
}

// Use dependency injection to isolate the infrastructure and easy testing
func NewService(nower mytime.Nower, uuider myuuid.UUIDer, orderStore OrderStore, stockKeeper inventory.StockKeeper,
	publisher mypublisher.Publisher, dispatcher receiptDispatcher, amountToleranceCents int64) *Service {
	return &Service{
		logger:               mylog.New("fulfillment"),
		nower:                nower,
		uuider:               uuider,
		orderStore:           orderStore,
		stockKeeper:          stockKeeper,
		publisher:            publisher,
		dispatcher:           dispatcher,
		amountToleranceCents: amountToleranceCents,
	}
}

func (s *Service) CreateTopics(c context.Context) error {
	return s.publisher.CreateTopic(c, orderevents.TopicName)
}

// OnPaymentCompleted materializes an order for the session of the event. Everything that
// fails before the order is committed is returned so the gateway delivers again; everything
// after the commit is logged and swallowed.
func (s *Service) OnPaymentCompleted(c context.Context, event checkoutapi.PaymentEvent) error {
	// A redelivery stops at the idempotency guard, so stock and publication must not be cut
	// short by a caller that went away after the commit.
	c = context.WithoutCancel(c)

	sessionID := event.ExternalSessionID

	err := event.Validate()
	if err != nil {
		return err
	}

	err = s.reconcile(event)
	if err != nil {
		return err
	}

	existing, exists, err := s.orderStore.GetBySessionID(c, sessionID)
	if err != nil {
		return myerrors.NewUnavailableError(err)
	}
	if exists {
		s.logger.Log(c, sessionID, mylog.SeverityInfo, "Session %s already materialized as order %s (event %s)", sessionID, existing.UID, event.EventUID)
		return nil
	}

	order := s.orderFromEvent(event)

	err = s.orderStore.Create(c, order)
	if err != nil {
		if errors.Is(err, ErrOrderAlreadyExists) {
			s.logger.Log(c, sessionID, mylog.SeverityInfo, "Session %s was materialized concurrently (event %s)", sessionID, event.EventUID)
			return nil
		}
		return myerrors.NewUnavailableError(err)
	}

	s.logger.Log(c, order.UID, mylog.SeverityInfo, "Materialized order %s for session %s: %s %s", order.UID, sessionID,
		checkoutapi.FormatCents(order.TotalAmountInCents), order.Currency)

	s.adjustStock(c, order)

	s.publish(c, order)

	s.notify(c, order)

	return nil
}

// reconcile compares the cart in the metadata with the amount the gateway charged.
func (s *Service) reconcile(event checkoutapi.PaymentEvent) error {
	linesTotal := checkoutapi.SumInCents(event.Lines)
	diff := linesTotal - event.AmountTotalInCents
	if diff < 0 {
		diff = -diff
	}
	if diff > s.amountToleranceCents {
		return myerrors.NewDataErrorf("session %s: cart total %d does not match charged amount %d (tolerance %d)",
			event.ExternalSessionID, linesTotal, event.AmountTotalInCents, s.amountToleranceCents)
	}
	return nil
}

func (s *Service) orderFromEvent(event checkoutapi.PaymentEvent) Order {
	items := make([]OrderItem, 0, len(event.Lines))
	for _, line := range event.Lines {
		items = append(items, OrderItem{
			ProductUID:       line.ProductUID,
			ProductName:      line.Name,
			Kind:             line.Kind,
			Quantity:         line.Quantity,
			UnitPriceInCents: line.UnitPriceInCents(),
		})
	}

	return Order{
		UID:                s.uuider.Create(),
		ExternalSessionID:  event.ExternalSessionID,
		CustomerEmail:      event.CustomerEmail,
		Currency:           event.Currency,
		TotalAmountInCents: event.AmountTotalInCents,
		Status:             OrderStatusCompleted,
		CreatedAt:          s.nower.Now().UTC(),
		Items:              items,
	}
}

func (s *Service) adjustStock(c context.Context, order Order) {
	for _, item := range order.Items {
		if !item.Kind.IsPhysical() {
			continue
		}

		remaining, err := s.stockKeeper.DecrementStock(c, item.ProductUID, item.Quantity)
		if err != nil {
			s.logger.Log(c, order.UID, mylog.SeverityError, "Error decrementing stock of product %s by %d: %s", item.ProductUID, item.Quantity, err)
			continue
		}
		if remaining < 0 {
			s.logger.Log(c, order.UID, mylog.SeverityWarn, "Product %s is oversold: stock is %d", item.ProductUID, remaining)
		}
	}
}

func (s *Service) publish(c context.Context, order Order) {
	items := make([]orderevents.OrderCompletedItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderevents.OrderCompletedItem{
			ProductUID:       item.ProductUID,
			Quantity:         item.Quantity,
			UnitPriceInCents: item.UnitPriceInCents,
			Physical:         item.Kind.IsPhysical(),
		})
	}

	err := s.publisher.Publish(c, orderevents.TopicName, orderevents.OrderCompleted{
		OrderUID:           order.UID,
		ExternalSessionID:  order.ExternalSessionID,
		CustomerEmail:      order.CustomerEmail,
		TotalAmountInCents: order.TotalAmountInCents,
		Currency:           order.Currency,
		Items:              items,
	})
	if err != nil {
		s.logger.Log(c, order.UID, mylog.SeverityError, "Error publishing completion of order %s: %s", order.UID, err)
	}
}

func (s *Service) notify(c context.Context, order Order) {
	if order.CustomerEmail == "" {
		s.logger.Log(c, order.UID, mylog.SeverityWarn, "Order %s has no customer email: no receipt sent", order.UID)
		return
	}

	items := make([]notifier.ReceiptItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, notifier.ReceiptItem{
			Name:             item.ProductName,
			Quantity:         item.Quantity,
			UnitPriceInCents: item.UnitPriceInCents,
		})
	}

	s.dispatcher.Dispatch(c, notifier.Receipt{
		ToAddress:          order.CustomerEmail,
		OrderUID:           order.UID,
		TotalAmountInCents: order.TotalAmountInCents,
		Currency:           order.Currency,
		Items:              items,
	})
}

func (s *Service) GetBySessionID(c context.Context, externalSessionID string) (Order, error) {
	order, exists, err := s.orderStore.GetBySessionID(c, externalSessionID)
	if err != nil {
		return Order{}, myerrors.NewUnavailableError(err)
	}
	if !exists {
		return Order{}, myerrors.NewNotFoundError(fmt.Errorf("no order for session %s", externalSessionID))
	}
	return order, nil
}

func (s *Service) ListOrders(c context.Context) ([]Order, error) {
	orders, err := s.orderStore.List(c)
	if err != nil {
		return nil, myerrors.NewUnavailableError(err)
	}
	return orders, nil
}

type Summary struct {
	TotalProducts  int               `json:"totalProducts"`
	TotalOrders    int               `json:"totalOrders"`
	RevenueInCents map[string]int64  `json:"revenueInCents"`
	Revenue        map[string]string `json:"revenue"`
	Currencies     []string          `json:"currencies"`
}

// Summary counts all orders but only completed orders contribute to the revenue.
func (s *Service) Summary(c context.Context) (Summary, error) {
	products, err := s.stockKeeper.ListProducts(c)
	if err != nil {
		return Summary{}, myerrors.NewUnavailableError(err)
	}

	orders, err := s.orderStore.List(c)
	if err != nil {
		return Summary{}, myerrors.NewUnavailableError(err)
	}

	summary := Summary{
		TotalProducts:  len(products),
		TotalOrders:    len(orders),
		RevenueInCents: map[string]int64{},
		Revenue:        map[string]string{},
		Currencies:     []string{},
	}
	for _, order := range orders {
		if order.Status != OrderStatusCompleted {
			continue
		}
		summary.RevenueInCents[order.Currency] += order.TotalAmountInCents
	}
	for currency, cents := range summary.RevenueInCents {
		summary.Revenue[currency] = checkoutapi.FormatCents(cents)
		summary.Currencies = append(summary.Currencies, currency)
	}
	sort.Strings(summary.Currencies)

	return summary, nil
}
