package checkoutstripe

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v74"

	"github.com/MarcGrol/marketplace/lib/myerrors"
	"github.com/MarcGrol/marketplace/services/checkoutapi"
)

const (
	eventSessionCompleted      = "checkout.session.completed"
	eventAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"
	paymentStatusUnpaid        = "unpaid"
)

// parseEvent turns a verified payload into a payment event. The boolean is false for events
// that do not complete a payment; those are acknowledged without effect.
func parseEvent(payload []byte, codec checkoutapi.CartCodec) (checkoutapi.PaymentEvent, bool, error) {
	event := stripe.Event{}
	err := json.Unmarshal(payload, &event)
	if err != nil {
		return checkoutapi.PaymentEvent{}, false, myerrors.NewDataErrorf("error parsing event: %s", err)
	}

	switch string(event.Type) {
	case eventSessionCompleted, eventAsyncPaymentSucceeded:
	default:
		return checkoutapi.PaymentEvent{EventUID: event.ID, EventType: string(event.Type)}, false, nil
	}

	if event.Data == nil || len(event.Data.Raw) == 0 {
		return checkoutapi.PaymentEvent{}, false, myerrors.NewDataErrorf("event %s has no data", event.ID)
	}

	session := stripe.CheckoutSession{}
	err = json.Unmarshal(event.Data.Raw, &session)
	if err != nil {
		return checkoutapi.PaymentEvent{}, false, myerrors.NewDataErrorf("error parsing session of event %s: %s", event.ID, err)
	}

	paymentEvent := checkoutapi.PaymentEvent{
		EventUID:           event.ID,
		EventType:          string(event.Type),
		ExternalSessionID:  session.ID,
		AmountTotalInCents: session.AmountTotal,
		Currency:           strings.ToUpper(string(session.Currency)),
		CustomerEmail:      customerEmail(session),
		CreatedAt:          time.Unix(event.Created, 0).UTC(),
	}

	// Delayed payment methods complete the session before the money arrives.
	if string(event.Type) == eventSessionCompleted && string(session.PaymentStatus) == paymentStatusUnpaid {
		return paymentEvent, false, nil
	}

	lines, err := codec.Decode(session.Metadata)
	if err != nil {
		return checkoutapi.PaymentEvent{}, false, myerrors.NewDataError(fmt.Errorf("session %s: %w", session.ID, err))
	}
	paymentEvent.Lines = lines

	return paymentEvent, true, nil
}

func customerEmail(session stripe.CheckoutSession) string {
	if session.CustomerDetails != nil && session.CustomerDetails.Email != "" {
		return session.CustomerDetails.Email
	}
	return session.CustomerEmail
}
