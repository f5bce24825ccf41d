package checkoutstripe

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v74"

	"github.com/MarcGrol/marketplace/lib/mylog"
	"github.com/MarcGrol/marketplace/services/checkoutapi"
)

type Config struct {
	FrontendURL        string
	Currency           string
	PaymentMethodTypes []string
}

type service struct {
	logger    mylog.Logger
	cfg       Config
	payer     Payer
	codec     checkoutapi.CartCodec
	verifier  verifier
	fulfiller checkoutapi.Fulfiller
}

// Use dependency injection to isolate the infrastructure and easy testing
func newService(logger mylog.Logger, cfg Config, payer Payer, codec checkoutapi.CartCodec, verifier verifier, fulfiller checkoutapi.Fulfiller) *service {
	return &service{
		logger:    logger,
		cfg:       cfg,
		payer:     payer,
		codec:     codec,
		verifier:  verifier,
		fulfiller: fulfiller,
	}
}

// startCheckout creates a hosted checkout session that carries a signed copy of the cart.
// Nothing is stored locally, so a failure can simply be retried. Without a configured frontend
// the shopper returns to the host that served the request.
func (s *service) startCheckout(c context.Context, req checkoutapi.CheckoutRequest, requestHost string) (checkoutapi.CheckoutResponse, error) {
	err := checkoutapi.ValidateLines(req.Lines)
	if err != nil {
		return checkoutapi.CheckoutResponse{}, err
	}

	metadata, err := s.codec.Encode(req.Lines)
	if err != nil {
		return checkoutapi.CheckoutResponse{}, err
	}

	cfg := s.cfg
	if cfg.FrontendURL == "" {
		cfg.FrontendURL = requestHost
	}
	params := buildSessionParams(cfg, req, metadata)

	session, err := s.payer.CreateCheckoutSession(c, params)
	if err != nil {
		return checkoutapi.CheckoutResponse{}, err
	}

	s.logger.Log(c, session.ID, mylog.SeverityInfo, "Created checkout session %s for %d lines (%s)", session.ID, len(req.Lines),
		checkoutapi.FormatCents(checkoutapi.SumInCents(req.Lines)))

	return checkoutapi.CheckoutResponse{
		SessionID:   session.ID,
		RedirectURL: session.URL,
	}, nil
}

func buildSessionParams(cfg Config, req checkoutapi.CheckoutRequest, metadata map[string]string) stripe.CheckoutSessionParams {
	currency := req.Currency
	if currency == "" {
		currency = cfg.Currency
	}
	currency = strings.ToLower(currency)

	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Lines))
	for _, line := range req.Lines {
		name := line.Name
		if name == "" {
			name = line.ProductUID
		}
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(name),
				},
				UnitAmount: stripe.Int64(line.UnitPriceInCents()),
			},
			Quantity: stripe.Int64(int64(line.Quantity)),
		})
	}

	frontendURL := strings.TrimSuffix(cfg.FrontendURL, "/")

	params := stripe.CheckoutSessionParams{
		SuccessURL:         stripe.String(frontendURL + "/order-confirmation?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:          stripe.String(frontendURL + "/cart"),
		LineItems:          lineItems,
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice(cfg.PaymentMethodTypes),
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	for key, value := range metadata {
		params.AddMetadata(key, value)
	}

	return params
}

// webhookNotification verifies, classifies and forwards a gateway event.
// A returned error makes the gateway deliver the event again.
func (s *service) webhookNotification(c context.Context, payload []byte, signature string) error {
	err := s.verifier.verify(payload, signature)
	if err != nil {
		return err
	}

	event, completes, err := parseEvent(payload, s.codec)
	if err != nil {
		return err
	}

	if !completes {
		s.logger.Log(c, event.ExternalSessionID, mylog.SeverityInfo, "Ignoring event %s of type %s", event.EventUID, event.EventType)
		return nil
	}

	s.logger.Log(c, event.ExternalSessionID, mylog.SeverityInfo, "Payment completed for session %s (event %s)", event.ExternalSessionID, event.EventUID)

	err = s.fulfiller.OnPaymentCompleted(c, event)
	if err != nil {
		return fmt.Errorf("error fulfilling session %s: %w", event.ExternalSessionID, err)
	}

	return nil
}

