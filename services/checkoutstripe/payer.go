package checkoutstripe

import (
	"context"
	"fmt"
	"net/http"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/checkout/session"

	"github.com/MarcGrol/marketplace/lib/myerrors"
)

//go:generate mockgen -source=payer.go -package checkoutstripe -destination payer_mock.go Payer
type Payer interface {
	CreateCheckoutSession(c context.Context, params stripe.CheckoutSessionParams) (stripe.CheckoutSession, error)
}

type stripePayer struct {
	client session.Client
}

// NewPayer uses its own client so the key is not shared through the global stripe.Key.
func NewPayer(apiKey string, httpClient *http.Client) Payer {
	return &stripePayer{
		client: session.Client{
			B: stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
				HTTPClient:        httpClient,
				MaxNetworkRetries: stripe.Int64(2),
			}),
			Key: apiKey,
		},
	}
}

func (p *stripePayer) CreateCheckoutSession(c context.Context, params stripe.CheckoutSessionParams) (stripe.CheckoutSession, error) {
	params.Context = c
	session, err := p.client.New(&params)
	if err != nil {
		return stripe.CheckoutSession{}, myerrors.NewGatewayError(fmt.Errorf("error creating stripe session: %w", err))
	}

	return *session, nil
}
