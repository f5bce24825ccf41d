package checkoutstripe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/MarcGrol/marketplace/lib/mycontext"
	"github.com/MarcGrol/marketplace/lib/myerrors"
	"github.com/MarcGrol/marketplace/lib/myhttp"
	"github.com/MarcGrol/marketplace/lib/mylog"
	"github.com/MarcGrol/marketplace/lib/mytime"
	"github.com/MarcGrol/marketplace/services/checkoutapi"
)

const maxWebhookBytes = 1 << 16

type webService struct {
	logger  mylog.Logger
	service *service
}

type webhookResponse struct {
	Received bool `json:"received"`
}

// Use dependency injection to isolate the infrastructure and easy testing
func NewWebService(cfg Config, payer Payer, codec checkoutapi.CartCodec, webhookSecret string, webhookTolerance time.Duration,
	nower mytime.Nower, fulfiller checkoutapi.Fulfiller) *webService {
	logger := mylog.New("checkoutstripe")
	return &webService{
		logger:  logger,
		service: newService(logger, cfg, payer, codec, newVerifier(webhookSecret, webhookTolerance, nower), fulfiller),
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) error {
	router.HandleFunc("/api/stripe/checkout", s.startCheckoutPage()).Methods("POST")

	router.HandleFunc("/api/webhook/stripe", s.webhookNotification()).Methods("POST")

	return nil
}

// startCheckoutPage answers json with the session, a plain html form with a redirect to the payment page
func (s *webService) startCheckoutPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		req, err := checkoutapi.NewFromRequest(r)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		resp, err := s.service.startCheckout(c, req, myhttp.HostnameWithScheme(r))
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		if !myhttp.IsJSON(r) {
			http.Redirect(w, r, resp.RedirectURL, http.StatusSeeOther)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, resp)
	}
}

// webhookNotification needs the body byte for byte: the signature covers the raw payload.
func (s *webService) webhookNotification() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes+1))
		if err != nil {
			errorWriter.WriteError(c, w, 3, myerrors.NewInvalidInputError(fmt.Errorf("error reading body: %s", err)))
			return
		}
		if len(payload) > maxWebhookBytes {
			errorWriter.WriteError(c, w, 4, myerrors.NewInvalidInputErrorf("body exceeds %d bytes", maxWebhookBytes))
			return
		}

		err = s.service.webhookNotification(c, payload, r.Header.Get(signatureHeader))
		if err != nil {
			errorWriter.WriteError(c, w, 5, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, webhookResponse{Received: true})
	}
}
