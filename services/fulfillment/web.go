package fulfillment

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/MarcGrol/marketplace/lib/mycontext"
	"github.com/MarcGrol/marketplace/lib/myerrors"
	"github.com/MarcGrol/marketplace/lib/myhttp"
	"github.com/MarcGrol/marketplace/lib/mylog"
	"github.com/MarcGrol/marketplace/services/checkoutapi"
)

type webService struct {
	logger        mylog.Logger
	service       *Service
	adminUsername string
	adminPassword string
}

func NewWebService(service *Service, adminUsername, adminPassword string) *webService {
	return &webService{
		logger:        mylog.New("fulfillment"),
		service:       service,
		adminUsername: adminUsername,
		adminPassword: adminPassword,
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) error {
	router.HandleFunc("/api/admin/orders", s.adminOnly(s.listOrders())).Methods("GET")
	router.HandleFunc("/api/admin/orders/summary", s.adminOnly(s.summary())).Methods("GET")

	router.HandleFunc("/api/orders/session/{sessionID}", s.orderBySession()).Methods("GET")

	return nil
}

// adminOnly refuses everything when no admin credentials are configured.
func (s *webService) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		username, password, ok := r.BasicAuth()
		if !ok || s.adminUsername == "" || s.adminPassword == "" ||
			subtle.ConstantTimeCompare([]byte(username), []byte(s.adminUsername)) != 1 ||
			subtle.ConstantTimeCompare([]byte(password), []byte(s.adminPassword)) != 1 {
			w.Header().Set("WWW-Authenticate", `Basic realm="marketplace-admin"`)
			errorWriter.WriteError(c, w, 1, myerrors.NewNotAuthorizedError(fmt.Errorf("admin credentials required")))
			return
		}

		next(w, r)
	}
}

type orderItemView struct {
	ProductUID  string                  `json:"productId"`
	ProductName string                  `json:"productName"`
	Kind        checkoutapi.ProductKind `json:"type"`
	Quantity    int                     `json:"quantity"`
	UnitPrice   string                  `json:"unitPrice"`
	Subtotal    string                  `json:"subtotal"`
}

type orderView struct {
	Order
	TotalAmount string          `json:"totalAmount"`
	ItemViews   []orderItemView `json:"lines"`
}

func newOrderView(order Order) orderView {
	items := make([]orderItemView, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemView{
			ProductUID:  item.ProductUID,
			ProductName: item.ProductName,
			Kind:        item.Kind,
			Quantity:    item.Quantity,
			UnitPrice:   checkoutapi.FormatCents(item.UnitPriceInCents),
			Subtotal:    checkoutapi.FormatCents(item.SubtotalInCents()),
		})
	}
	return orderView{
		Order:       order,
		TotalAmount: checkoutapi.FormatCents(order.TotalAmountInCents),
		ItemViews:   items,
	}
}

func (s *webService) listOrders() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		orders, err := s.service.ListOrders(c)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		views := make([]orderView, 0, len(orders))
		for _, order := range orders {
			views = append(views, newOrderView(order))
		}

		errorWriter.Write(c, w, http.StatusOK, views)
	}
}

func (s *webService) summary() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		summary, err := s.service.Summary(c)
		if err != nil {
			errorWriter.WriteError(c, w, 3, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, summary)
	}
}

func (s *webService) orderBySession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		sessionID := mux.Vars(r)["sessionID"]

		order, err := s.service.GetBySessionID(c, sessionID)
		if err != nil {
			errorWriter.WriteError(c, w, 4, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, newOrderView(order))
	}
}
