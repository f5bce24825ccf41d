package warmup

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/MarcGrol/marketplace/lib/mycontext"
	"github.com/MarcGrol/marketplace/lib/myerrors"
	"github.com/MarcGrol/marketplace/lib/myhttp"
	"github.com/MarcGrol/marketplace/lib/mylog"
)

// Check touches a dependency; a warmup fails while one of them is unreachable.
type Check func(c context.Context) error

type webService struct {
	logger mylog.Logger
	checks map[string]Check
}

type healthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Use dependency injection to isolate the infrastructure and ease testing
func NewService(checks map[string]Check) *webService {
	return &webService{
		logger: mylog.New("warmup"),
		checks: checks,
	}
}

func (s webService) RegisterEndpoints(c context.Context, router *mux.Router) {
	router.HandleFunc("/api/health", s.healthPage()).Methods("GET")
	router.HandleFunc("/_ah/warmup", s.warmupPage()).Methods("GET")
}

func (s *webService) healthPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)

		myhttp.NewWriter(s.logger).Write(c, w, http.StatusOK, healthResponse{
			Status:  "ok",
			Message: "Marketplace API is running",
		})
	}
}

func (s *webService) warmupPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		for name, check := range s.checks {
			err := check(c)
			if err != nil {
				errorWriter.WriteError(c, w, 1, myerrors.NewUnavailableError(fmt.Errorf("%s not ready: %w", name, err)))
				return
			}
		}

		errorWriter.Write(c, w, http.StatusOK, myhttp.SuccessResponse{
			Message: "Successfully processed warmup request",
		})
	}
}
