package routers

import (
	"fmt"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mkravets/txn-webhooks/internal/di"
	http2 "github.com/mkravets/txn-webhooks/internal/infrastructure/api/http"
)

// webhookThrottleLimit caps in-flight webhook requests; excess requests wait
// instead of hitting the store all at once.
const webhookThrottleLimit = 512

func NewRouter(container *di.Container) *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Route("/v1", func(r chi.Router) {
		r.Get("/health", container.HealthHandler.Check)

		r.Route("/webhooks", func(r chi.Router) {
			r.With(middleware.Throttle(webhookThrottleLimit)).
				Post("/transactions", container.TransactionHandler.HandleWebhook)
		})

		r.Get(fmt.Sprintf("/transactions/{%s}", http2.TransactionIDParam), container.TransactionHandler.GetTransaction)
	})

	return router
}
