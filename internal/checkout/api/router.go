package api

import (
	checkout "transferly/internal/checkout/core"
	"transferly/internal/checkout/handlers"
	"transferly/internal/checkout/service"
	"transferly/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

func NewHandlers(deps *checkout.Deps, limiter *checkout.Limiter, db handlers.Pinger, log *logger.Logger) (*handlers.FlowHandler, *handlers.HealthHandler) {
	checkoutService := service.NewCheckoutService(deps, limiter, log)
	return handlers.NewFlowHandler(checkoutService, log), handlers.NewHealthHandler(db, log)
}

// SetupRouter builds the checkout API, flow execution plus health probes, on
// one router with no middleware.
func SetupRouter(deps *checkout.Deps, limiter *checkout.Limiter, db handlers.Pinger, log *logger.Logger) *httprouter.Router {
	flowHandler, healthHandler := NewHandlers(deps, limiter, db, log)

	router := httprouter.New()
	flowHandler.RegisterRoutes(router)
	healthHandler.RegisterRoutes(router)
	return router
}
