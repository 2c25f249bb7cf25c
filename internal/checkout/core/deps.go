package core

import (
	"transferly/internal/payment"
	"transferly/internal/quote"
	"transferly/internal/resolver"
	"transferly/internal/route"
)

// Deps are the collaborators flows are built from.
type Deps struct {
	Places          resolver.Provider
	ResolverOptions resolver.Options
	RouteOptions    route.Options
	Quotes          *quote.Facade
	Payments        *payment.Registry
	// Journal is nil when payment journaling is disabled.
	Journal payment.Journal
}
