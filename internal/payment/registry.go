package payment

import (
	"time"
	"transferly/pkg/cache"
)

// Registry keeps one controller per booking so that separate requests for
// the same booking share its state and its single-intent guard. Idle entries
// expire after the session TTL and are closed when dropped. A controller that
// still holds a payment (live intent, backend call in flight, ambiguous
// charge) is never dropped.
type Registry struct {
	controllers *cache.Cache[*Controller]
	factory     func(bookingID string) *Controller
}

func NewRegistry(ttl time.Duration, factory func(bookingID string) *Controller) *Registry {
	return &Registry{
		controllers: cache.New[*Controller](ttl,
			cache.WithRetain(func(c *Controller) bool { return c.Retained() }),
			cache.WithOnEvict(func(_ string, c *Controller) { c.Close() }),
		),
		factory: factory,
	}
}

// Get returns the booking's controller if one is registered. Access
// refreshes the entry's TTL.
func (r *Registry) Get(bookingID string) (*Controller, bool) {
	return r.controllers.Touch(bookingID)
}

// GetOrCreate returns the booking's controller, creating it on first use.
// Access refreshes the entry's TTL.
func (r *Registry) GetOrCreate(bookingID string) *Controller {
	ctrl := r.controllers.GetOrCreate(bookingID, func() *Controller {
		return r.factory(bookingID)
	})
	r.controllers.Touch(bookingID)
	return ctrl
}

// Remove closes and forgets the booking's controller.
func (r *Registry) Remove(bookingID string) {
	if ctrl, ok := r.controllers.Get(bookingID); ok {
		ctrl.Close()
	}
	r.controllers.Delete(bookingID)
}

func (r *Registry) Len() int {
	return r.controllers.Len()
}

func (r *Registry) Close() {
	r.controllers.Stop()
}
