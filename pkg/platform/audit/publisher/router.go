package publisher

import (
	"context"

	audit "bridgehub/pkg/platform/audit"
)

// Emitter is anything that accepts audit events.
type Emitter interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Router sends each event to the emitter registered for its category,
// or to the fallback when none is.
type Router struct {
	routes   map[audit.EventCategory]Emitter
	fallback Emitter
}

func NewRouter(fallback Emitter) *Router {
	return &Router{routes: make(map[audit.EventCategory]Emitter), fallback: fallback}
}

// Route registers e for category. Not safe to call concurrently with Emit.
func (r *Router) Route(category audit.EventCategory, e Emitter) *Router {
	r.routes[category] = e
	return r
}

func (r *Router) Emit(ctx context.Context, event audit.Event) error {
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}
	if e, ok := r.routes[event.Category]; ok {
		return e.Emit(ctx, event)
	}
	if r.fallback == nil {
		return nil
	}
	return r.fallback.Emit(ctx, event)
}
