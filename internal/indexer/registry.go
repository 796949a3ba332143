package indexer

import (
	"context"
	"fmt"
	"sort"

	"github.com/protocolindex/projectsink/types"
)

// Handler processes one event batch of a transaction.
type Handler interface {
	Handle(ctx context.Context, tx *types.Tx, ev Event) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, tx *types.Tx, ev Event) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, tx *types.Tx, ev Event) error {
	return f(ctx, tx, ev)
}

// Registry maps event types to their handlers.
type Registry struct {
	handlers map[EventType]Handler
}

// NewRegistry returns an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[EventType]Handler)}
}

// Register associates h with typ. It panics if typ already has a handler.
func (r *Registry) Register(typ EventType, h Handler) {
	if _, ok := r.handlers[typ]; ok {
		panic(fmt.Sprintf("duplicate handler for event %q", typ))
	}
	r.handlers[typ] = h
}

// Lookup returns the handler registered for typ.
func (r *Registry) Lookup(typ EventType) (Handler, bool) {
	h, ok := r.handlers[typ]
	return h, ok
}

// Types returns the registered event types in sorted order.
func (r *Registry) Types() []EventType {
	out := make([]EventType, 0, len(r.handlers))
	for typ := range r.handlers {
		out = append(out, typ)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
