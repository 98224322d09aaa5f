package ws

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"liveauction/internal/apperr"
	"liveauction/internal/metrics"
)

// internal (untyped) handler signature.
type rawHandler func(ctx context.Context, c *ConnContext, body json.RawMessage) (any, error)

// Router keeps a map[event]handler, à-la gin.Engine.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]rawHandler
}

func NewRouter() *Router { return &Router{handlers: make(map[string]rawHandler)} }

// Register binds a client event to a typed handler. An empty or null body
// leaves Req at its zero value; a body that does not decode is a
// validation error.
func Register[Req any, Res any](
	r *Router,
	event string,
	h func(ctx context.Context, c *ConnContext, req Req) (Res, error),
) {
	if event == "" {
		panic("ws router: empty event")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.handlers[event]; dup {
		panic("ws router: duplicate handler for " + event)
	}

	r.handlers[event] = func(ctx context.Context, c *ConnContext, body json.RawMessage) (any, error) {
		var req Req
		if len(body) > 0 && string(body) != "null" {
			if err := json.Unmarshal(body, &req); err != nil {
				return nil, apperr.Validation("malformed body").With("event", event)
			}
		}
		return h(ctx, c, req)
	}
}

// Events lists the registered client events.
func (r *Router) Events() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for e := range r.handlers {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

// dispatch is called by the server's reader loop.
func (r *Router) dispatch(ctx context.Context, c *ConnContext, event string, body json.RawMessage) (res any, err error) {
	r.mu.RLock()
	h, ok := r.handlers[event]
	r.mu.RUnlock()
	if !ok {
		metrics.WsMessages.WithLabelValues("unknown", apperr.KindValidation.String()).Inc()
		return nil, apperr.Validation("unknown event").With("event", event)
	}

	defer func() {
		result := "ok"
		if err != nil {
			result = apperr.KindOf(err).String()
		}
		metrics.WsMessages.WithLabelValues(event, result).Inc()
	}()
	return h(ctx, c, body)
}
