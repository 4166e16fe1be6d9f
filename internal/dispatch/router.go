package dispatch

import (
	"context"
	"sync"

	"github.com/coachlink/gateway/internal/logger"
	"github.com/coachlink/gateway/internal/protocol"
)

// RoutedMessage is a decoded message selected for cross-network forwarding
// (spec §4.2: "Cross-network routing, when enabled, forwards selected
// messages onto a bounded queue consumed by a router task").
type RoutedMessage struct {
	SourceNetworkID string
	Message         *protocol.DecodedMessage
	Classification  Classification
	Priority        protocol.Priority
}

// RouteFunc delivers one routed message to wherever cross-network routing
// sends it (a bridge, a remote network's transport, a subscriber). Returning
// an error only logs; it never blocks the router loop or is retried.
type RouteFunc func(ctx context.Context, msg RoutedMessage) error

// Router is the bounded single-consumer queue behind cross-network routing.
// Overflow "drops the oldest non-critical message" (spec §4.2); if every
// queued message is critical, the incoming message is dropped instead and
// the drop counter still increments.
type Router struct {
	mu       sync.Mutex
	items    []RoutedMessage
	capacity int
	wake     chan struct{}

	counters *Counters
	route    RouteFunc
}

// NewRouter constructs a router with the given bounded capacity. route is
// invoked once per delivered message by Run; counters, when non-nil,
// receives drop accounting alongside the owning dispatcher's own counters.
func NewRouter(capacity int, route RouteFunc, counters *Counters) *Router {
	if capacity <= 0 {
		capacity = 256
	}
	return &Router{
		items:    make([]RoutedMessage, 0, capacity),
		capacity: capacity,
		wake:     make(chan struct{}, 1),
		counters: counters,
		route:    route,
	}
}

// Offer enqueues msg for cross-network delivery, applying the
// drop-oldest-non-critical overflow policy.
func (r *Router) Offer(msg RoutedMessage) {
	r.mu.Lock()
	if len(r.items) < r.capacity {
		r.items = append(r.items, msg)
		r.mu.Unlock()
		r.signal()
		return
	}

	if r.dropOldestNonCriticalLocked() {
		r.items = append(r.items, msg)
		r.mu.Unlock()
		r.signal()
		return
	}

	r.mu.Unlock()
	if r.counters != nil {
		r.counters.recordDrop()
	}
	logger.Debug("router queue at hard capacity, dropping message",
		logger.KeyNetworkID, msg.SourceNetworkID, logger.KeyPGN, msg.Message.PGN)
}

func (r *Router) dropOldestNonCriticalLocked() bool {
	for i, it := range r.items {
		if it.Priority != protocol.PriorityCritical {
			r.items = append(r.items[:i], r.items[i+1:]...)
			if r.counters != nil {
				r.counters.recordDrop()
			}
			return true
		}
	}
	return false
}

func (r *Router) pop(ctx context.Context) (RoutedMessage, bool) {
	for {
		r.mu.Lock()
		if len(r.items) > 0 {
			item := r.items[0]
			r.items = r.items[1:]
			r.mu.Unlock()
			return item, true
		}
		r.mu.Unlock()

		select {
		case <-ctx.Done():
			return RoutedMessage{}, false
		case <-r.wake:
		}
	}
}

func (r *Router) signal() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Run is the router's single consumer task: drain the queue and deliver
// each message via route until ctx is cancelled.
func (r *Router) Run(ctx context.Context) error {
	for {
		msg, ok := r.pop(ctx)
		if !ok {
			return ctx.Err()
		}
		if err := r.route(ctx, msg); err != nil {
			logger.Debug("cross-network route delivery failed",
				logger.KeyNetworkID, msg.SourceNetworkID, logger.KeyError, err)
		}
	}
}

// Len returns the number of messages currently queued, for status reporting.
func (r *Router) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}
