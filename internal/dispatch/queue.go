package dispatch

import (
	"context"
	"sync"

	"github.com/coachlink/gateway/internal/canbus"
	"github.com/coachlink/gateway/internal/frame"
	"github.com/coachlink/gateway/internal/protocol"
)

// QueuedFrame pairs an inbound frame with the priority class used by the
// backpressure policy, computed before decode via a table lookup only
// (spec §4.2 classification is table-driven and cheap; full signal decode
// happens after dequeue).
type QueuedFrame struct {
	Frame    frame.Frame
	Priority protocol.Priority
}

var priorityRank = map[protocol.Priority]int{
	protocol.PriorityBackground: 0,
	protocol.PriorityLow:        1,
	protocol.PriorityNormal:     2,
	protocol.PriorityHigh:       3,
	protocol.PriorityCritical:   4,
}

// InboundQueue is the bounded per-network queue the reader task feeds and
// the dispatch loop drains, per spec §5: "One reader task per network
// node, suspending on frame receive and on bounded-queue send to the
// dispatcher."
//
// Overflow applies the priority-aware drop policy from spec §5:
// background/low are discarded first; critical is never dropped until the
// queue is at hard capacity (every queued item is itself critical), at
// which point the node is demoted to degraded and its drop counter is
// incremented.
type InboundQueue struct {
	mu       sync.Mutex
	items    []QueuedFrame
	capacity int
	node     *canbus.NetworkNode
	wake     chan struct{}
}

// NewInboundQueue constructs a bounded queue of the given capacity,
// reporting drops and degradation against node.
func NewInboundQueue(capacity int, node *canbus.NetworkNode) *InboundQueue {
	if capacity <= 0 {
		capacity = 256
	}
	return &InboundQueue{
		items:    make([]QueuedFrame, 0, capacity),
		capacity: capacity,
		node:     node,
		wake:     make(chan struct{}, 1),
	}
}

// Push enqueues item, applying the priority-aware drop policy on overflow.
func (q *InboundQueue) Push(item QueuedFrame) {
	q.mu.Lock()
	if len(q.items) < q.capacity {
		q.items = append(q.items, item)
		q.mu.Unlock()
		q.signal()
		return
	}

	if q.dropOldestBelowLocked(item.Priority) {
		q.items = append(q.items, item)
		q.mu.Unlock()
		q.signal()
		return
	}

	// Hard capacity: every queued item is at least as critical as the
	// incoming one (typically the queue is all-critical). The incoming
	// frame is dropped and the node demoted.
	q.mu.Unlock()
	if q.node != nil {
		q.node.RecordDrop()
		q.node.Demote()
	}
}

// dropOldestBelowLocked removes the oldest queued item whose priority is
// strictly lower than incoming, if any, making room for it. Must be
// called with q.mu held.
func (q *InboundQueue) dropOldestBelowLocked(incoming protocol.Priority) bool {
	for i, it := range q.items {
		if priorityRank[it.Priority] < priorityRank[incoming] {
			q.items = append(q.items[:i], q.items[i+1:]...)
			if q.node != nil {
				q.node.RecordDrop()
			}
			return true
		}
	}
	return false
}

// Pop blocks until an item is available or ctx is cancelled.
func (q *InboundQueue) Pop(ctx context.Context) (QueuedFrame, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			item := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return item, true
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return QueuedFrame{}, false
		case <-q.wake:
		}
	}
}

// Len returns the number of items currently queued, for status reporting.
func (q *InboundQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *InboundQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}
