package dispatch

import (
	"context"
	"time"

	"github.com/coachlink/gateway/internal/canbus"
	"github.com/coachlink/gateway/internal/frame"
	"github.com/coachlink/gateway/internal/gwerrors"
	"github.com/coachlink/gateway/internal/logger"
)

// ReaderTask is the single producer for one network node's InboundQueue, per
// spec §5: "One reader task per network node, suspending on frame receive
// and on bounded-queue send to the dispatcher." It never decodes a frame
// itself; PeekPriority only consults the loaded tables to classify the
// frame for the backpressure policy.
type ReaderTask struct {
	Node       *canbus.NetworkNode
	Transport  frame.BusTransport
	Protocol   string
	Queue      *InboundQueue
	Dispatcher *Dispatcher
}

// NewReaderTask constructs a reader task for one network.
func NewReaderTask(node *canbus.NetworkNode, transport frame.BusTransport, networkProtocol string, queue *InboundQueue, dispatcher *Dispatcher) *ReaderTask {
	return &ReaderTask{Node: node, Transport: transport, Protocol: networkProtocol, Queue: queue, Dispatcher: dispatcher}
}

// Run pulls frames off Transport until ctx is cancelled or the transport
// reports an unrecoverable error. Individual receive errors are logged and
// recorded against the node's health but do not stop the loop; the health
// monitor (internal/canbus) is responsible for isolating a node whose error
// rate crosses the threshold.
func (r *ReaderTask) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		f, err := r.Transport.Recv(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.Node.RecordError(gwerrors.TransientBus(r.Node.NetworkID, err))
			logger.Debug("bus receive error", logger.KeyNetworkID, r.Node.NetworkID, logger.KeyError, err)
			continue
		}

		f.SourceNetworkID = r.Node.NetworkID
		r.Node.RecordMessage(time.Unix(0, int64(f.Timestamp*float64(time.Second))))

		priority := r.Dispatcher.PeekPriority(r.Protocol, f.ArbitrationID)
		r.Queue.Push(QueuedFrame{Frame: f, Priority: priority})
	}
}

// DispatchLoop is the single consumer draining Queue and handing each frame
// to Dispatcher.Dispatch, completing the single-producer/single-consumer
// pairing spec §4.2 describes per network node.
type DispatchLoop struct {
	Node       *canbus.NetworkNode
	Protocol   string
	Queue      *InboundQueue
	Dispatcher *Dispatcher
	Router     *Router // optional: cross-network routing target, may be nil
}

// NewDispatchLoop constructs the consumer side of one network's inbound
// pipeline.
func NewDispatchLoop(node *canbus.NetworkNode, networkProtocol string, queue *InboundQueue, dispatcher *Dispatcher, router *Router) *DispatchLoop {
	return &DispatchLoop{Node: node, Protocol: networkProtocol, Queue: queue, Dispatcher: dispatcher, Router: router}
}

// Run drains Queue until ctx is cancelled or the queue is closed.
func (l *DispatchLoop) Run(ctx context.Context) error {
	for {
		item, ok := l.Queue.Pop(ctx)
		if !ok {
			return ctx.Err()
		}

		msg, class := l.Dispatcher.Dispatch(l.Protocol, item.Frame)
		if msg == nil || l.Router == nil {
			continue
		}
		l.Router.Offer(RoutedMessage{
			SourceNetworkID: l.Node.NetworkID,
			Message:         msg,
			Classification:  class,
			Priority:        item.Priority,
		})
	}
}
