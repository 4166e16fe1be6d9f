package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/coachlink/gateway/internal/frame"
	"github.com/coachlink/gateway/pkg/config"
)

// TransportFactory builds the bus transport for one configured network,
// per spec §6's abstract frame-transport boundary: "the core consumes an
// abstract bus object per network... Real implementations wrap OS CAN
// sockets." The composition root never talks to a socket directly; it
// only calls whatever factory the caller injects (real SocketCAN/PCAN
// wrapper in production, a simulator in tests).
type TransportFactory func(ctx context.Context, net config.NetworkConfig) (frame.BusTransport, error)

// virtualTransport is the bustype "virtual" fallback: a bus with no peer
// that never receives and accepts every send, so a gateway can start up
// and serve its status/control surface with no physical CAN hardware
// attached (e.g. during `gatewayd init`-time smoke checks or bench
// testing against internally-injected frames only).
//
// It deliberately implements frame.BusTransport as a plain leaf type with
// no internal queue: spec's non-goals exclude a real driver, and this
// exists only to give unconfigured/placeholder networks a legal attach
// target rather than special-casing "no transport" throughout the
// composition root.
type virtualTransport struct {
	mu     sync.Mutex
	closed bool
}

func newVirtualTransport() *virtualTransport {
	return &virtualTransport{}
}

func (t *virtualTransport) Recv(ctx context.Context) (frame.Frame, error) {
	<-ctx.Done()
	return frame.Frame{}, ctx.Err()
}

func (t *virtualTransport) Send(ctx context.Context, f frame.Frame) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return context.Canceled
	}
	return nil
}

func (t *virtualTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

func (t *virtualTransport) Healthy() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.closed
}

// DefaultTransportFactory builds a virtual transport for every network
// regardless of bustype. Production wiring (cmd/gatewayd) is expected to
// inject a factory that dispatches on net.Bustype to a real SocketCAN/PCAN
// adapter and falls back to this one for "virtual" networks; passing nil
// to New uses this factory directly, which is only suitable for
// bench/demo use.
func DefaultTransportFactory(_ context.Context, _ config.NetworkConfig) (frame.BusTransport, error) {
	return newVirtualTransport(), nil
}

// recoveringReattach adapts a TransportFactory into the canbus.Reattacher
// shape the health monitor calls during recovery, applying a short fixed
// delay (10 ms) so a rapidly flapping bus doesn't spin the recovery loop.
func recoveringReattach(factory TransportFactory, net config.NetworkConfig) func(ctx context.Context, networkID string) (frame.BusTransport, error) {
	return func(ctx context.Context, _ string) (frame.BusTransport, error) {
		select {
		case <-time.After(10 * time.Millisecond):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return factory(ctx, net)
	}
}
