// Package frame defines the atomic CAN frame type and the abstract bus
// transport the core consumes, per spec §3 and §6. The core never touches
// an OS CAN socket directly; real implementations of BusTransport wrap one.
package frame

import "context"

// Frame is the atomic input to the protocol engine.
type Frame struct {
	ArbitrationID   uint32
	Data            [8]byte
	Length          int // 0..8, number of valid bytes in Data
	Extended        bool
	Timestamp       float64 // seconds, monotonic within a single network
	SourceNetworkID string
}

// Payload returns the valid data bytes.
func (f Frame) Payload() []byte {
	return f.Data[:f.Length]
}

// BusTransport is the abstract bus object the core consumes per network.
// Real implementations wrap OS CAN sockets (SocketCAN, PCAN, etc.); tests
// and simulators implement it directly over an in-memory queue.
type BusTransport interface {
	// Recv blocks until a frame is available, ctx is cancelled, or the bus
	// fails. A cancellation returns ctx.Err().
	Recv(ctx context.Context) (Frame, error)

	// Send transmits a frame. Implementations should treat a single failed
	// send as a TransientBusError candidate, not a BusFault, unless the
	// underlying socket itself is broken.
	Send(ctx context.Context, f Frame) error

	// Close releases the underlying resource. Idempotent.
	Close() error

	// Healthy reports the transport's own view of bus health, independent
	// of the NetworkNode's higher-level health state machine.
	Healthy() bool
}
