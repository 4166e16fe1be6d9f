package canbus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/coachlink/gateway/internal/frame"
	"github.com/coachlink/gateway/internal/gwerrors"
	"github.com/coachlink/gateway/internal/logger"
)

// Registry manages all registered network nodes and enforces uniqueness of
// both the network_id and interface keys behind a single mutex, per
// spec §4.1.
type Registry struct {
	mu             sync.Mutex
	nodes          map[string]*NetworkNode    // network_id -> node
	byInterface    map[string]string          // interface -> network_id
	transports     map[string]frame.BusTransport
}

// NewRegistry creates an empty network registry.
func NewRegistry() *Registry {
	return &Registry{
		nodes:       make(map[string]*NetworkNode),
		byInterface: make(map[string]string),
		transports:  make(map[string]frame.BusTransport),
	}
}

// Register adds a new node in the initializing state. Returns an error if
// network_id or interface is already registered.
func (r *Registry) Register(networkID, iface, protocol string, priority Priority, isolation bool, filters []uint32) (*NetworkNode, error) {
	if networkID == "" {
		return nil, fmt.Errorf("cannot register network node with empty network_id")
	}
	if iface == "" {
		return nil, fmt.Errorf("cannot register network node with empty interface")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.nodes[networkID]; exists {
		return nil, fmt.Errorf("network %q already registered", networkID)
	}
	if existingID, exists := r.byInterface[iface]; exists {
		return nil, fmt.Errorf("interface %q already bound to network %q", iface, existingID)
	}

	node := &NetworkNode{
		NetworkID: networkID,
		Interface: iface,
		Protocol:  protocol,
		Priority:  priority,
		Isolation: isolation,
		StartTime: time.Now(),
		Filters:   filters,
	}
	node.health.Status = StatusInitializing

	r.nodes[networkID] = node
	r.byInterface[iface] = networkID

	logger.Info("network node registered", logger.KeyNetworkID, networkID, logger.KeyInterface, iface)
	return node, nil
}

// Attach binds a bus transport to a previously registered node. On success
// the node transitions to healthy; on failure it transitions to faulted and
// the error is returned (non-fatal to the registry).
func (r *Registry) Attach(networkID string, transport frame.BusTransport) error {
	node, ok := r.Get(networkID)
	if !ok {
		return fmt.Errorf("network %q not registered", networkID)
	}

	r.mu.Lock()
	r.transports[networkID] = transport
	r.mu.Unlock()

	if transport == nil || !transport.Healthy() {
		node.setStatus(StatusFaulted)
		err := gwerrors.BusFault(networkID, fmt.Errorf("transport unhealthy on attach"))
		node.recordError(err)
		return err
	}

	node.setStatus(StatusHealthy)
	return nil
}

// Get returns the node for networkID, if registered.
func (r *Registry) Get(networkID string) (*NetworkNode, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.nodes[networkID]
	return n, ok
}

// Transport returns the bus transport currently attached to networkID.
func (r *Registry) Transport(networkID string) (frame.BusTransport, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.transports[networkID]
	return t, ok
}

// All returns a snapshot slice of every registered node, for status
// reporting (spec §6).
func (r *Registry) All() []*NetworkNode {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*NetworkNode, 0, len(r.nodes))
	for _, n := range r.nodes {
		out = append(out, n)
	}
	return out
}

// Isolate manually and idempotently isolates a node: closes its bus, sets
// status to isolated, and records the reason. Isolation suppresses both
// inbound dispatch and outbound transmission until Recover is called.
func (r *Registry) Isolate(networkID, reason string) error {
	node, ok := r.Get(networkID)
	if !ok {
		return fmt.Errorf("network %q not registered", networkID)
	}

	if node.status() == StatusIsolated {
		return nil // idempotent
	}

	if transport, ok := r.Transport(networkID); ok && transport != nil {
		_ = transport.Close()
	}

	node.mu.Lock()
	node.health.Status = StatusIsolated
	node.health.Message = reason
	node.mu.Unlock()

	logger.Warn("network node isolated", logger.KeyNetworkID, networkID, logger.KeyReason, reason)
	return nil
}

// Recover clears an isolated or faulted node back to healthy via the bus
// recovery procedure in spec §4.1: close, wait >=1s, reattach.
func (r *Registry) Recover(ctx context.Context, networkID string, reattach func(ctx context.Context) (frame.BusTransport, error)) error {
	node, ok := r.Get(networkID)
	if !ok {
		return fmt.Errorf("network %q not registered", networkID)
	}

	if old, ok := r.Transport(networkID); ok && old != nil {
		_ = old.Close()
	}

	select {
	case <-time.After(time.Second):
	case <-ctx.Done():
		return ctx.Err()
	}

	newTransport, err := reattach(ctx)
	if err != nil {
		node.setStatus(StatusFaulted)
		node.recordError(err)
		return gwerrors.BusFault(networkID, err)
	}

	r.mu.Lock()
	r.transports[networkID] = newTransport
	r.mu.Unlock()

	node.mu.Lock()
	node.health.Status = StatusHealthy
	node.health.FaultRecoveries++
	node.health.LastError = nil
	node.mu.Unlock()

	logger.Info("network node recovered", logger.KeyNetworkID, networkID)
	return nil
}

// Shutdown closes every attached transport and marks every node shutdown.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, t := range r.transports {
		if t != nil {
			_ = t.Close()
		}
		if n, ok := r.nodes[id]; ok {
			n.setStatus(StatusShutdown)
		}
	}
}
