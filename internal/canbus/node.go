// Package canbus implements the multi-network CAN manager: registration,
// health monitoring, fault isolation, and recovery of multiple logical CAN
// interfaces, per spec §4.1.
package canbus

import (
	"sync"
	"time"
)

// Status is a NetworkNode's lifecycle state.
type Status int

const (
	StatusInitializing Status = iota
	StatusHealthy
	StatusDegraded
	StatusFaulted
	StatusIsolated
	StatusShutdown
)

func (s Status) String() string {
	switch s {
	case StatusInitializing:
		return "initializing"
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusFaulted:
		return "faulted"
	case StatusIsolated:
		return "isolated"
	case StatusShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Health tracks a node's message/error counters and timing.
type Health struct {
	Status          Status
	Message         string
	MessageCount    uint64
	ErrorCount      uint64
	LastMessageTime time.Time
	LastError       error
	BusOffCount     uint64
	FaultRecoveries uint64
	DropCount       uint64
}

// Priority is the cross-network routing and backpressure priority class,
// per spec §4.4.
type Priority int

const (
	PriorityBackground Priority = iota
	PriorityLow
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

// NetworkNode is one registered logical CAN interface.
type NetworkNode struct {
	NetworkID   string
	Interface   string
	Protocol    string
	Priority    Priority
	Isolation   bool
	StartTime   time.Time
	Filters     []uint32

	mu     sync.RWMutex
	health Health
}

// Snapshot returns a copy of the node's current health, safe for concurrent
// read by the status interface (spec §6).
func (n *NetworkNode) Snapshot() Health {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.health
}

func (n *NetworkNode) setStatus(s Status) {
	n.mu.Lock()
	n.health.Status = s
	n.mu.Unlock()
}

func (n *NetworkNode) status() Status {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.health.Status
}

func (n *NetworkNode) recordMessage(t time.Time) {
	n.mu.Lock()
	n.health.MessageCount++
	n.health.LastMessageTime = t
	n.mu.Unlock()
}

func (n *NetworkNode) recordError(err error) {
	n.mu.Lock()
	n.health.ErrorCount++
	n.health.LastError = err
	n.mu.Unlock()
}

func (n *NetworkNode) recordDrop() {
	n.mu.Lock()
	n.health.DropCount++
	n.mu.Unlock()
}

// RecordMessage records a successfully received frame's timestamp, for the
// health monitor's staleness check (spec §4.1) and the status surface.
func (n *NetworkNode) RecordMessage(t time.Time) { n.recordMessage(t) }

// RecordError records a per-frame decode/bus error against the node's
// error counter, for the health monitor's error-threshold check.
func (n *NetworkNode) RecordError(err error) { n.recordError(err) }

// RecordDrop increments the node's backpressure drop counter (spec §5).
func (n *NetworkNode) RecordDrop() { n.recordDrop() }

// Status returns the node's current lifecycle status.
func (n *NetworkNode) Status() Status { return n.status() }

// Demote forces the node to degraded, used by the inbound queue's
// hard-capacity backpressure policy (spec §5: "the node is demoted to
// degraded and a drop counter incremented").
func (n *NetworkNode) Demote() {
	n.mu.Lock()
	if n.health.Status == StatusHealthy {
		n.health.Status = StatusDegraded
	}
	n.mu.Unlock()
}
