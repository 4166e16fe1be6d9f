package canbus

import (
	"context"
	"time"

	"github.com/coachlink/gateway/internal/frame"
	"github.com/coachlink/gateway/internal/logger"
)

// DefaultHealthCheckInterval is the health-monitor loop period (spec §4.1).
const DefaultHealthCheckInterval = 5 * time.Second

const (
	messageStaleThreshold = 30 * time.Second
	errorCountThreshold   = 100
)

// Reattacher builds a fresh transport for networkID during recovery.
type Reattacher func(ctx context.Context, networkID string) (frame.BusTransport, error)

// Monitor runs the single health-monitor task for all registered nodes.
type Monitor struct {
	registry         *Registry
	interval         time.Duration
	faultIsolation   bool
	reattach         Reattacher
}

// NewMonitor constructs a health monitor over registry.
func NewMonitor(registry *Registry, interval time.Duration, faultIsolation bool, reattach Reattacher) *Monitor {
	if interval <= 0 {
		interval = DefaultHealthCheckInterval
	}
	return &Monitor{registry: registry, interval: interval, faultIsolation: faultIsolation, reattach: reattach}
}

// Run drives the periodic health check until ctx is cancelled. It is meant
// to be launched as the single health-monitor task described in spec §5.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.checkAll(ctx)
		}
	}
}

func (m *Monitor) checkAll(ctx context.Context) {
	for _, node := range m.registry.All() {
		m.check(ctx, node)
	}
}

func (m *Monitor) check(ctx context.Context, node *NetworkNode) {
	status := node.status()

	switch status {
	case StatusIsolated, StatusShutdown:
		return // isolation/shutdown are only cleared explicitly
	case StatusFaulted:
		if m.faultIsolation {
			m.recover(ctx, node)
		}
		return
	}

	if transport, ok := m.registry.Transport(node.NetworkID); !ok || transport == nil || !transport.Healthy() {
		node.setStatus(StatusFaulted)
		if m.faultIsolation {
			m.recover(ctx, node)
		}
		return
	}

	if status != StatusHealthy {
		return
	}

	h := node.Snapshot()
	if !h.LastMessageTime.IsZero() && time.Since(h.LastMessageTime) > messageStaleThreshold {
		logger.Warn("network node demoted to degraded: no recent messages", logger.KeyNetworkID, node.NetworkID)
		node.setStatus(StatusDegraded)
		return
	}
	if h.ErrorCount > errorCountThreshold {
		logger.Warn("network node demoted to degraded: error threshold exceeded", logger.KeyNetworkID, node.NetworkID, logger.KeyCount, h.ErrorCount)
		node.setStatus(StatusDegraded)
		return
	}
}

func (m *Monitor) recover(ctx context.Context, node *NetworkNode) {
	if m.reattach == nil {
		return
	}
	err := m.registry.Recover(ctx, node.NetworkID, func(ctx context.Context) (frame.BusTransport, error) {
		return m.reattach(ctx, node.NetworkID)
	})
	if err != nil {
		logger.Warn("network node recovery failed", logger.KeyNetworkID, node.NetworkID, logger.KeyError, err)
	}
}
