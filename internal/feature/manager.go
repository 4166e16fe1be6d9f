package feature

import (
	"fmt"
	"time"

	"github.com/coachlink/gateway/internal/gwerrors"
	"github.com/coachlink/gateway/internal/logger"
)

// Manager owns the feature dependency graph and drives startup/shutdown in
// dependency order, per spec §4.8.
type Manager struct {
	byName map[string]*Feature
	order  []string // registration order, for stable iteration
}

// NewManager returns an empty feature manager.
func NewManager() *Manager {
	return &Manager{byName: make(map[string]*Feature)}
}

// Register adds f to the graph. f.state starts at StateStopped. Registering
// a duplicate name is a configuration error.
func (m *Manager) Register(f *Feature) error {
	if _, exists := m.byName[f.Name]; exists {
		return gwerrors.Config("feature-manager", fmt.Errorf("duplicate feature %q", f.Name))
	}
	f.state = StateStopped
	f.health = HealthHealthy
	m.byName[f.Name] = f
	m.order = append(m.order, f.Name)
	return nil
}

// Get returns the named feature, if registered.
func (m *Manager) Get(name string) (*Feature, bool) {
	f, ok := m.byName[name]
	return f, ok
}

// All returns every registered feature in registration order.
func (m *Manager) All() []*Feature {
	out := make([]*Feature, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.byName[name])
	}
	return out
}

// topoSort produces a dependency-respecting start order: every feature
// appears after all of its Dependencies. Returns an error if the graph
// references an unknown feature or contains a cycle (spec §3: "The
// dependency graph must be acyclic").
func (m *Manager) topoSort() ([]string, error) {
	const (
		white = 0 // unvisited
		gray  = 1 // on the current DFS stack
		black = 2 // fully visited
	)

	color := make(map[string]int, len(m.order))
	var sorted []string

	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		switch color[name] {
		case black:
			return nil
		case gray:
			return gwerrors.Config("feature-manager", fmt.Errorf("dependency cycle detected: %v -> %s", path, name))
		}

		f, ok := m.byName[name]
		if !ok {
			return gwerrors.Config("feature-manager", fmt.Errorf("feature %q depends on unregistered feature %q", path[len(path)-1], name))
		}

		color[name] = gray
		for _, dep := range f.Dependencies {
			if err := visit(dep, append(path, name)); err != nil {
				return err
			}
		}
		color[name] = black
		sorted = append(sorted, name)
		return nil
	}

	for _, name := range m.order {
		if color[name] == white {
			if err := visit(name, nil); err != nil {
				return nil, err
			}
		}
	}
	return sorted, nil
}

// StartupError reports that a feature failed to start and, per its safety
// classification, aborted the whole startup sequence.
type StartupError struct {
	Feature string
	Err     error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("feature %q failed to start: %v", e.Feature, e.Err)
}
func (e *StartupError) Unwrap() error { return e.Err }

// Start builds the dependency DAG, topologically sorts it, and starts
// every enabled feature in order, per spec §4.8:
//
//  1. Build the DAG; reject cycles.
//  2. Topologically sort; start features in order; record
//     stopped -> starting -> running transitions.
//  3. On a feature's start failure, apply its safety classification:
//     critical aborts startup; operational/maintenance continue disabled;
//     safety_related/position_critical apply the configured degradation
//     policy.
//
// Start returns a *StartupError (never nil on failure, always this type)
// when a critical feature fails to start, so callers can exit non-zero
// per spec §6.
func (m *Manager) Start() error {
	order, err := m.topoSort()
	if err != nil {
		return err
	}

	for _, name := range order {
		f := m.byName[name]
		if !f.Enabled {
			f.state = StateStopped
			f.health = HealthDisabled
			continue
		}

		if err := m.startOne(f); err != nil {
			switch f.SafetyClassification {
			case ClassCritical:
				return &StartupError{Feature: f.Name, Err: err}
			case ClassOperational, ClassMaintenance:
				f.disabled = true
				f.health = HealthDisabled
				logger.Warn("feature disabled after start failure", logger.KeyFeature, f.Name, logger.KeyError, err)
			case ClassSafetyRelated, ClassPositionCritical:
				if f.Degrade != nil {
					f.Degrade(f, err)
				} else {
					f.disabled = true
					f.health = HealthDisabled
				}
				logger.Warn("feature degraded after start failure", logger.KeyFeature, f.Name, logger.KeyError, err)
			default:
				return &StartupError{Feature: f.Name, Err: err}
			}
		}
	}
	return nil
}

func (m *Manager) startOne(f *Feature) error {
	f.setState(StateStarting)
	m.logTransition(f, StateStarting)

	if f.Start != nil {
		if err := f.Start(); err != nil {
			f.setState(StateFailed)
			f.lastError = err
			m.logTransition(f, StateFailed)
			return gwerrors.FeatureStartup(f.Name, err)
		}
	}

	f.setState(StateRunning)
	f.health = HealthHealthy
	m.logTransition(f, StateRunning)
	return nil
}

// Stop traverses the DAG in reverse dependency order and stops every
// running feature, per spec §4.8. Stop failures are logged but do not
// prevent the remaining features from shutting down. It applies no
// per-feature timeout; callers that need one (the composition root, per
// spec §5's bounded-shutdown requirement) should use StopWithTimeout.
func (m *Manager) Stop() {
	m.stop(0)
}

// StopWithTimeout behaves like Stop but aborts any single feature's Stop
// call that runs longer than timeout, recording it as a failed shutdown
// transition per spec §5: "The feature manager enforces a per-feature
// shutdown timeout and records timeouts as failed shutdown transitions."
// A timed-out Stop's goroutine is abandoned (Go has no way to preempt it)
// but the manager proceeds to the next feature rather than blocking
// process shutdown on it.
func (m *Manager) StopWithTimeout(timeout time.Duration) {
	m.stop(timeout)
}

func (m *Manager) stop(timeout time.Duration) {
	order, err := m.topoSort()
	if err != nil {
		// The graph was already validated at Start(); this can only
		// happen if Stop is called without a prior successful Start.
		logger.Error("feature manager stop: invalid dependency graph", logger.KeyError, err)
		return
	}

	for i := len(order) - 1; i >= 0; i-- {
		f := m.byName[order[i]]
		if f.state != StateRunning {
			continue
		}

		f.setState(StateStopping)
		m.logTransition(f, StateStopping)

		if err := m.runStop(f, timeout); err != nil {
			f.setState(StateFailed)
			f.lastError = err
			m.logTransition(f, StateFailed)
			logger.Warn("feature shutdown failed", logger.KeyFeature, f.Name, logger.KeyError, err)
			continue
		}

		f.setState(StateStopped)
		m.logTransition(f, StateStopped)
	}
}

// runStop invokes f.Stop, enforcing timeout when positive.
func (m *Manager) runStop(f *Feature, timeout time.Duration) error {
	if f.Stop == nil {
		return nil
	}
	if timeout <= 0 {
		return f.Stop()
	}

	done := make(chan error, 1)
	go func() { done <- f.Stop() }()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return gwerrors.FeatureStartup(f.Name, fmt.Errorf("shutdown timed out after %s", timeout))
	}
}

func (m *Manager) logTransition(f *Feature, to State) {
	if f.LogStateTransitions {
		logger.Info("feature state transition", logger.KeyFeature, f.Name, "state", string(to))
	}
}

// Health aggregates every non-disabled feature's health, per spec §4.8:
// healthy iff all non-disabled features are healthy; degraded if any is
// degraded and none is failed; failed otherwise.
func (m *Manager) Health() Health {
	sawDegraded := false
	sawFailed := false

	for _, name := range m.order {
		f := m.byName[name]
		if f.health == HealthDisabled {
			continue
		}
		switch f.health {
		case HealthFailed:
			sawFailed = true
		case HealthDegraded:
			sawDegraded = true
		}
		if f.state == StateFailed && f.health != HealthDegraded {
			sawFailed = true
		}
	}

	switch {
	case sawFailed:
		return HealthFailed
	case sawDegraded:
		return HealthDegraded
	default:
		return HealthHealthy
	}
}

// SetDegraded marks f degraded (but still running), for use by a
// DegradationPolicy or by a feature reporting its own runtime health.
func (f *Feature) SetDegraded() {
	f.health = HealthDegraded
}
