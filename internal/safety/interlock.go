package safety

import "time"

// State is the current status of a SafetyInterlock evaluation.
type State string

const (
	StateSafe     State = "safe"
	StateUnsafe   State = "unsafe"
	StateBypassed State = "bypassed"
	StateFault    State = "fault"
	StateUnknown  State = "unknown"
)

// Condition evaluates one named required condition against a vehicle-state
// snapshot, returning whether it is satisfied.
type Condition func(Snapshot) bool

// Registry maps named conditions (e.g. "park_brake_set",
// "engine_not_running") to their evaluation functions, shared by every
// component's SafetyInterlock.
type Registry struct {
	conditions map[string]Condition
}

// NewRegistry builds a condition registry preloaded with the standard
// VehicleState-derived conditions every interlock rule set can reference.
func NewRegistry() *Registry {
	r := &Registry{conditions: make(map[string]Condition)}
	r.Register("park_brake_set", func(s Snapshot) bool { return s.ParkBrakeSet })
	r.Register("park_brake_not_set", func(s Snapshot) bool { return !s.ParkBrakeSet })
	r.Register("engine_running", func(s Snapshot) bool { return s.EngineRunning })
	r.Register("engine_not_running", func(s Snapshot) bool { return !s.EngineRunning })
	r.Register("vehicle_stopped", func(s Snapshot) bool { return s.VehicleSpeed == 0 })
	r.Register("is_level", func(s Snapshot) bool { return s.IsLevel })
	return r
}

// Register adds or replaces a named condition.
func (r *Registry) Register(name string, cond Condition) {
	r.conditions[name] = cond
}

// Evaluate checks every name in required against snapshot, returning the
// names that failed (empty if all passed). A name with no registered
// condition counts as a failure — an interlock can never silently pass a
// condition it doesn't know how to check.
func (r *Registry) Evaluate(snapshot Snapshot, required []string) (violations []string) {
	for _, name := range required {
		cond, ok := r.conditions[name]
		if !ok || !cond(snapshot) {
			violations = append(violations, name)
		}
	}
	return violations
}

// SafetyInterlock is the generic per-component safety gate: a set of
// required conditions that must all hold before the component's commands
// are allowed through.
type SafetyInterlock struct {
	Component          string
	RequiredConditions []string
	CurrentState       State
	LastCheck          time.Time
	FaultReason        string
	BypassActive       bool
}

// NewSafetyInterlock constructs an interlock in StateUnknown — it has not
// been evaluated yet.
func NewSafetyInterlock(component string, requiredConditions []string) *SafetyInterlock {
	return &SafetyInterlock{
		Component:          component,
		RequiredConditions: requiredConditions,
		CurrentState:       StateUnknown,
	}
}

// Evaluate checks the interlock's required conditions against snapshot
// using registry, updates CurrentState/LastCheck/FaultReason, and returns
// the violations found (empty slice if the interlock is safe).
func (s *SafetyInterlock) Evaluate(registry *Registry, snapshot Snapshot, checkedAt time.Time) []string {
	s.LastCheck = checkedAt

	if s.BypassActive {
		s.CurrentState = StateBypassed
		s.FaultReason = ""
		return nil
	}

	violations := registry.Evaluate(snapshot, s.RequiredConditions)
	if len(violations) == 0 {
		s.CurrentState = StateSafe
		s.FaultReason = ""
		return nil
	}

	s.CurrentState = StateUnsafe
	s.FaultReason = violations[0]
	return violations
}

// Bypass marks the interlock as manually overridden; subsequent Evaluate
// calls report StateBypassed without checking conditions.
func (s *SafetyInterlock) Bypass(active bool) {
	s.BypassActive = active
}

// Safe reports whether the interlock currently permits commands through:
// true for StateSafe and StateBypassed, false otherwise.
func (s *SafetyInterlock) Safe() bool {
	return s.CurrentState == StateSafe || s.CurrentState == StateBypassed
}
