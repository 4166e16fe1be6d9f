// Package entity maintains the live logical-device registry (lights,
// tanks, HVAC, engine, transmission, brakes, suspension, steering) and the
// updater that merges decoded CAN messages into it, per spec §3 and §4.7.
package entity

import (
	"sync"
	"time"
)

// Entity is a logical device backed by one or more DGN/PGN device
// records, built at startup from the coach mapping. State is the only
// mutable field post-registration.
type Entity struct {
	mu sync.RWMutex

	EntityID             string
	DeviceType           string
	Protocol             string
	Area                 string
	Capabilities         []string
	Groups               []string
	SafetyClassification string
	SourceDGN            string
	SourceInstance       int

	state       map[string]any
	lastUpdated time.Time
	lastSeen    time.Time
	registered  bool
}

// newEntity constructs an Entity in its unregistered state — not yet
// observable by external consumers (spec §3 invariant: "No Entity is
// observed by external consumers before its first state update OR its
// registration is complete, whichever comes first.").
func newEntity(entityID, deviceType, protocol, area string, capabilities, groups []string, safetyClassification, sourceDGN string, sourceInstance int) *Entity {
	return &Entity{
		EntityID:             entityID,
		DeviceType:           deviceType,
		Protocol:             protocol,
		Area:                 area,
		Capabilities:         capabilities,
		Groups:               groups,
		SafetyClassification: safetyClassification,
		SourceDGN:            sourceDGN,
		SourceInstance:       sourceInstance,
		state:                make(map[string]any),
	}
}

// MarkRegistered completes registration, making the entity observable
// even before its first state update.
func (e *Entity) MarkRegistered() {
	e.mu.Lock()
	e.registered = true
	e.mu.Unlock()
}

// Observable reports whether external consumers may see this entity:
// either registration completed or at least one state update landed.
func (e *Entity) Observable() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.registered || !e.lastUpdated.IsZero()
}

// Snapshot is an immutable, lock-free copy of an Entity's current state.
type Snapshot struct {
	EntityID             string
	DeviceType           string
	Protocol             string
	Area                 string
	Capabilities         []string
	Groups               []string
	SafetyClassification string
	State                map[string]any
	LastUpdated          time.Time
	LastSeen             time.Time
	SourceDGN            string
	SourceInstance        int
}

// Snapshot returns a copy of the entity's current state, safe to hand to
// external observers without holding any lock.
func (e *Entity) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	state := make(map[string]any, len(e.state))
	for k, v := range e.state {
		state[k] = v
	}

	return Snapshot{
		EntityID:             e.EntityID,
		DeviceType:           e.DeviceType,
		Protocol:             e.Protocol,
		Area:                 e.Area,
		Capabilities:         e.Capabilities,
		Groups:               e.Groups,
		SafetyClassification: e.SafetyClassification,
		State:                state,
		LastUpdated:          e.lastUpdated,
		LastSeen:             e.lastSeen,
		SourceDGN:            e.SourceDGN,
		SourceInstance:       e.SourceInstance,
	}
}

// mergeState merges signals into the entity's state map and advances
// last_updated/last_seen, enforcing the monotonic last_updated invariant
// (spec §8: "successive observed E.last_updated values are
// non-decreasing"). observedAt earlier than the current last_updated
// still updates state and last_seen, but never rewinds last_updated.
func (e *Entity) mergeState(signals map[string]any, observedAt, seenAt time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for k, v := range signals {
		e.state[k] = v
	}
	if observedAt.After(e.lastUpdated) {
		e.lastUpdated = observedAt
	}
	if seenAt.After(e.lastSeen) {
		e.lastSeen = seenAt
	}
	e.registered = true
}
