package entity

import (
	"fmt"
	"sync"

	"github.com/coachlink/gateway/internal/rvc"
)

// Registry is the mapping entity_id -> Entity, built at startup from the
// coach mapping. Afterward entities are only ever added (Register,
// MergeCoachMapping), never removed or replaced, and only Entity.state
// mutates post-registration. A single mutex guards the map itself;
// per-entity locking (embedded in Entity) keeps readers from blocking on
// unrelated writes.
type Registry struct {
	mu   sync.RWMutex
	byID map[string]*Entity
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]*Entity)}
}

// BuildFromCoachMapping populates the registry from every device record
// in cm, one Entity per distinct entity_id (a single entity may be backed
// by more than one DGN/instance device record, e.g. a command DGN and a
// status DGN for the same light).
func BuildFromCoachMapping(cm *rvc.CoachMapping) *Registry {
	r := NewRegistry()
	for _, d := range cm.All() {
		e, ok := r.byID[d.EntityID]
		if !ok {
			e = newEntity(d.EntityID, d.DeviceType, d.Interface, d.Area, d.Capabilities, d.Groups, d.SafetyClassification, d.DGNHex, d.Instance)
			r.byID[d.EntityID] = e
		}
		e.MarkRegistered()
	}
	return r
}

// MergeCoachMapping adds any entity named in a freshly reloaded coach
// mapping that the registry doesn't already know about, without touching
// the state of any existing entity. It supports the coach-mapping
// hot-reload path (spec_full §5): a device added to the mapping file
// becomes observable immediately, while every already-registered entity
// keeps its accumulated state across the reload. Returns how many new
// entities were added.
func (r *Registry) MergeCoachMapping(cm *rvc.CoachMapping) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	added := 0
	for _, d := range cm.All() {
		if _, exists := r.byID[d.EntityID]; exists {
			continue
		}
		e := newEntity(d.EntityID, d.DeviceType, d.Interface, d.Area, d.Capabilities, d.Groups, d.SafetyClassification, d.DGNHex, d.Instance)
		e.MarkRegistered()
		r.byID[d.EntityID] = e
		added++
	}
	return added
}

// Register adds e to the registry, erroring on a duplicate entity_id.
func (r *Registry) Register(e *Entity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[e.EntityID]; exists {
		return fmt.Errorf("duplicate entity_id %q", e.EntityID)
	}
	r.byID[e.EntityID] = e
	return nil
}

// Get returns the entity with the given ID, if registered.
func (r *Registry) Get(entityID string) (*Entity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[entityID]
	return e, ok
}

// All returns a snapshot slice of every registered entity, for the
// status/health surface and observer bootstrap.
func (r *Registry) All() []Snapshot {
	r.mu.RLock()
	entities := make([]*Entity, 0, len(r.byID))
	for _, e := range r.byID {
		entities = append(entities, e)
	}
	r.mu.RUnlock()

	out := make([]Snapshot, 0, len(entities))
	for _, e := range entities {
		if e.Observable() {
			out = append(out, e.Snapshot())
		}
	}
	return out
}

// Len returns the number of registered entities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
