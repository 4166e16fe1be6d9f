package entity

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/coachlink/gateway/internal/logger"
	"github.com/coachlink/gateway/internal/protocol"
	"github.com/coachlink/gateway/internal/rvc"
	"github.com/coachlink/gateway/internal/safety"
)

// vehicleStateSignals maps the decoded-signal names that feed the shared
// VehicleState to the setter that publishes them, covering the name each
// decoder family actually emits (spec §4.7 step 3).
var vehicleStateSignals = map[string]func(*safety.VehicleState, float64){
	"vehicle_speed":           func(vs *safety.VehicleState, v float64) { vs.SetVehicleSpeed(v) },
	"wheel_based_vehicle_speed": func(vs *safety.VehicleState, v float64) { vs.SetVehicleSpeed(v) },
	"wind_speed_mph":          func(vs *safety.VehicleState, v float64) { vs.SetWindSpeedMph(v) },
}

var vehicleStateBoolSignals = map[string]func(*safety.VehicleState, bool){
	"park_brake":            func(vs *safety.VehicleState, v bool) { vs.SetParkBrake(v) },
	"parking_brake_active":  func(vs *safety.VehicleState, v bool) { vs.SetParkBrake(v) },
	"parking_brake_switch":  func(vs *safety.VehicleState, v bool) { vs.SetParkBrake(v) },
	"engine_running":        func(vs *safety.VehicleState, v bool) { vs.SetEngineRunning(v) },
	"is_level":              func(vs *safety.VehicleState, v bool) { vs.SetIsLevel(v) },
}

// Observer receives an entity snapshot after every state merge. Delivery
// is the caller's responsibility to keep best-effort and non-blocking
// (spec §5: "Delivery is best-effort, non-blocking, and drops on slow
// consumers").
type Observer func(Snapshot)

// Updater consumes DecodedMessages, merges them into the registry, and
// publishes VehicleState-relevant signals and subscriber notifications.
type Updater struct {
	registry *Registry
	coachMap atomic.Pointer[rvc.CoachMapping]
	vehicle  *safety.VehicleState

	observers []Observer

	unmappedCount int
}

// NewUpdater constructs an Updater wired to registry, coachMap (for
// DGN/instance -> entity_id resolution), and the shared vehicle state.
func NewUpdater(registry *Registry, coachMap *rvc.CoachMapping, vehicle *safety.VehicleState) *Updater {
	u := &Updater{registry: registry, vehicle: vehicle}
	u.coachMap.Store(coachMap)
	return u
}

// ReplaceCoachMapping atomically swaps the DGN/instance -> entity_id table
// the updater consults, supporting coach-mapping hot reload (spec_full
// §5) without pausing in-flight Update/UpdateBridged calls: readers
// either see the old table or the new one, never a half-updated one.
func (u *Updater) ReplaceCoachMapping(cm *rvc.CoachMapping) {
	u.coachMap.Store(cm)
}

// Subscribe registers obs to receive every future entity update.
func (u *Updater) Subscribe(obs Observer) {
	u.observers = append(u.observers, obs)
}

// Update applies one DecodedMessage to the registry per spec §4.7:
// resolve the owning entity, merge state, publish VehicleState signals,
// notify subscribers. Returns the updated entity's snapshot and whether
// the message mapped to a known device.
func (u *Updater) Update(msg *protocol.DecodedMessage) (Snapshot, bool) {
	dgnHex := fmt.Sprintf("%X", msg.PGN)
	instance := instanceOf(msg.DecodedSignals)
	coachMap := u.coachMap.Load()

	device, ok := coachMap.Lookup(dgnHex, instance)
	if !ok {
		device, ok = u.matchByStatusDGN(coachMap, dgnHex, instance)
	}
	if !ok {
		u.unmappedCount++
		logger.Debug("unmapped device", logger.KeyDGN, msg.PGN, "instance", instance)
		return Snapshot{}, false
	}

	ent, ok := u.registry.Get(device.EntityID)
	if !ok {
		u.unmappedCount++
		logger.Debug("device maps to unregistered entity", "entity_id", device.EntityID)
		return Snapshot{}, false
	}

	observedAt := time.Unix(0, int64(msg.Timestamp*float64(time.Second)))
	seenAt := time.Now()
	ent.mergeState(msg.DecodedSignals, observedAt, seenAt)

	u.publishVehicleState(msg.DecodedSignals)

	snap := ent.Snapshot()
	u.notify(snap)
	return snap, true
}

// UpdateBridged merges a J1939<->RV-C bridge's translated signal set
// directly into the entity it names, bypassing the DGN/instance coach-
// mapping lookup (the bridge already resolved its target entity_id).
// Used by internal/dispatch to fan a bridged message into the same
// registry/VehicleState/subscriber path as a native RV-C update.
func (u *Updater) UpdateBridged(entityID string, signals map[string]any, timestamp float64) (Snapshot, bool) {
	ent, ok := u.registry.Get(entityID)
	if !ok {
		u.unmappedCount++
		logger.Debug("bridged update targets unregistered entity", logger.KeyEntityID, entityID)
		return Snapshot{}, false
	}

	observedAt := time.Unix(0, int64(timestamp*float64(time.Second)))
	seenAt := time.Now()
	ent.mergeState(signals, observedAt, seenAt)

	u.publishVehicleState(signals)

	snap := ent.Snapshot()
	u.notify(snap)
	return snap, true
}

func (u *Updater) matchByStatusDGN(coachMap *rvc.CoachMapping, dgnHex string, instance int) (*rvc.DeviceConfig, bool) {
	for _, d := range coachMap.DevicesByStatusDGN(dgnHex) {
		if d.Instance == instance {
			return d, true
		}
	}
	return nil, false
}

func (u *Updater) publishVehicleState(signals map[string]any) {
	if u.vehicle == nil {
		return
	}
	for name, v := range signals {
		if setter, ok := vehicleStateSignals[name]; ok {
			if f, ok := asFloat(v); ok {
				setter(u.vehicle, f)
			}
		}
		if setter, ok := vehicleStateBoolSignals[name]; ok {
			setter(u.vehicle, asBool(v))
		}
	}
}

func (u *Updater) notify(snap Snapshot) {
	for _, obs := range u.observers {
		obs(snap)
	}
}

// UnmappedCount returns how many decoded messages failed to resolve to a
// known device, for the status/health surface.
func (u *Updater) UnmappedCount() int {
	return u.unmappedCount
}

func instanceOf(signals map[string]any) int {
	v, ok := signals["instance"]
	if !ok {
		return 0
	}
	if f, ok := asFloat(v); ok {
		return int(f)
	}
	return 0
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func asBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case float64:
		return b != 0
	default:
		return false
	}
}
