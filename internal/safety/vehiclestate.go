// Package safety implements the generic safety-interlock model and the
// shared VehicleState the interlock evaluators read from, per spec §3 and
// §4.7.
package safety

import "sync"

// VehicleState is the cross-protocol snapshot of vehicle-motion and
// chassis-safety signals published by the entity updater, per spec §3:
// "park_brake, engine_running, wind_speed_mph, is_level, vehicle_speed".
// It is writer-single, reader-many (spec §5): the entity updater is the
// only writer; every interlock evaluator and command handler reads it
// concurrently.
type VehicleState struct {
	mu sync.RWMutex

	parkBrakeSet  bool
	engineRunning bool
	windSpeedMph  float64
	isLevel       bool
	vehicleSpeed  float64

	// extra carries protocol-specific signals (e.g. Spartan K2 brake
	// pressure, air pressure) that interlock rules need but that have no
	// first-class VehicleState field.
	extra map[string]float64
}

// NewVehicleState returns an empty VehicleState. Boolean fields default to
// false and numeric fields to zero until the entity updater publishes a
// first value.
func NewVehicleState() *VehicleState {
	return &VehicleState{extra: make(map[string]float64)}
}

// Snapshot is an immutable point-in-time read of VehicleState, safe to
// pass to interlock rule functions without holding any lock.
type Snapshot struct {
	ParkBrakeSet  bool
	EngineRunning bool
	WindSpeedMph  float64
	IsLevel       bool
	VehicleSpeed  float64
	Extra         map[string]float64
}

// Snapshot returns a copy of the current state.
func (v *VehicleState) Snapshot() Snapshot {
	v.mu.RLock()
	defer v.mu.RUnlock()

	extra := make(map[string]float64, len(v.extra))
	for k, val := range v.extra {
		extra[k] = val
	}

	return Snapshot{
		ParkBrakeSet:  v.parkBrakeSet,
		EngineRunning: v.engineRunning,
		WindSpeedMph:  v.windSpeedMph,
		IsLevel:       v.isLevel,
		VehicleSpeed:  v.vehicleSpeed,
		Extra:         extra,
	}
}

// SetParkBrake updates the park-brake-engaged signal.
func (v *VehicleState) SetParkBrake(engaged bool) {
	v.mu.Lock()
	v.parkBrakeSet = engaged
	v.mu.Unlock()
}

// SetEngineRunning updates the engine-running signal.
func (v *VehicleState) SetEngineRunning(running bool) {
	v.mu.Lock()
	v.engineRunning = running
	v.mu.Unlock()
}

// SetWindSpeedMph updates the wind-speed signal.
func (v *VehicleState) SetWindSpeedMph(mph float64) {
	v.mu.Lock()
	v.windSpeedMph = mph
	v.mu.Unlock()
}

// SetIsLevel updates the coach-level signal.
func (v *VehicleState) SetIsLevel(level bool) {
	v.mu.Lock()
	v.isLevel = level
	v.mu.Unlock()
}

// SetVehicleSpeed updates the vehicle-speed signal.
func (v *VehicleState) SetVehicleSpeed(speed float64) {
	v.mu.Lock()
	v.vehicleSpeed = speed
	v.mu.Unlock()
}

// SetExtra records a protocol-specific signal not covered by a first-class
// field (e.g. "brake_pressure", "air_pressure").
func (v *VehicleState) SetExtra(name string, value float64) {
	v.mu.Lock()
	v.extra[name] = value
	v.mu.Unlock()
}
