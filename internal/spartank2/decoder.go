// Package spartank2 decodes Spartan K2 chassis PGNs (brakes, suspension,
// steering, electrical) and evaluates their safety interlocks against the
// shared vehicle state, per spec §4.6.
package spartank2

import (
	"sync"
	"time"

	"github.com/coachlink/gateway/internal/frame"
	"github.com/coachlink/gateway/internal/gwerrors"
	"github.com/coachlink/gateway/internal/protocol"
	"github.com/coachlink/gateway/internal/safety"
)

// Table is the fixed set of Spartan K2 chassis PGN definitions.
type Table struct {
	byPGN map[uint32]*protocol.PGNDefinition
}

// BuildTable constructs the Spartan K2 chassis PGN table.
func BuildTable() *Table {
	t := &Table{byPGN: make(map[uint32]*protocol.PGNDefinition)}
	for i := range chassisPGNs() {
		defs := chassisPGNs()
		d := defs[i]
		t.byPGN[d.ID] = &d
	}
	return t
}

// Lookup returns the PGN definition for pgn, if loaded.
func (t *Table) Lookup(pgn uint32) (*protocol.PGNDefinition, bool) {
	def, ok := t.byPGN[pgn]
	return def, ok
}

// Decoder decodes Spartan K2 chassis frames and runs their safety-interlock
// validators against a shared VehicleState, caching the most recent decode
// per subsystem for status reporting.
type Decoder struct {
	table    *Table
	vehicle  *safety.VehicleState
	registry *safety.Registry

	mu         sync.Mutex
	interlocks map[protocol.SystemType]*safety.SafetyInterlock
	lastBySystem map[protocol.SystemType]*protocol.DecodedMessage
}

// NewDecoder constructs a Spartan K2 decoder that validates interlocks
// against vehicle. The registry already knows the cross-protocol
// VehicleState conditions (park_brake_set, engine_running, ...); chassis-
// specific checks (brake pressure, level differential, and so on) are not
// registered in it, since they depend on the decoded message itself, not
// just VehicleState; validateInterlocks applies them directly.
func NewDecoder(vehicle *safety.VehicleState) *Decoder {
	d := &Decoder{
		table:        BuildTable(),
		vehicle:      vehicle,
		registry:     safety.NewRegistry(),
		interlocks:   make(map[protocol.SystemType]*safety.SafetyInterlock),
		lastBySystem: make(map[protocol.SystemType]*protocol.DecodedMessage),
	}
	d.interlocks[protocol.SystemBrakes] = safety.NewSafetyInterlock("brakes", nil)
	d.interlocks[protocol.SystemSuspension] = safety.NewSafetyInterlock("suspension", nil)
	d.interlocks[protocol.SystemSteering] = safety.NewSafetyInterlock("steering", nil)
	return d
}

// Table returns the decoder's underlying chassis PGN table, for callers
// (internal/dispatch) that need to classify a frame before choosing a
// decoder without decoding it twice.
func (d *Decoder) Table() *Table { return d.table }

func pgnFromArbitrationID(arbitrationID uint32) (pgn uint32, sourceAddress uint8) {
	pgn = (arbitrationID >> 8) & 0x3FFFF
	sourceAddress = uint8(arbitrationID & 0xFF)
	return
}

// Decode extracts a DecodedMessage from f, populating SafetyViolations via
// the matching interlock validator and DiagnosticCodes from the
// diagnostic_trouble_code signal, when present.
func (d *Decoder) Decode(f frame.Frame) (*protocol.DecodedMessage, error) {
	pgn, sourceAddress := pgnFromArbitrationID(f.ArbitrationID)

	def, ok := d.table.Lookup(pgn)
	if !ok {
		return nil, gwerrors.Decode("spartank2", "unknown chassis PGN %d (0x%X)", pgn, pgn)
	}

	payload := f.Payload()
	if len(payload) < def.DataLength {
		return nil, gwerrors.Decode("spartank2", "PGN %d: need %d data bytes, got %d", pgn, def.DataLength, len(payload))
	}

	decoded := make(map[string]any, len(def.Signals))
	raw := make(map[string]uint64, len(def.Signals))
	for _, sig := range def.Signals {
		scaled, rawVal, err := protocol.DecodeSignal(payload, sig)
		if err != nil {
			return nil, gwerrors.Decode("spartank2", "PGN %d signal %q: %v", pgn, sig.Name, err)
		}
		raw[sig.Name] = rawVal
		if sig.Length <= 2 {
			decoded[sig.Name] = rawVal != 0
		} else {
			decoded[sig.Name] = scaled
		}
	}

	msg := &protocol.DecodedMessage{
		PGN:              pgn,
		SourceAddress:    sourceAddress,
		RawData:          append([]byte(nil), payload...),
		Priority:         def.Priority,
		SystemType:       def.SystemType,
		DecodedSignals:   decoded,
		RawSignals:       raw,
		SafetyViolations: d.validateInterlocks(def.SystemType, decoded),
		DiagnosticCodes:  extractDiagnosticCodes(decoded),
		Timestamp:        f.Timestamp,
		SourceNetworkID:  f.SourceNetworkID,
	}

	d.mu.Lock()
	d.lastBySystem[def.SystemType] = msg
	if il, ok := d.interlocks[def.SystemType]; ok {
		il.LastCheck = time.Unix(0, int64(f.Timestamp*float64(time.Second)))
		if len(msg.SafetyViolations) == 0 {
			il.CurrentState = safety.StateSafe
			il.FaultReason = ""
		} else {
			il.CurrentState = safety.StateUnsafe
			il.FaultReason = msg.SafetyViolations[0]
		}
	}
	d.mu.Unlock()

	return msg, nil
}

// validateInterlocks runs the rule set matching systemType against the
// decoded signals plus the shared vehicle state, returning any violations.
// Chassis systems with no rule set (electrical, diagnostics) return nil.
func (d *Decoder) validateInterlocks(systemType protocol.SystemType, decoded map[string]any) []string {
	vs := d.vehicle.Snapshot()

	switch systemType {
	case protocol.SystemBrakes:
		return validateBrakeInterlock(decoded, vs)
	case protocol.SystemSuspension:
		return validateSuspensionInterlock(decoded, vs)
	case protocol.SystemSteering:
		return validateSteeringInterlock(decoded, vs)
	default:
		return nil
	}
}

func extractDiagnosticCodes(decoded map[string]any) []uint16 {
	v, ok := decoded["diagnostic_trouble_code"]
	if !ok {
		return nil
	}
	scaled, ok := v.(float64)
	if !ok || scaled == 0 {
		return nil
	}
	return []uint16{uint16(scaled)}
}

// LastMessage returns the most recently decoded message for systemType, for
// cross-message status queries (e.g. the status/health surface asking "is
// suspension safe right now").
func (d *Decoder) LastMessage(systemType protocol.SystemType) (*protocol.DecodedMessage, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	msg, ok := d.lastBySystem[systemType]
	return msg, ok
}

// Interlock returns the tracked SafetyInterlock for systemType, if any.
func (d *Decoder) Interlock(systemType protocol.SystemType) (*safety.SafetyInterlock, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	il, ok := d.interlocks[systemType]
	return il, ok
}

func floatSignal(decoded map[string]any, name string, fallback float64) float64 {
	v, ok := decoded[name]
	if !ok {
		return fallback
	}
	switch f := v.(type) {
	case float64:
		return f
	case bool:
		if f {
			return 1
		}
		return 0
	default:
		return fallback
	}
}

func boolSignal(decoded map[string]any, name string, fallback bool) bool {
	v, ok := decoded[name]
	if !ok {
		return fallback
	}
	switch b := v.(type) {
	case bool:
		return b
	case float64:
		return b != 0
	default:
		return fallback
	}
}

// validateBrakeInterlock mirrors the manufacturer decoder's brake safety
// checks, reading vehicle speed and engine-running state from the shared
// VehicleState rather than from the brake message itself (the brake PGN
// carries no such signals).
func validateBrakeInterlock(decoded map[string]any, vs safety.Snapshot) []string {
	var violations []string

	if floatSignal(decoded, "brake_pressure", 0) < 80 {
		violations = append(violations, "Low brake pressure detected - system safety compromised")
	}
	if !boolSignal(decoded, "abs_active", false) && vs.VehicleSpeed > 5 {
		violations = append(violations, "ABS system inactive at speed - safety concern")
	}
	if !boolSignal(decoded, "parking_brake_active", false) && !vs.EngineRunning {
		violations = append(violations, "Parking brake not engaged with engine off")
	}

	return violations
}

// validateSuspensionInterlock mirrors the manufacturer decoder's
// suspension safety checks.
func validateSuspensionInterlock(decoded map[string]any, vs safety.Snapshot) []string {
	var violations []string

	front := floatSignal(decoded, "front_level_sensor", 50)
	rear := floatSignal(decoded, "rear_level_sensor", 50)
	diff := front - rear
	if diff < 0 {
		diff = -diff
	}
	if diff > 15 {
		violations = append(violations, "Chassis level differential exceeds safe limits")
	}

	if floatSignal(decoded, "air_pressure", 0) < 100 {
		violations = append(violations, "Insufficient air pressure for suspension operation")
	}

	if boolSignal(decoded, "leveling_active", false) && vs.VehicleSpeed > 0.5 {
		violations = append(violations, "Leveling system active while vehicle in motion")
	}

	return violations
}

// validateSteeringInterlock mirrors the manufacturer decoder's power
// steering and stability safety checks.
func validateSteeringInterlock(decoded map[string]any, vs safety.Snapshot) []string {
	var violations []string

	if floatSignal(decoded, "power_steering_pressure", 0) < 1000 {
		violations = append(violations, "Low power steering pressure - steering assistance compromised")
	}

	angle := floatSignal(decoded, "steering_wheel_angle", 0)
	if angle < 0 {
		angle = -angle
	}
	if angle > 720 {
		violations = append(violations, "Excessive steering angle detected")
	}

	if vs.VehicleSpeed > 50 && angle > 180 {
		violations = append(violations, "High-speed operation with significant steering input")
	}

	return violations
}
