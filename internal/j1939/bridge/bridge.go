// Package bridge translates J1939 protocol messages into RV-C entity
// updates and back, per spec §4.4's J1939<->RV-C bridge.
package bridge

import (
	"sync"

	"github.com/coachlink/gateway/internal/gwerrors"
	"github.com/coachlink/gateway/internal/protocol"
)

// EntityMapping binds one J1939 PGN to an RV-C entity and its signal
// rename/scaling table.
type EntityMapping struct {
	J1939PGN       uint32
	RVCDGNHex      string
	EntityID       string
	SystemType     protocol.SystemType
	SignalMappings map[string]string // J1939 signal name -> RV-C signal name
	ScalingFactors map[string]float64
	Active         bool
}

// BridgedData is the bridge's output: a translated signal set ready for
// entity-state merge, alongside the original data for diagnostics.
type BridgedData struct {
	EntityID       string
	DGNHex         string
	SystemType     protocol.SystemType
	SourceAddress  uint8
	OriginalData   map[string]any
	TranslatedData map[string]any
	Timestamp      float64
}

// Stats counts bridge activity for the status/health surface.
type Stats struct {
	MessagesBridged    uint64
	TranslationErrors  uint64
	CommandsTranslated uint64
}

// Bridge translates between J1939 and RV-C using a fixed table of entity
// mappings, one per bridged PGN.
//
// The Electronic Engine Controller 1 PGN (61444) and Engine Temperature 1
// PGN (65262) both describe engine subsystems but are distinct DGNs on the
// RV-C side ("1FFFF" and "1FEFF" respectively); unlike a
// naive single-DGN mapping, every mapping here targets its own DGN so the
// bridge cannot collide two unrelated subsystems into one entity.
type Bridge struct {
	mu       sync.RWMutex
	byPGN    map[uint32]*EntityMapping
	byEntity map[string]*EntityMapping
	active   bool
	stats    Stats
}

// Config controls which subsystems the bridge maps, mirroring the
// feature-flag gating in internal/j1939.
type Config struct {
	BridgeEngineData       bool
	BridgeTransmissionData bool
}

// New constructs a Bridge with the standard entity mappings enabled by cfg.
// Vehicle-speed/chassis bridging is always on; engine and transmission
// bridging are each independently gated.
func New(cfg Config) *Bridge {
	b := &Bridge{
		byPGN:    make(map[uint32]*EntityMapping),
		byEntity: make(map[string]*EntityMapping),
	}

	if cfg.BridgeEngineData {
		b.add(&EntityMapping{
			J1939PGN:   61444,
			RVCDGNHex:  "1FFFF",
			EntityID:   "engine_primary",
			SystemType: protocol.SystemEngine,
			SignalMappings: map[string]string{
				"engine_speed":                  "engine_speed",
				"actual_engine_torque_percent":   "engine_load",
				"engine_demand_torque_percent":   "engine_demand",
			},
			ScalingFactors: map[string]float64{
				"engine_speed":                1.0,
				"actual_engine_torque_percent": 1.0,
			},
			Active: true,
		})

		b.add(&EntityMapping{
			J1939PGN:   65262,
			RVCDGNHex:  "1FEFF",
			EntityID:   "engine_temperature",
			SystemType: protocol.SystemEngine,
			SignalMappings: map[string]string{
				"engine_coolant_temp": "coolant_temperature",
				"fuel_temp":           "fuel_temperature",
				"engine_oil_temp":     "oil_temperature",
			},
			ScalingFactors: map[string]float64{
				"engine_coolant_temp": 1.0,
				"fuel_temp":           1.0,
				"engine_oil_temp":     1.0,
			},
			Active: true,
		})
	}

	if cfg.BridgeTransmissionData {
		b.add(&EntityMapping{
			J1939PGN:   61443,
			RVCDGNHex:  "1FEE1",
			EntityID:   "transmission_primary",
			SystemType: protocol.SystemTransmission,
			SignalMappings: map[string]string{
				"transmission_current_gear":      "current_gear",
				"transmission_selected_gear":      "selected_gear",
				"transmission_actual_gear_ratio": "gear_ratio",
			},
			ScalingFactors: map[string]float64{
				"transmission_current_gear":      1.0,
				"transmission_selected_gear":      1.0,
				"transmission_actual_gear_ratio": 1.0,
			},
			Active: true,
		})

		b.add(&EntityMapping{
			J1939PGN:   65272,
			RVCDGNHex:  "1FEE0",
			EntityID:   "transmission_temperature",
			SystemType: protocol.SystemTransmission,
			SignalMappings: map[string]string{
				"transmission_fluid_temp":         "fluid_temperature",
				"transmission_oil_pressure":       "oil_pressure",
				"transmission_output_shaft_speed": "output_shaft_speed",
				"transmission_input_shaft_speed":  "input_shaft_speed",
			},
			Active: true,
		})
	}

	b.add(&EntityMapping{
		J1939PGN:   65265,
		RVCDGNHex:  "1FEF1",
		EntityID:   "vehicle_speed",
		SystemType: protocol.SystemGeneric,
		SignalMappings: map[string]string{
			"wheel_based_vehicle_speed": "vehicle_speed",
			"cruise_control_active":     "cruise_active",
			"cruise_control_set_speed":  "cruise_set_speed",
			"brake_switch":              "brake_status",
		},
		ScalingFactors: map[string]float64{"wheel_based_vehicle_speed": 1.0},
		Active:         true,
	})

	return b
}

func (b *Bridge) add(m *EntityMapping) {
	b.byPGN[m.J1939PGN] = m
	b.byEntity[m.EntityID] = m
}

// Start enables bridging. Decoded messages are ignored while stopped.
func (b *Bridge) Start() {
	b.mu.Lock()
	b.active = true
	b.mu.Unlock()
}

// Stop disables bridging.
func (b *Bridge) Stop() {
	b.mu.Lock()
	b.active = false
	b.mu.Unlock()
}

// J1939ToRVC translates a decoded J1939 message into RV-C entity-state
// form, or returns (nil, false) if no mapping is configured for its PGN.
func (b *Bridge) J1939ToRVC(msg *protocol.DecodedMessage) (*BridgedData, bool) {
	b.mu.RLock()
	active := b.active
	mapping, ok := b.byPGN[msg.PGN]
	b.mu.RUnlock()

	if !active || !ok || !mapping.Active {
		return nil, false
	}

	translated := make(map[string]any, len(mapping.SignalMappings))
	var translationErrors uint64
	for j1939Signal, rvcSignal := range mapping.SignalMappings {
		value, ok := msg.DecodedSignals[j1939Signal]
		if !ok {
			translationErrors++
			continue
		}
		if f, isFloat := value.(float64); isFloat {
			if scale, hasScale := mapping.ScalingFactors[j1939Signal]; hasScale {
				f *= scale
			}
			translated[rvcSignal] = f
			continue
		}
		translated[rvcSignal] = value
	}

	b.mu.Lock()
	b.stats.MessagesBridged++
	b.stats.TranslationErrors += translationErrors
	b.mu.Unlock()

	return &BridgedData{
		EntityID:       mapping.EntityID,
		DGNHex:         mapping.RVCDGNHex,
		SystemType:     mapping.SystemType,
		SourceAddress:  msg.SourceAddress,
		OriginalData:   msg.DecodedSignals,
		TranslatedData: translated,
		Timestamp:      msg.Timestamp,
	}, true
}

// RVCToJ1939 translates an RV-C command targeting entityID into the J1939
// PGN and raw signal set to encode, or an error if entityID has no
// reverse mapping.
func (b *Bridge) RVCToJ1939(entityID string, command map[string]float64) (pgn uint32, signals map[string]float64, err error) {
	b.mu.RLock()
	active := b.active
	mapping, ok := b.byEntity[entityID]
	b.mu.RUnlock()

	if !active {
		return 0, nil, gwerrors.Decode("j1939-bridge", "bridge not active")
	}
	if !ok || !mapping.Active {
		return 0, nil, gwerrors.Decode("j1939-bridge", "no reverse mapping for entity %q", entityID)
	}

	reverse := make(map[string]string, len(mapping.SignalMappings))
	for j1939Signal, rvcSignal := range mapping.SignalMappings {
		reverse[rvcSignal] = j1939Signal
	}

	out := make(map[string]float64, len(command))
	var translationErrors uint64
	for rvcSignal, value := range command {
		j1939Signal, ok := reverse[rvcSignal]
		if !ok {
			translationErrors++
			continue
		}
		if scale, hasScale := mapping.ScalingFactors[j1939Signal]; hasScale && scale != 0 {
			value /= scale
		}
		out[j1939Signal] = value
	}

	b.mu.Lock()
	b.stats.CommandsTranslated++
	b.stats.TranslationErrors += translationErrors
	b.mu.Unlock()

	return mapping.J1939PGN, out, nil
}

// Stats returns a snapshot of bridge activity counters.
func (b *Bridge) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.stats
}

// Mappings returns every configured entity mapping, for diagnostics.
func (b *Bridge) Mappings() []*EntityMapping {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*EntityMapping, 0, len(b.byEntity))
	for _, m := range b.byEntity {
		out = append(out, m)
	}
	return out
}
