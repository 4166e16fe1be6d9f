package rvc

import (
	"github.com/coachlink/gateway/internal/frame"
	"github.com/coachlink/gateway/internal/gwerrors"
	"github.com/coachlink/gateway/internal/protocol"
)

// Encoder builds outbound command frames from a component/operation pair,
// per spec §4.3: "given (component, operation, parameters), select the
// command DGN for that component, pack parameters into the signal layout,
// and emit frames addressed to the component's controller."
type Encoder struct {
	table    *PGNTable
	coachMap *CoachMapping

	// sourceAddress is the gateway's own source address used when
	// addressing outbound command frames.
	sourceAddress uint8
}

// NewEncoder constructs an RV-C encoder over table and coachMap, sourcing
// outbound frames from sourceAddress.
func NewEncoder(table *PGNTable, coachMap *CoachMapping, sourceAddress uint8) *Encoder {
	return &Encoder{table: table, coachMap: coachMap, sourceAddress: sourceAddress}
}

// Command is a resolved (component, operation, parameters) control request,
// the encoder's counterpart to gateway.Service.Control (spec §6).
type Command struct {
	EntityID   string
	Operation  string
	Parameters map[string]float64
}

// Encode resolves cmd's entity to a device and command DGN, packs its
// parameters into that DGN's signal layout, and returns the frame(s) to
// send. Most RV-C commands fit in a single frame.
func (e *Encoder) Encode(cmd Command) ([]frame.Frame, error) {
	device, dgnHex, ok := e.resolveDevice(cmd.EntityID)
	if !ok {
		return nil, gwerrors.Decode("rvc", "no coach mapping entry for entity %q", cmd.EntityID)
	}

	dgn, err := parseDGNHex(dgnHex)
	if err != nil {
		return nil, gwerrors.Decode("rvc", "entity %q: %v", cmd.EntityID, err)
	}

	def, ok := e.table.Lookup(dgn)
	if !ok {
		return nil, gwerrors.Decode("rvc", "entity %q: unknown command DGN 0x%X", cmd.EntityID, dgn)
	}

	data := make([]byte, def.DataLength)

	// The instance field, when present in the signal layout, is always
	// populated from the coach mapping so multi-instance commands (e.g.
	// multiple tank-level sensors) are addressed correctly.
	if sig, ok := def.SignalByName("instance"); ok {
		var err error
		data, err = protocol.EncodeSignal(data, sig, float64(device.Instance))
		if err != nil {
			return nil, gwerrors.Decode("rvc", "entity %q: instance: %v", cmd.EntityID, err)
		}
	}

	for name, value := range cmd.Parameters {
		sig, ok := def.SignalByName(name)
		if !ok {
			return nil, gwerrors.Decode("rvc", "entity %q: command DGN 0x%X has no signal %q", cmd.EntityID, dgn, name)
		}

		var err error
		data, err = protocol.EncodeSignal(data, sig, value)
		if err != nil {
			return nil, gwerrors.Decode("rvc", "entity %q: signal %q: %v", cmd.EntityID, name, err)
		}
	}

	arbitrationID := BuildArbitrationID(priorityBits(def.Priority), dgn, e.sourceAddress)

	f := frame.Frame{
		ArbitrationID: arbitrationID,
		Extended:      true,
		Length:        len(data),
	}
	copy(f.Data[:], data)

	return []frame.Frame{f}, nil
}

// resolveDevice finds the device config and command DGN for entityID.
// Commands address the device's own DGN (the status DGN, when distinct,
// only ever carries reports, never accepts writes).
func (e *Encoder) resolveDevice(entityID string) (*DeviceConfig, string, bool) {
	for _, d := range e.coachMap.All() {
		if d.EntityID == entityID {
			return d, d.DGNHex, true
		}
	}
	return nil, "", false
}

func priorityBits(p protocol.Priority) uint8 {
	switch p {
	case protocol.PriorityCritical:
		return 2
	case protocol.PriorityHigh:
		return 3
	case protocol.PriorityLow, protocol.PriorityBackground:
		return 6
	default:
		return 6
	}
}
