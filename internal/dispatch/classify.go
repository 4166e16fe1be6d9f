// Package dispatch implements the frame dispatcher (spec §4.2): per-frame
// classification, routing to the matching protocol decoder, entity-update
// fan-out, and the bounded, priority-aware cross-network router described
// in spec §4.2 and §5.
package dispatch

import (
	"github.com/coachlink/gateway/internal/firefly"
	"github.com/coachlink/gateway/internal/j1939"
	"github.com/coachlink/gateway/internal/rvc"
	"github.com/coachlink/gateway/internal/spartank2"
)

// Classification is the dispatch-time routing decision for one frame, per
// spec §4.2: "{standard, firefly_custom, multiplexed, safety_interlock,
// spartan_k2, unknown}".
type Classification string

const (
	ClassStandard        Classification = "standard"
	ClassFireflyCustom   Classification = "firefly_custom"
	ClassMultiplexed     Classification = "multiplexed"
	ClassSafetyInterlock Classification = "safety_interlock"
	ClassSpartanK2       Classification = "spartan_k2"
	ClassUnknown         Classification = "unknown"
)

// classifyRVC determines dgn/source address and routing classification
// for a frame already known to belong to an RV-C network. Firefly's
// OEM-specific ranges are checked before falling back to the standard
// RV-C table, since "when ranges overlap, the more-specific table (OEM)
// wins" (spec §4.2).
func classifyRVC(arbitrationID uint32, ff *firefly.Decoder, rvcTable *rvc.PGNTable) (class Classification, dgn uint32, sourceAddress uint8) {
	_, dgn, sourceAddress = rvc.ParseArbitrationID(arbitrationID)

	if ff != nil {
		switch ff.Classify(dgn) {
		case firefly.DGNFireflyCustom:
			return ClassFireflyCustom, dgn, sourceAddress
		case firefly.DGNMultiplexed:
			return ClassMultiplexed, dgn, sourceAddress
		case firefly.DGNSafetyInterlock:
			return ClassSafetyInterlock, dgn, sourceAddress
		}
	}

	if rvcTable != nil {
		if _, ok := rvcTable.Lookup(dgn); ok {
			return ClassStandard, dgn, sourceAddress
		}
	}
	return ClassUnknown, dgn, sourceAddress
}

// classifyJ1939 determines pgn/source address and routing classification
// for a frame already known to belong to a J1939 network. The chassis-OEM
// Spartan K2 table is checked before the generic SAE table for the same
// reason.
func classifyJ1939(arbitrationID uint32, spartanTable *spartank2.Table, j1939Table *j1939.Table) (class Classification, pgn uint32, sourceAddress uint8) {
	_, pgn, sourceAddress = j1939.ExtractPGN(arbitrationID)

	if spartanTable != nil {
		if _, ok := spartanTable.Lookup(pgn); ok {
			return ClassSpartanK2, pgn, sourceAddress
		}
	}

	if j1939Table != nil {
		if _, ok := j1939Table.Lookup(pgn); ok {
			return ClassStandard, pgn, sourceAddress
		}
	}
	return ClassUnknown, pgn, sourceAddress
}
