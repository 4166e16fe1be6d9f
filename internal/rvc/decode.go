package rvc

import (
	"github.com/coachlink/gateway/internal/frame"
	"github.com/coachlink/gateway/internal/gwerrors"
	"github.com/coachlink/gateway/internal/logger"
	"github.com/coachlink/gateway/internal/protocol"
)

// Decoder decodes RV-C frames against a loaded PGN table.
type Decoder struct {
	table *PGNTable
}

// NewDecoder constructs an RV-C decoder over table.
func NewDecoder(table *PGNTable) *Decoder {
	return &Decoder{table: table}
}

// Table returns the decoder's underlying PGN table, for callers
// (internal/dispatch) that need to classify a frame before decoding it.
func (d *Decoder) Table() *PGNTable { return d.table }

// Decode extracts a DecodedMessage from f, per spec §4.3.
//
// Every signal is extracted by (start_bit, length) little-endian, scaled
// and offset, and clamped to [min, max] when specified. Out-of-range raw
// values are logged but never suppressed. A signal whose bit range exceeds
// the frame's data is a DecodeError and the whole frame is dropped.
func (d *Decoder) Decode(f frame.Frame) (*protocol.DecodedMessage, error) {
	_, dgn, sourceAddress := ParseArbitrationID(f.ArbitrationID)

	def, ok := d.table.Lookup(dgn)
	if !ok {
		return nil, gwerrors.Decode("rvc", "unknown DGN 0x%X", dgn)
	}

	payload := f.Payload()
	decoded := make(map[string]any, len(def.Signals))
	raw := make(map[string]uint64, len(def.Signals))

	for _, sig := range def.Signals {
		scaled, rawVal, err := protocol.DecodeSignal(payload, sig)
		if err != nil {
			return nil, gwerrors.Decode("rvc", "DGN 0x%X signal %q: %v", dgn, sig.Name, err)
		}

		if !protocol.InRange(scaled, sig) {
			logger.Debug("signal out of declared range",
				logger.KeyDGN, dgn, "signal", sig.Name, "value", scaled)
		}

		raw[sig.Name] = rawVal
		if sig.Length == 1 {
			decoded[sig.Name] = rawVal != 0
		} else {
			decoded[sig.Name] = scaled
		}
	}

	priority := def.Priority
	if priority == "" {
		priority = protocol.PriorityNormal
	}

	return &protocol.DecodedMessage{
		PGN:             dgn,
		SourceAddress:   sourceAddress,
		RawData:         append([]byte(nil), payload...),
		Priority:        priority,
		SystemType:      def.SystemType,
		DecodedSignals:  decoded,
		RawSignals:      raw,
		Manufacturer:    def.Manufacturer,
		Timestamp:       f.Timestamp,
		SourceNetworkID: f.SourceNetworkID,
	}, nil
}
