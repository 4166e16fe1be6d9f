package firefly

import (
	"time"

	"github.com/coachlink/gateway/internal/frame"
	"github.com/coachlink/gateway/internal/protocol"
)

// DefaultMultiplexTimeout bounds how long a partial multiplex buffer is
// kept before it is evicted as stale (spec §4.5).
const DefaultMultiplexTimeout = 1 * time.Second

// Decoder classifies and decodes Firefly-specific frames: multiplexed
// tank/temperature/status DGNs, proprietary custom DGNs, and passthrough
// of everything else to the standard RV-C decode path.
type Decoder struct {
	classification Classification
	reassembler    *Reassembler
}

// NewDecoder constructs a Firefly decoder using the default DGN
// classification and multiplex timeout.
func NewDecoder() *Decoder {
	return NewDecoderWithTimeout(DefaultMultiplexTimeout)
}

// NewDecoderWithTimeout constructs a Firefly decoder using the default DGN
// classification and the given multiplex eviction timeout, for callers
// wiring firefly.multiplex_timeout from configuration (spec §6).
func NewDecoderWithTimeout(multiplexTimeout time.Duration) *Decoder {
	if multiplexTimeout <= 0 {
		multiplexTimeout = DefaultMultiplexTimeout
	}
	return &Decoder{
		classification: DefaultClassification(),
		reassembler:    NewReassembler(multiplexTimeout),
	}
}

// Classify reports how dgn should be routed.
func (d *Decoder) Classify(dgn uint32) DGNType {
	return d.classification.Classify(dgn)
}

// DecodeFrame handles one frame already known to be Firefly-classified
// (multiplexed or custom). For DGNMultiplexed it feeds the reassembler
// and returns (nil, false) until the message completes; for
// DGNFireflyCustom it decodes immediately. Callers route DGNStandard and
// DGNSafetyInterlock elsewhere.
func (d *Decoder) DecodeFrame(f frame.Frame, dgn uint32) (*protocol.DecodedMessage, bool) {
	_, sourceAddress := splitArbitration(f.ArbitrationID)

	switch d.classification.Classify(dgn) {
	case DGNMultiplexed:
		assembled, complete := d.reassembler.AddPart(dgn, sourceAddress, f.Payload(), now(f))
		if !complete {
			return nil, false
		}
		return &protocol.DecodedMessage{
			PGN:             dgn,
			SourceAddress:   sourceAddress,
			RawData:         assembled,
			Priority:        protocol.PriorityNormal,
			SystemType:      protocol.SystemGeneric,
			DecodedSignals:  map[string]any{},
			RawSignals:      map[string]uint64{},
			MultiplexedData: DecodeMultiplexed(dgn, assembled),
			Timestamp:       f.Timestamp,
			SourceNetworkID: f.SourceNetworkID,
		}, true

	case DGNFireflyCustom:
		signals, ok := DecodeCustomDGN(dgn, f.Payload())
		if !ok {
			signals = map[string]any{}
		}
		return &protocol.DecodedMessage{
			PGN:             dgn,
			SourceAddress:   sourceAddress,
			RawData:         append([]byte(nil), f.Payload()...),
			Priority:        protocol.PriorityNormal,
			SystemType:      componentSystemType(dgn),
			DecodedSignals:  signals,
			RawSignals:      map[string]uint64{},
			Timestamp:       f.Timestamp,
			SourceNetworkID: f.SourceNetworkID,
		}, true

	default:
		return nil, false
	}
}

// PendingMultiplexCount reports in-progress multiplex buffers, for the
// status/health surface.
func (d *Decoder) PendingMultiplexCount() int {
	return d.reassembler.PendingCount()
}

func splitArbitration(arbitrationID uint32) (dgn uint32, sourceAddress uint8) {
	dgn = (arbitrationID >> 8) & 0x3FFFF
	sourceAddress = uint8(arbitrationID & 0xFF)
	return
}

func now(f frame.Frame) time.Time {
	return time.Unix(0, int64(f.Timestamp*float64(time.Second)))
}

func componentSystemType(dgn uint32) protocol.SystemType {
	component, ok := ComponentForDGN(dgn)
	if !ok {
		return protocol.SystemGeneric
	}
	switch component {
	case ComponentLighting:
		return protocol.SystemLighting
	case ComponentClimate:
		return protocol.SystemHVAC
	default:
		return protocol.SystemGeneric
	}
}
