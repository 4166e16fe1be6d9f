package dispatch

import (
	"sync"

	"github.com/coachlink/gateway/internal/entity"
	"github.com/coachlink/gateway/internal/firefly"
	"github.com/coachlink/gateway/internal/frame"
	"github.com/coachlink/gateway/internal/j1939"
	"github.com/coachlink/gateway/internal/j1939/bridge"
	"github.com/coachlink/gateway/internal/logger"
	"github.com/coachlink/gateway/internal/protocol"
	"github.com/coachlink/gateway/internal/rvc"
	"github.com/coachlink/gateway/internal/spartank2"
)

// Decoders bundles every protocol decoder the dispatcher can route a frame
// to. Any field may be nil, in which case that protocol family is simply
// never matched.
type Decoders struct {
	RVC       *rvc.Decoder
	J1939     *j1939.Decoder
	Firefly   *firefly.Decoder
	SpartanK2 *spartank2.Decoder
}

// Counters tallies dispatch outcomes per classification, for the
// decoder-status interface (spec §6).
type Counters struct {
	mu           sync.Mutex
	byClass      map[Classification]uint64
	decodeErrors uint64
	dropped      uint64
}

func newCounters() *Counters {
	return &Counters{byClass: make(map[Classification]uint64)}
}

func (c *Counters) record(class Classification) {
	c.mu.Lock()
	c.byClass[class]++
	c.mu.Unlock()
}

func (c *Counters) recordDecodeError() {
	c.mu.Lock()
	c.decodeErrors++
	c.mu.Unlock()
}

func (c *Counters) recordDrop() {
	c.mu.Lock()
	c.dropped++
	c.mu.Unlock()
}

// Snapshot is a point-in-time copy of the dispatcher's counters.
type Snapshot struct {
	ByClassification map[Classification]uint64
	DecodeErrors     uint64
	Dropped          uint64
}

// Snapshot returns a copy of the current counters.
func (c *Counters) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	byClass := make(map[Classification]uint64, len(c.byClass))
	for k, v := range c.byClass {
		byClass[k] = v
	}
	return Snapshot{ByClassification: byClass, DecodeErrors: c.decodeErrors, Dropped: c.dropped}
}

// Dispatcher classifies and routes inbound frames to the matching
// decoder, then fans the resulting DecodedMessage out to the entity
// updater and, for J1939 traffic, the J1939<->RV-C bridge (spec §4.2).
type Dispatcher struct {
	decoders Decoders
	bridge   *bridge.Bridge
	updater  *entity.Updater

	counters *Counters
}

// New constructs a Dispatcher over decoders, optionally wiring a
// J1939<->RV-C bridge and the entity updater every successfully decoded
// message is forwarded to.
func New(decoders Decoders, br *bridge.Bridge, updater *entity.Updater) *Dispatcher {
	return &Dispatcher{decoders: decoders, bridge: br, updater: updater, counters: newCounters()}
}

// Counters returns the dispatcher's classification/error counters.
func (d *Dispatcher) Counters() *Counters { return d.counters }

// Dispatch classifies and decodes one frame according to networkProtocol
// ("rvc" or "j1939"), then updates the entity registry and, when
// applicable, bridges the message. It returns the resulting decoded
// message (nil if the frame was dropped) and its classification.
//
// Unknown classifications and decode failures are logged at debug level
// and the frame is dropped, never propagated as an error that could
// unwind the reader task (spec §4.2, §7).
func (d *Dispatcher) Dispatch(networkProtocol string, f frame.Frame) (*protocol.DecodedMessage, Classification) {
	class, msg, err := d.decodeByProtocol(networkProtocol, f)

	d.counters.record(class)

	if class == ClassUnknown {
		logger.Debug("dropping frame with unknown classification",
			logger.KeyArbitrationID, f.ArbitrationID, logger.KeyProtocol, networkProtocol)
		d.counters.recordDrop()
		return nil, class
	}

	if err != nil {
		logger.Debug("decode error", logger.KeyError, err, logger.KeyProtocol, networkProtocol)
		d.counters.recordDecodeError()
		return nil, class
	}

	if msg == nil {
		// Multiplexed message still assembling; nothing to emit yet.
		return nil, class
	}

	d.fanOut(networkProtocol, msg)
	return msg, class
}

func (d *Dispatcher) decodeByProtocol(networkProtocol string, f frame.Frame) (Classification, *protocol.DecodedMessage, error) {
	switch networkProtocol {
	case "j1939":
		return d.decodeJ1939(f)
	default: // "rvc" and unset both default to RV-C, matching most house networks
		return d.decodeRVC(f)
	}
}

func (d *Dispatcher) decodeRVC(f frame.Frame) (Classification, *protocol.DecodedMessage, error) {
	var rvcTable *rvc.PGNTable
	if d.decoders.RVC != nil {
		rvcTable = d.decoders.RVC.Table()
	}
	class, dgn, _ := classifyRVC(f.ArbitrationID, d.decoders.Firefly, rvcTable)

	switch class {
	case ClassFireflyCustom, ClassMultiplexed:
		msg, ok := d.decoders.Firefly.DecodeFrame(f, dgn)
		if !ok {
			return class, nil, nil // multiplex still assembling, or custom decode produced nothing
		}
		return class, msg, nil

	case ClassSafetyInterlock, ClassStandard:
		if d.decoders.RVC == nil {
			return ClassUnknown, nil, nil
		}
		msg, err := d.decoders.RVC.Decode(f)
		return class, msg, err

	default:
		return ClassUnknown, nil, nil
	}
}

func (d *Dispatcher) decodeJ1939(f frame.Frame) (Classification, *protocol.DecodedMessage, error) {
	var spartanTable *spartank2.Table
	if d.decoders.SpartanK2 != nil {
		spartanTable = d.decoders.SpartanK2.Table()
	}
	var j1939Table *j1939.Table
	if d.decoders.J1939 != nil {
		j1939Table = d.decoders.J1939.Table()
	}
	class, _, _ := classifyJ1939(f.ArbitrationID, spartanTable, j1939Table)

	switch class {
	case ClassSpartanK2:
		msg, err := d.decoders.SpartanK2.Decode(f)
		return class, msg, err
	case ClassStandard:
		if d.decoders.J1939 == nil {
			return ClassUnknown, nil, nil
		}
		msg, err := d.decoders.J1939.Decode(f)
		return class, msg, err
	default:
		return ClassUnknown, nil, nil
	}
}

// PeekPriority returns the priority class for a frame's arbitration ID
// without running a full signal decode, for the inbound queue's
// priority-aware drop policy (spec §5). It reuses the same table lookups
// as Dispatch, so a frame's queue priority always matches the priority it
// would be assigned if decoded immediately.
func (d *Dispatcher) PeekPriority(networkProtocol string, arbitrationID uint32) protocol.Priority {
	if networkProtocol == "j1939" {
		var spartanTable *spartank2.Table
		if d.decoders.SpartanK2 != nil {
			spartanTable = d.decoders.SpartanK2.Table()
		}
		var j1939Table *j1939.Table
		if d.decoders.J1939 != nil {
			j1939Table = d.decoders.J1939.Table()
		}
		class, pgn, _ := classifyJ1939(arbitrationID, spartanTable, j1939Table)

		switch class {
		case ClassSpartanK2:
			if def, ok := spartanTable.Lookup(pgn); ok && def.Priority != "" {
				return def.Priority
			}
		case ClassStandard:
			if d.decoders.J1939 != nil {
				return d.decoders.J1939.GetMessagePriority(pgn)
			}
		}
		return protocol.PriorityNormal
	}

	var rvcTable *rvc.PGNTable
	if d.decoders.RVC != nil {
		rvcTable = d.decoders.RVC.Table()
	}
	class, dgn, _ := classifyRVC(arbitrationID, d.decoders.Firefly, rvcTable)

	switch class {
	case ClassSafetyInterlock:
		return protocol.PriorityCritical
	case ClassStandard:
		if rvcTable != nil {
			if def, ok := rvcTable.Lookup(dgn); ok && def.Priority != "" {
				return def.Priority
			}
		}
	}
	return protocol.PriorityNormal
}

// fanOut forwards a decoded message to the entity updater and, for J1939
// traffic with an active bridge, translates it into an RV-C-shaped entity
// update too (spec §4.4, §4.7).
func (d *Dispatcher) fanOut(networkProtocol string, msg *protocol.DecodedMessage) {
	if d.updater != nil {
		d.updater.Update(msg)
	}

	if networkProtocol == "j1939" && d.bridge != nil {
		if bridged, ok := d.bridge.J1939ToRVC(msg); ok && d.updater != nil {
			d.updater.UpdateBridged(bridged.EntityID, bridged.TranslatedData, msg.Timestamp)
		}
	}
}
