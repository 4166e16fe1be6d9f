package j1939

import (
	"github.com/coachlink/gateway/internal/frame"
	"github.com/coachlink/gateway/internal/gwerrors"
	"github.com/coachlink/gateway/internal/protocol"
)

// FeatureFlags gates the manufacturer-specific PGN extensions layered on
// top of the standard SAE table, per spec §4.4 and §6.
type FeatureFlags struct {
	EnableCumminsExtensions bool
	EnableAllisonExtensions bool
	EnableChassisExtensions bool

	// EnableAddressValidation gates ValidateSourceAddress; disabled by
	// default so bench/simulator traffic using reserved addresses still
	// decodes.
	EnableAddressValidation bool

	// PriorityCriticalPGNs/PriorityHighPGNs seed GetMessagePriority's
	// fallback for PGNs with no table entry.
	PriorityCriticalPGNs []uint32
	PriorityHighPGNs     []uint32
}

// Table is the layered PGN table: standard SAE entries plus whichever
// manufacturer extensions are enabled. Built once at startup, read-only
// thereafter.
type Table struct {
	byPGN map[uint32]*protocol.PGNDefinition
}

// BuildTable constructs the layered PGN table per flags. Manufacturer
// extensions are added after the standard table and win on PGN collision,
// matching the original python implementation's load order
// (standard -> cummins -> allison -> chassis).
func BuildTable(flags FeatureFlags) *Table {
	t := &Table{byPGN: make(map[uint32]*protocol.PGNDefinition)}
	t.load(standardPGNs())

	if flags.EnableCumminsExtensions {
		t.load(cumminsPGNs())
	}
	if flags.EnableAllisonExtensions {
		t.load(allisonPGNs())
	}
	if flags.EnableChassisExtensions {
		t.load(chassisPGNs())
	}

	return t
}

func (t *Table) load(defs []protocol.PGNDefinition) {
	for i := range defs {
		d := defs[i]
		t.byPGN[d.ID] = &d
	}
}

// Lookup returns the PGN definition for pgn, if loaded.
func (t *Table) Lookup(pgn uint32) (*protocol.PGNDefinition, bool) {
	def, ok := t.byPGN[pgn]
	return def, ok
}

// Len returns the number of loaded PGN definitions.
func (t *Table) Len() int {
	return len(t.byPGN)
}

// Decoder decodes J1939 frames against a layered Table.
type Decoder struct {
	table *Table
	flags FeatureFlags
}

// NewDecoder constructs a J1939 decoder over table, applying flags for
// address validation and priority fallback.
func NewDecoder(table *Table, flags FeatureFlags) *Decoder {
	return &Decoder{table: table, flags: flags}
}

// Table returns the decoder's underlying layered PGN table, for callers
// (internal/dispatch) that need to classify a frame before choosing a
// decoder without decoding it twice.
func (d *Decoder) Table() *Table { return d.table }

// pgnFromArbitrationID extracts the 18-bit PDU format/specific fields
// (the PGN) and the source address from a 29-bit J1939 extended arbitration
// ID, per spec §4.4.
func pgnFromArbitrationID(arbitrationID uint32) (priority uint8, pgn uint32, sourceAddress uint8) {
	priority = uint8((arbitrationID >> 26) & 0x7)
	pgn = (arbitrationID >> 8) & 0x3FFFF
	sourceAddress = uint8(arbitrationID & 0xFF)
	return
}

// ExtractPGN is the exported form of pgnFromArbitrationID, used by
// internal/dispatch to classify a frame before picking a decoder (spec
// §4.2) without decoding it twice.
func ExtractPGN(arbitrationID uint32) (priority uint8, pgn uint32, sourceAddress uint8) {
	return pgnFromArbitrationID(arbitrationID)
}

// Decode extracts a DecodedMessage from f. Unknown PGNs and frames too
// short for their declared signal layout are DecodeErrors (spec §8
// boundary behavior); out-of-range signal values are clamped and never
// suppressed. Unlike internal/rvc, this decoder does not log them.
func (d *Decoder) Decode(f frame.Frame) (*protocol.DecodedMessage, error) {
	priorityBits, pgn, sourceAddress := pgnFromArbitrationID(f.ArbitrationID)

	def, ok := d.table.Lookup(pgn)
	if !ok {
		return nil, gwerrors.Decode("j1939", "unknown PGN %d (0x%X)", pgn, pgn)
	}

	payload := f.Payload()
	if len(payload) < def.DataLength {
		return nil, gwerrors.Decode("j1939", "PGN %d: need %d data bytes, got %d", pgn, def.DataLength, len(payload))
	}

	decoded := make(map[string]any, len(def.Signals))
	raw := make(map[string]uint64, len(def.Signals))

	for _, sig := range def.Signals {
		scaled, rawVal, err := protocol.DecodeSignal(payload, sig)
		if err != nil {
			return nil, gwerrors.Decode("j1939", "PGN %d signal %q: %v", pgn, sig.Name, err)
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
		priority = d.fallbackPriority(pgn, priorityBits)
	}

	return &protocol.DecodedMessage{
		PGN:             pgn,
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

// GetMessagePriority returns the processing priority for pgn, falling back
// to the configured critical/high PGN lists and finally to normal.
func (d *Decoder) GetMessagePriority(pgn uint32) protocol.Priority {
	if def, ok := d.table.Lookup(pgn); ok && def.Priority != "" {
		return def.Priority
	}
	for _, p := range d.flags.PriorityCriticalPGNs {
		if p == pgn {
			return protocol.PriorityCritical
		}
	}
	for _, p := range d.flags.PriorityHighPGNs {
		if p == pgn {
			return protocol.PriorityHigh
		}
	}
	return protocol.PriorityNormal
}

// GetSystemType returns the system type for pgn, or SystemGeneric if
// unknown.
func (d *Decoder) GetSystemType(pgn uint32) protocol.SystemType {
	if def, ok := d.table.Lookup(pgn); ok {
		return def.SystemType
	}
	return protocol.SystemGeneric
}

// ValidateSourceAddress reports whether sourceAddress falls within the
// J1939 standard address range (0-247; 248-255 are reserved/null/global).
// A no-op (always true) unless EnableAddressValidation is set.
func (d *Decoder) ValidateSourceAddress(sourceAddress uint8) bool {
	if !d.flags.EnableAddressValidation {
		return true
	}
	return sourceAddress <= 247
}
