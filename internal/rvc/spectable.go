package rvc

import (
	"fmt"
	"os"

	"github.com/coachlink/gateway/internal/protocol"
	"gopkg.in/yaml.v3"
)

// specSignal and specPGN mirror protocol.SignalDef/PGNDefinition with YAML
// tags, since the wire types carry no struct tags of their own (they are
// shared across four decoder families and stay tag-free on purpose).
type specSignal struct {
	Name               string   `yaml:"name"`
	StartBit           int      `yaml:"start_bit"`
	Length             int      `yaml:"length"`
	Scale              float64  `yaml:"scale"`
	Offset             float64  `yaml:"offset"`
	Units              string   `yaml:"units"`
	Min                *float64 `yaml:"min,omitempty"`
	Max                *float64 `yaml:"max,omitempty"`
	SafetyCritical     bool     `yaml:"safety_critical"`
	InterlockCondition string   `yaml:"interlock_condition,omitempty"`
}

type specPGN struct {
	ID                uint32       `yaml:"id"`
	Name              string       `yaml:"name"`
	SystemType        string       `yaml:"system_type"`
	Priority          string       `yaml:"priority"`
	DataLength        int          `yaml:"data_length"`
	Signals           []specSignal `yaml:"signals"`
	Manufacturer      string       `yaml:"manufacturer,omitempty"`
	SafetyInterlocks  []string     `yaml:"safety_interlocks,omitempty"`
	DiagnosticSupport bool         `yaml:"diagnostic_support"`
}

type specFile struct {
	DGNs []specPGN `yaml:"dgns"`
}

// PGNTable maps an arbitration-derived DGN to its immutable definition.
// Tables are loaded once at startup and never mutated thereafter (spec §3).
type PGNTable struct {
	byDGN map[uint32]*protocol.PGNDefinition
}

// LoadPGNTable reads the RV-C spec table (arbitration ID -> PGN definition)
// from an external YAML file, per spec §6.
func LoadPGNTable(path string) (*PGNTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rvc spec table %q: %w", path, err)
	}

	var sf specFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parse rvc spec table %q: %w", path, err)
	}

	return buildPGNTable(sf)
}

func buildPGNTable(sf specFile) (*PGNTable, error) {
	table := &PGNTable{byDGN: make(map[uint32]*protocol.PGNDefinition, len(sf.DGNs))}

	for _, d := range sf.DGNs {
		if _, exists := table.byDGN[d.ID]; exists {
			return nil, fmt.Errorf("duplicate DGN 0x%X in spec table", d.ID)
		}

		signals := make([]protocol.SignalDef, 0, len(d.Signals))
		for _, s := range d.Signals {
			signals = append(signals, protocol.SignalDef{
				Name:               s.Name,
				StartBit:           s.StartBit,
				Length:             s.Length,
				Scale:              s.Scale,
				Offset:             s.Offset,
				Units:              s.Units,
				Min:                s.Min,
				Max:                s.Max,
				SafetyCritical:     s.SafetyCritical,
				InterlockCondition: s.InterlockCondition,
			})
		}

		table.byDGN[d.ID] = &protocol.PGNDefinition{
			ID:                d.ID,
			Name:              d.Name,
			SystemType:        protocol.SystemType(d.SystemType),
			Priority:          protocol.Priority(d.Priority),
			DataLength:        d.DataLength,
			Signals:           signals,
			Manufacturer:      d.Manufacturer,
			SafetyInterlocks:  d.SafetyInterlocks,
			DiagnosticSupport: d.DiagnosticSupport,
		}
	}

	return table, nil
}

// Lookup returns the PGN definition for dgn, if loaded.
func (t *PGNTable) Lookup(dgn uint32) (*protocol.PGNDefinition, bool) {
	def, ok := t.byDGN[dgn]
	return def, ok
}

// Len returns the number of loaded PGN definitions, used by the decoder
// status interface (spec §6).
func (t *PGNTable) Len() int {
	return len(t.byDGN)
}
