package rvc

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DeviceConfig is one row of the coach mapping: a (DGN, instance) pair
// bound to a logical entity, per spec §6.
type DeviceConfig struct {
	DGNHex                string   `yaml:"dgn_hex"`
	Instance              int      `yaml:"instance"`
	EntityID              string   `yaml:"entity_id"`
	FriendlyName          string   `yaml:"friendly_name"`
	DeviceType            string   `yaml:"device_type"`
	Area                  string   `yaml:"area,omitempty"`
	Capabilities          []string `yaml:"capabilities,omitempty"`
	Groups                []string `yaml:"groups,omitempty"`
	StatusDGNHex          string   `yaml:"status_dgn,omitempty"`
	SafetyClassification  string   `yaml:"safety_classification"`
	Interface             string   `yaml:"interface"`
}

type coachMapFile struct {
	Devices []DeviceConfig `yaml:"devices"`
}

// CoachMapping indexes DeviceConfig rows by (dgn_hex_upper, instance) and
// derives the status-DGN lookup used by the entity updater (spec §4.3,
// §4.7).
type CoachMapping struct {
	byKey         map[string]*DeviceConfig
	byStatusDGN   map[string][]*DeviceConfig
}

// EntityKey computes the lookup key the entity updater uses: the DGN in
// uppercase hex concatenated with the instance (spec §4.7 step 1).
func EntityKey(dgnHex string, instance int) string {
	return strings.ToUpper(dgnHex) + ":" + strconv.Itoa(instance)
}

// LoadCoachMapping reads per-DGN, per-instance device records from an
// external YAML file, per spec §6.
func LoadCoachMapping(path string) (*CoachMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read coach mapping %q: %w", path, err)
	}

	var cf coachMapFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parse coach mapping %q: %w", path, err)
	}

	cm := &CoachMapping{
		byKey:       make(map[string]*DeviceConfig, len(cf.Devices)),
		byStatusDGN: make(map[string][]*DeviceConfig),
	}

	for i := range cf.Devices {
		d := &cf.Devices[i]
		key := EntityKey(d.DGNHex, d.Instance)
		if _, exists := cm.byKey[key]; exists {
			return nil, fmt.Errorf("duplicate coach mapping entry for %s", key)
		}
		cm.byKey[key] = d

		if d.StatusDGNHex != "" {
			statusKey := strings.ToUpper(d.StatusDGNHex)
			cm.byStatusDGN[statusKey] = append(cm.byStatusDGN[statusKey], d)
		}
	}

	return cm, nil
}

// CoachMapFromDevices builds a CoachMapping directly from in-memory device
// records, bypassing the YAML loader. Used by tests and by callers that
// assemble coach mappings programmatically.
func CoachMapFromDevices(devices []DeviceConfig) *CoachMapping {
	cm := &CoachMapping{
		byKey:       make(map[string]*DeviceConfig, len(devices)),
		byStatusDGN: make(map[string][]*DeviceConfig),
	}
	for i := range devices {
		d := &devices[i]
		cm.byKey[EntityKey(d.DGNHex, d.Instance)] = d
		if d.StatusDGNHex != "" {
			statusKey := strings.ToUpper(d.StatusDGNHex)
			cm.byStatusDGN[statusKey] = append(cm.byStatusDGN[statusKey], d)
		}
	}
	return cm
}

// Lookup resolves a (dgn_hex, instance) pair to its device config.
func (cm *CoachMapping) Lookup(dgnHex string, instance int) (*DeviceConfig, bool) {
	d, ok := cm.byKey[EntityKey(dgnHex, instance)]
	return d, ok
}

// DevicesByStatusDGN returns every device whose status DGN is dgnHex,
// supporting the derived status-DGN lookup named in spec §4.3.
func (cm *CoachMapping) DevicesByStatusDGN(dgnHex string) []*DeviceConfig {
	return cm.byStatusDGN[strings.ToUpper(dgnHex)]
}

// All returns every loaded device config, for entity registry bootstrap.
func (cm *CoachMapping) All() []*DeviceConfig {
	out := make([]*DeviceConfig, 0, len(cm.byKey))
	for _, d := range cm.byKey {
		out = append(out, d)
	}
	return out
}
