package rvc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func dimmerTableAndMap() (*PGNTable, *CoachMapping) {
	table, err := buildPGNTable(specFile{
		DGNs: []specPGN{
			{
				ID:         0x1FFBD,
				Name:       "DC_DIMMER_COMMAND_2",
				SystemType: "lighting",
				Priority:   "normal",
				DataLength: 3,
				Signals: []specSignal{
					{Name: "instance", StartBit: 0, Length: 8, Scale: 1, Offset: 0},
					{Name: "brightness", StartBit: 8, Length: 8, Scale: 0.5, Offset: 0},
				},
			},
		},
	})
	if err != nil {
		panic(err)
	}

	cm := &CoachMapping{
		byKey: map[string]*DeviceConfig{
			"1FFBD:3": {
				DGNHex:     "1FFBD",
				Instance:   3,
				EntityID:   "light.galley",
				DeviceType: "light",
				Interface:  "rvc0",
			},
		},
		byStatusDGN: map[string][]*DeviceConfig{},
	}

	return table, cm
}

func TestEncodeCommandRoundTrip(t *testing.T) {
	table, cm := dimmerTableAndMap()
	enc := NewEncoder(table, cm, 0xF9)

	frames, err := enc.Encode(Command{
		EntityID:  "light.galley",
		Operation: "set_brightness",
		Parameters: map[string]float64{
			"brightness": 50.0,
		},
	})
	require.NoError(t, err)
	require.Len(t, frames, 1)

	f := frames[0]
	_, dgn, source := ParseArbitrationID(f.ArbitrationID)
	require.Equal(t, uint32(0x1FFBD), dgn)
	require.Equal(t, uint8(0xF9), source)

	dec := NewDecoder(table)
	msg, err := dec.Decode(f)
	require.NoError(t, err)

	require.InDelta(t, 3.0, msg.DecodedSignals["instance"], 0.01)
	require.InDelta(t, 50.0, msg.DecodedSignals["brightness"], 0.5)
}

func TestEncodeUnknownEntity(t *testing.T) {
	table, cm := dimmerTableAndMap()
	enc := NewEncoder(table, cm, 0xF9)

	_, err := enc.Encode(Command{EntityID: "light.nonexistent", Operation: "set_brightness"})
	require.Error(t, err)
}

func TestEncodeUnknownSignal(t *testing.T) {
	table, cm := dimmerTableAndMap()
	enc := NewEncoder(table, cm, 0xF9)

	_, err := enc.Encode(Command{
		EntityID:   "light.galley",
		Operation:  "set_brightness",
		Parameters: map[string]float64{"color_temp": 3000},
	})
	require.Error(t, err)
}
