package bridge

import (
	"testing"

	"github.com/coachlink/gateway/internal/protocol"
	"github.com/stretchr/testify/require"
)

func TestJ1939ToRVCEngineSpeed(t *testing.T) {
	b := New(Config{BridgeEngineData: true})
	b.Start()

	msg := &protocol.DecodedMessage{
		PGN:           61444,
		SourceAddress: 0x00,
		DecodedSignals: map[string]any{
			"engine_speed":                 1500.0,
			"actual_engine_torque_percent": 42.0,
		},
	}

	bridged, ok := b.J1939ToRVC(msg)
	require.True(t, ok)
	require.Equal(t, "engine_primary", bridged.EntityID)
	require.Equal(t, "1FFFF", bridged.DGNHex)
	require.InDelta(t, 1500.0, bridged.TranslatedData["engine_speed"].(float64), 0.01)
	require.InDelta(t, 42.0, bridged.TranslatedData["engine_load"].(float64), 0.01)
}

func TestJ1939ToRVCNoMappingWhenDisabled(t *testing.T) {
	b := New(Config{BridgeEngineData: false})
	b.Start()

	msg := &protocol.DecodedMessage{PGN: 61444, DecodedSignals: map[string]any{"engine_speed": 1500.0}}
	_, ok := b.J1939ToRVC(msg)
	require.False(t, ok)
}

func TestEngineAndTransmissionDoNotCollideOnDGN(t *testing.T) {
	b := New(Config{BridgeEngineData: true, BridgeTransmissionData: true})

	var engineTemp, transTemp *EntityMapping
	for _, m := range b.Mappings() {
		switch m.EntityID {
		case "engine_temperature":
			engineTemp = m
		case "transmission_temperature":
			transTemp = m
		}
	}
	require.NotNil(t, engineTemp)
	require.NotNil(t, transTemp)
	require.NotEqual(t, engineTemp.RVCDGNHex, transTemp.RVCDGNHex)
}

func TestRVCToJ1939RoundTrip(t *testing.T) {
	b := New(Config{BridgeEngineData: true})
	b.Start()

	pgn, signals, err := b.RVCToJ1939("engine_primary", map[string]float64{"engine_speed": 1200.0})
	require.NoError(t, err)
	require.Equal(t, uint32(61444), pgn)
	require.InDelta(t, 1200.0, signals["engine_speed"], 0.01)
}

func TestRVCToJ1939UnknownEntity(t *testing.T) {
	b := New(Config{BridgeEngineData: true})
	b.Start()

	_, _, err := b.RVCToJ1939("nonexistent", map[string]float64{})
	require.Error(t, err)
}

// TestTranslationErrorsCounted covers spec §4.4's "records untranslatable
// signals to an error counter": a missing source signal on the forward path
// and an unmapped signal on the reverse path must each increment
// Stats().TranslationErrors.
func TestTranslationErrorsCounted(t *testing.T) {
	b := New(Config{BridgeEngineData: true})
	b.Start()

	msg := &protocol.DecodedMessage{
		PGN:           61444,
		DecodedSignals: map[string]any{"engine_speed": 1500.0}, // missing actual/demand torque signals
	}
	_, ok := b.J1939ToRVC(msg)
	require.True(t, ok)
	require.Equal(t, uint64(2), b.Stats().TranslationErrors)

	_, _, err := b.RVCToJ1939("engine_primary", map[string]float64{"unmapped_signal": 1.0})
	require.NoError(t, err)
	require.Equal(t, uint64(3), b.Stats().TranslationErrors)
}
