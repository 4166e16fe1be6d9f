package j1939

import (
	"testing"

	"github.com/coachlink/gateway/internal/frame"
	"github.com/coachlink/gateway/internal/protocol"
	"github.com/stretchr/testify/require"
)

func testArbitrationID(priority uint8, pgn uint32, sourceAddress uint8) uint32 {
	return (uint32(priority&0x7) << 26) | ((pgn & 0x3FFFF) << 8) | uint32(sourceAddress)
}

func TestDecodeStandardEngineSpeed(t *testing.T) {
	table := BuildTable(FeatureFlags{})
	dec := NewDecoder(table, FeatureFlags{})

	f := frame.Frame{
		ArbitrationID: testArbitrationID(3, 61444, 0x00),
		Data:          [8]byte{0x00, 0x80, 0x00, 0xE0, 0x2E, 0xF9, 0x00, 0x80},
		Length:        8,
		Extended:      true,
	}

	msg, err := dec.Decode(f)
	require.NoError(t, err)
	require.Equal(t, protocol.SystemEngine, msg.SystemType)
	require.Equal(t, protocol.PriorityHigh, msg.Priority)

	speed, ok := msg.DecodedSignals["engine_speed"].(float64)
	require.True(t, ok)
	require.InDelta(t, 1500.0, speed, 0.125)
}

func TestDecodeUnknownPGN(t *testing.T) {
	table := BuildTable(FeatureFlags{})
	dec := NewDecoder(table, FeatureFlags{})

	f := frame.Frame{ArbitrationID: testArbitrationID(6, 12345, 0x01), Length: 8}
	_, err := dec.Decode(f)
	require.Error(t, err)
}

func TestDecodeInsufficientData(t *testing.T) {
	table := BuildTable(FeatureFlags{})
	dec := NewDecoder(table, FeatureFlags{})

	f := frame.Frame{
		ArbitrationID: testArbitrationID(3, 61444, 0x00),
		Data:          [8]byte{0x00, 0x80},
		Length:        2,
	}
	_, err := dec.Decode(f)
	require.Error(t, err)
}

func TestManufacturerExtensionsGatedByFlag(t *testing.T) {
	table := BuildTable(FeatureFlags{})
	_, ok := table.Lookup(61445) // Cummins EEC3
	require.False(t, ok)

	table = BuildTable(FeatureFlags{EnableCumminsExtensions: true})
	_, ok = table.Lookup(61445)
	require.True(t, ok)
}

func TestValidateSourceAddress(t *testing.T) {
	dec := NewDecoder(BuildTable(FeatureFlags{}), FeatureFlags{EnableAddressValidation: true})
	require.True(t, dec.ValidateSourceAddress(0xF9))
	require.False(t, dec.ValidateSourceAddress(255))

	dec = NewDecoder(BuildTable(FeatureFlags{}), FeatureFlags{})
	require.True(t, dec.ValidateSourceAddress(255))
}
