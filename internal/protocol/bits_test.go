package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractRawSignalLittleEndian(t *testing.T) {
	// 0x2EE0 little-endian 16-bit field starting at bit 24 (byte 3).
	data := []byte{0x00, 0x80, 0x00, 0xE0, 0x2E, 0xF9, 0x00, 0x80}
	raw, err := ExtractRawSignal(data, 24, 16)
	require.NoError(t, err)
	require.EqualValues(t, 0x2EE0, raw)
}

func TestExtractRawSignalOutOfRange(t *testing.T) {
	data := []byte{0x01, 0x02}
	_, err := ExtractRawSignal(data, 8, 16)
	require.Error(t, err)
	var oor *ErrSignalOutOfRange
	require.ErrorAs(t, err, &oor)
}

func TestDecodeSignalScaleOffsetClamp(t *testing.T) {
	min := 0.0
	max := 100.0
	sig := SignalDef{Name: "level", StartBit: 0, Length: 8, Scale: 1.0, Offset: 0, Min: &min, Max: &max}
	data := []byte{200}

	scaled, raw, err := DecodeSignal(data, sig)
	require.NoError(t, err)
	require.EqualValues(t, 200, raw)
	require.Equal(t, 100.0, scaled) // clamped
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	sig := SignalDef{Name: "engine_speed", StartBit: 24, Length: 16, Scale: 0.125, Offset: 0}
	encoded, err := EncodeSignal(make([]byte, 4), sig, 1500.0)
	require.NoError(t, err)

	scaled, _, err := DecodeSignal(encoded, sig)
	require.NoError(t, err)
	require.InDelta(t, 1500.0, scaled, 0.125)
}
