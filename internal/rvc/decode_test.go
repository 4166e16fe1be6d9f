package rvc

import (
	"testing"

	"github.com/coachlink/gateway/internal/frame"
	"github.com/coachlink/gateway/internal/protocol"
	"github.com/stretchr/testify/require"
)

func engineSpeedTable() *PGNTable {
	table, err := buildPGNTable(specFile{
		DGNs: []specPGN{
			{
				ID:         0xF004, // PGN 61444 (0xF004)
				Name:       "ENGINE_SPEED",
				SystemType: "engine",
				Priority:   "high",
				DataLength: 8,
				Signals: []specSignal{
					{Name: "engine_speed", StartBit: 24, Length: 16, Scale: 0.125, Offset: 0, Units: "rpm"},
				},
			},
		},
	})
	if err != nil {
		panic(err)
	}
	return table
}

// TestEngineSpeedDecode covers the end-to-end engine speed pass-through
// scenario: arbitration_id=61444 (0xF004 shifted into the DGN field),
// source=0xF9, data bytes yielding engine_speed ~= 1500.0 rpm.
func TestEngineSpeedDecode(t *testing.T) {
	table := engineSpeedTable()
	dec := NewDecoder(table)

	arbitrationID := BuildArbitrationID(3, 0xF004, 0xF9)
	f := frame.Frame{
		ArbitrationID: arbitrationID,
		Data:          [8]byte{0x00, 0x80, 0x00, 0xE0, 0x2E, 0xF9, 0x00, 0x80},
		Length:        8,
		Extended:      true,
	}

	msg, err := dec.Decode(f)
	require.NoError(t, err)
	require.Equal(t, uint8(0xF9), msg.SourceAddress)

	speed, ok := msg.DecodedSignals["engine_speed"].(float64)
	require.True(t, ok)
	require.InDelta(t, 1500.0, speed, 0.125)
}

func TestDecodeUnknownDGN(t *testing.T) {
	table := engineSpeedTable()
	dec := NewDecoder(table)

	f := frame.Frame{
		ArbitrationID: BuildArbitrationID(6, 0x1FFFF, 0x01),
		Length:        8,
	}

	_, err := dec.Decode(f)
	require.Error(t, err)
}

func TestDecodeBooleanSignal(t *testing.T) {
	table, err := buildPGNTable(specFile{
		DGNs: []specPGN{
			{
				ID:         0x1FFB7,
				Name:       "GENERIC_STATUS",
				SystemType: "generic",
				DataLength: 1,
				Signals: []specSignal{
					{Name: "active", StartBit: 0, Length: 1, Scale: 1, Offset: 0},
				},
			},
		},
	})
	require.NoError(t, err)

	dec := NewDecoder(table)
	f := frame.Frame{
		ArbitrationID: BuildArbitrationID(6, 0x1FFB7, 0x01),
		Data:          [8]byte{0x01},
		Length:        1,
	}

	msg, err := dec.Decode(f)
	require.NoError(t, err)
	require.Equal(t, true, msg.DecodedSignals["active"])
	require.Equal(t, protocol.PriorityNormal, msg.Priority)
}
