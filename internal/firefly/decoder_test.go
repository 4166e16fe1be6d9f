package firefly

import (
	"testing"
	"time"

	"github.com/coachlink/gateway/internal/frame"
	"github.com/stretchr/testify/require"
)

func tankFrame(part, totalParts, partNumber int, payload []byte, ts float64) frame.Frame {
	header := []byte{byte(part&0x0F) | byte(totalParts<<4), byte(partNumber & 0x0F)}
	data := append(header, payload...)
	var arr [8]byte
	copy(arr[:], data)
	return frame.Frame{
		ArbitrationID: (0x1FFB7 << 8) | 0x17,
		Data:          arr,
		Length:        len(data),
		Timestamp:     ts,
	}
}

// TestTankBankReassembly covers the two-part multiplex reassembly scenario:
// a fresh-water and gray-water reading split across two 8-byte frames that
// must combine into one tank bank.
func TestTankBankReassembly(t *testing.T) {
	dec := NewDecoder()

	seq := 1
	f1 := tankFrame(seq, 2, 0, []byte{0x00, 0x50, 0x00, 0x64}, 1.0) // fresh_water 80% of 100 gal
	msg, complete := dec.DecodeFrame(f1, 0x1FFB7)
	require.False(t, complete)
	require.Nil(t, msg)

	f2 := tankFrame(seq, 2, 1, []byte{0x01, 0x32, 0x00, 0xC8}, 1.1) // gray_water 50% of 200 gal
	msg, complete = dec.DecodeFrame(f2, 0x1FFB7)
	require.True(t, complete)
	require.NotNil(t, msg)

	tanks, ok := msg.MultiplexedData["tanks"].(map[string]TankReading)
	require.True(t, ok)

	fresh, ok := tanks["fresh_water"]
	require.True(t, ok)
	require.NotNil(t, fresh.LevelPercent)
	require.InDelta(t, 80.0, *fresh.LevelPercent, 0.01)

	gray, ok := tanks["gray_water"]
	require.True(t, ok)
	require.NotNil(t, gray.CapacityGallons)
	require.InDelta(t, 200.0, *gray.CapacityGallons, 0.01)
}

// TestMultiplexPartAfterEvictionStartsFreshBuffer covers the boundary
// behavior: a part arriving for a sequence whose buffer already expired
// is treated as the start of a new buffer rather than being dropped.
func TestMultiplexPartAfterEvictionStartsFreshBuffer(t *testing.T) {
	r := NewReassembler(10 * time.Millisecond)
	base := time.Unix(0, 0)

	_, complete := r.AddPart(0x1FFB7, 0x17, []byte{0x22, 0x00, 0xAA, 0xBB}, base)
	require.False(t, complete)
	require.Equal(t, 1, r.PendingCount())

	// Second part of the same sequence arrives after the buffer expired.
	late := base.Add(50 * time.Millisecond)
	assembled, complete := r.AddPart(0x1FFB7, 0x17, []byte{0x22, 0x01, 0xCC, 0xDD}, late)
	require.False(t, complete)
	require.Equal(t, 1, r.PendingCount())
	require.Nil(t, assembled)
}

func TestCustomDGNDecode(t *testing.T) {
	dec := NewDecoder()
	var data [8]byte
	copy(data[:], []byte{0x03, 0x02, 0x64, 0x00, 0x01, 0xF4, 0x0F, 0x00})
	f := frame.Frame{ArbitrationID: (0x1F100 << 8) | 0x20, Data: data, Length: 8}

	msg, ok := dec.DecodeFrame(f, 0x1F100)
	require.True(t, ok)
	require.Equal(t, uint8(3), msg.DecodedSignals["lighting_zone"])
}

func TestClassify(t *testing.T) {
	dec := NewDecoder()
	require.Equal(t, DGNMultiplexed, dec.Classify(0x1FFB7))
	require.Equal(t, DGNFireflyCustom, dec.Classify(0x1F101))
	require.Equal(t, DGNSafetyInterlock, dec.Classify(0x1FECA))
	require.Equal(t, DGNStandard, dec.Classify(0x1FFFF))
}
