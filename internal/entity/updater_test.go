package entity

import (
	"testing"
	"time"

	"github.com/coachlink/gateway/internal/protocol"
	"github.com/coachlink/gateway/internal/rvc"
	"github.com/coachlink/gateway/internal/safety"
	"github.com/stretchr/testify/require"
)

func testCoachMap(t *testing.T) *rvc.CoachMapping {
	t.Helper()
	devices := []rvc.DeviceConfig{
		{DGNHex: "1FFB7", Instance: 0, EntityID: "tank.fresh_water", DeviceType: "tank", SafetyClassification: "operational", Interface: "rvc"},
		{DGNHex: "1FEF1", Instance: 0, EntityID: "vehicle.speed", DeviceType: "sensor", SafetyClassification: "operational", Interface: "j1939"},
	}
	return rvc.CoachMapFromDevices(devices)
}

func TestUpdaterMergesStateAndTracksMonotonicLastUpdated(t *testing.T) {
	cm := testCoachMap(t)
	reg := BuildFromCoachMapping(cm)
	vehicle := safety.NewVehicleState()
	upd := NewUpdater(reg, cm, vehicle)

	msg1 := &protocol.DecodedMessage{
		PGN:            0x1FFB7,
		DecodedSignals: map[string]any{"instance": float64(0), "level_percent": 80.0},
		Timestamp:      10.0,
	}
	snap, ok := upd.Update(msg1)
	require.True(t, ok)
	require.Equal(t, "tank.fresh_water", snap.EntityID)
	require.Equal(t, 80.0, snap.State["level_percent"])
	firstUpdated := snap.LastUpdated

	msg2 := &protocol.DecodedMessage{
		PGN:            0x1FFB7,
		DecodedSignals: map[string]any{"instance": float64(0), "level_percent": 75.0},
		Timestamp:      5.0, // earlier timestamp than msg1
	}
	snap2, ok := upd.Update(msg2)
	require.True(t, ok)
	require.Equal(t, 75.0, snap2.State["level_percent"])
	// last_updated must never rewind even though msg2's frame timestamp is earlier.
	require.True(t, snap2.LastUpdated.Equal(firstUpdated) || snap2.LastUpdated.After(firstUpdated))
}

func TestUpdaterUnmappedDeviceDropped(t *testing.T) {
	cm := testCoachMap(t)
	reg := BuildFromCoachMapping(cm)
	upd := NewUpdater(reg, cm, nil)

	msg := &protocol.DecodedMessage{PGN: 0xDEAD, DecodedSignals: map[string]any{}}
	_, ok := upd.Update(msg)
	require.False(t, ok)
	require.Equal(t, 1, upd.UnmappedCount())
}

func TestUpdaterPublishesVehicleSpeed(t *testing.T) {
	cm := testCoachMap(t)
	reg := BuildFromCoachMapping(cm)
	vehicle := safety.NewVehicleState()
	upd := NewUpdater(reg, cm, vehicle)

	msg := &protocol.DecodedMessage{
		PGN:            0x1FEF1,
		DecodedSignals: map[string]any{"instance": float64(0), "wheel_based_vehicle_speed": 42.0},
		Timestamp:      1.0,
	}
	_, ok := upd.Update(msg)
	require.True(t, ok)
	require.InDelta(t, 42.0, vehicle.Snapshot().VehicleSpeed, 0.001)
}

func TestUpdaterNotifiesSubscribers(t *testing.T) {
	cm := testCoachMap(t)
	reg := BuildFromCoachMapping(cm)
	upd := NewUpdater(reg, cm, nil)

	var received []Snapshot
	upd.Subscribe(func(s Snapshot) { received = append(received, s) })

	msg := &protocol.DecodedMessage{
		PGN:            0x1FFB7,
		DecodedSignals: map[string]any{"instance": float64(0), "level_percent": 90.0},
		Timestamp:      1.0,
	}
	_, ok := upd.Update(msg)
	require.True(t, ok)
	require.Len(t, received, 1)
	require.Equal(t, "tank.fresh_water", received[0].EntityID)
}

func TestEntityNotObservableUntilRegisteredOrUpdated(t *testing.T) {
	e := newEntity("x", "light", "rvc", "", nil, nil, "operational", "1FFBD", 0)
	require.False(t, e.Observable())
	e.MarkRegistered()
	require.True(t, e.Observable())
}

func TestEntitySnapshotIsACopy(t *testing.T) {
	e := newEntity("x", "light", "rvc", "", nil, nil, "operational", "1FFBD", 0)
	e.mergeState(map[string]any{"brightness": 50.0}, time.Unix(1, 0), time.Unix(1, 0))

	snap := e.Snapshot()
	snap.State["brightness"] = 0.0

	require.Equal(t, 50.0, e.Snapshot().State["brightness"])
}
