package dispatch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/coachlink/gateway/internal/canbus"
	"github.com/coachlink/gateway/internal/entity"
	"github.com/coachlink/gateway/internal/firefly"
	"github.com/coachlink/gateway/internal/frame"
	"github.com/coachlink/gateway/internal/j1939"
	"github.com/coachlink/gateway/internal/j1939/bridge"
	"github.com/coachlink/gateway/internal/protocol"
	"github.com/coachlink/gateway/internal/rvc"
	"github.com/coachlink/gateway/internal/safety"
	"github.com/coachlink/gateway/internal/spartank2"
	"github.com/stretchr/testify/require"
)

// 0x1F050 falls outside every firefly-default special range (custom
// 0x1F100-0x1F1FF, multiplexed {0x1FFB7,0x1FFB6,0x1FEF5}, safety
// {0x1FECA,0x1FED9}), so it always classifies as standard RV-C traffic.
const rvcSpecYAML = `
dgns:
  - id: 0x1F050
    name: GENERIC_STATUS
    system_type: generic
    priority: normal
    data_length: 1
    signals:
      - name: active
        start_bit: 0
        length: 1
        scale: 1
        offset: 0
`

func loadTestRVCTable(t *testing.T) *rvc.PGNTable {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rvc-spec.yaml")
	require.NoError(t, os.WriteFile(path, []byte(rvcSpecYAML), 0o644))
	table, err := rvc.LoadPGNTable(path)
	require.NoError(t, err)
	return table
}

func j1939ArbitrationID(priority uint8, pgn uint32, sourceAddress uint8) uint32 {
	return uint32(priority&0x7)<<26 | (pgn&0x3FFFF)<<8 | uint32(sourceAddress)
}

func TestClassifyRVCFireflyPrecedence(t *testing.T) {
	ff := firefly.NewDecoder()
	rvcTable := loadTestRVCTable(t)

	class, dgn, _ := classifyRVC(rvc.BuildArbitrationID(6, 0x1F150, 0x01), ff, rvcTable)
	require.Equal(t, ClassFireflyCustom, class)
	require.Equal(t, uint32(0x1F150), dgn)

	class, _, _ = classifyRVC(rvc.BuildArbitrationID(6, 0x1FFB7, 0x01), ff, rvcTable)
	require.Equal(t, ClassMultiplexed, class)

	class, _, _ = classifyRVC(rvc.BuildArbitrationID(6, 0x1FECA, 0x01), ff, rvcTable)
	require.Equal(t, ClassSafetyInterlock, class)
}

func TestClassifyRVCFallsBackToStandardTable(t *testing.T) {
	rvcTable := loadTestRVCTable(t)
	class, _, _ := classifyRVC(rvc.BuildArbitrationID(6, 0x1F050, 0x01), nil, rvcTable)
	require.Equal(t, ClassStandard, class)
}

func TestClassifyRVCUnknown(t *testing.T) {
	rvcTable := loadTestRVCTable(t)
	class, _, _ := classifyRVC(rvc.BuildArbitrationID(6, 0x1F001, 0x01), nil, rvcTable)
	require.Equal(t, ClassUnknown, class)
}

func TestClassifyJ1939SpartanWinsOverStandard(t *testing.T) {
	spartanTable := spartank2.BuildTable()
	j1939Table := j1939.BuildTable(j1939.FeatureFlags{})

	class, pgn, _ := classifyJ1939(j1939ArbitrationID(3, 65280, 0x20), spartanTable, j1939Table)
	require.Equal(t, ClassSpartanK2, class)
	require.Equal(t, uint32(65280), pgn)
}

func TestClassifyJ1939StandardWhenNoSpartanMatch(t *testing.T) {
	spartanTable := spartank2.BuildTable()
	j1939Table := j1939.BuildTable(j1939.FeatureFlags{})

	class, pgn, _ := classifyJ1939(j1939ArbitrationID(3, 61444, 0x00), spartanTable, j1939Table)
	require.Equal(t, ClassStandard, class)
	require.Equal(t, uint32(61444), pgn)
}

func TestClassifyJ1939Unknown(t *testing.T) {
	spartanTable := spartank2.BuildTable()
	j1939Table := j1939.BuildTable(j1939.FeatureFlags{})

	class, _, _ := classifyJ1939(j1939ArbitrationID(6, 99999, 0x00), spartanTable, j1939Table)
	require.Equal(t, ClassUnknown, class)
}

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	rvcTable := loadTestRVCTable(t)
	rvcDecoder := rvc.NewDecoder(rvcTable)
	j1939Decoder := j1939.NewDecoder(j1939.BuildTable(j1939.FeatureFlags{}), j1939.FeatureFlags{})
	spartanDecoder := spartank2.NewDecoder(safety.NewVehicleState())
	fireflyDecoder := firefly.NewDecoder()

	devices := []rvc.DeviceConfig{
		{EntityID: "generic_status", DGNHex: "1F050", Instance: 0},
	}
	coachMap := rvc.CoachMapFromDevices(devices)
	registry := entity.BuildFromCoachMapping(coachMap)
	updater := entity.NewUpdater(registry, coachMap, safety.NewVehicleState())

	br := bridge.New(bridge.Config{BridgeEngineData: true})
	br.Start()

	return New(Decoders{RVC: rvcDecoder, J1939: j1939Decoder, Firefly: fireflyDecoder, SpartanK2: spartanDecoder}, br, updater)
}

func TestDispatchRVCStandardUpdatesEntityAndCounters(t *testing.T) {
	d := newTestDispatcher(t)

	f := frame.Frame{
		ArbitrationID: rvc.BuildArbitrationID(6, 0x1F050, 0x01),
		Data:          [8]byte{0x01},
		Length:        1,
	}

	msg, class := d.Dispatch("rvc", f)
	require.Equal(t, ClassStandard, class)
	require.NotNil(t, msg)

	snap := d.Counters().Snapshot()
	require.Equal(t, uint64(1), snap.ByClassification[ClassStandard])
	require.Zero(t, snap.DecodeErrors)
}

func TestDispatchUnknownClassificationIsDroppedNotErrored(t *testing.T) {
	d := newTestDispatcher(t)

	f := frame.Frame{
		ArbitrationID: rvc.BuildArbitrationID(6, 0x1F001, 0x01),
		Length:        8,
	}

	msg, class := d.Dispatch("rvc", f)
	require.Nil(t, msg)
	require.Equal(t, ClassUnknown, class)

	snap := d.Counters().Snapshot()
	require.Equal(t, uint64(1), snap.Dropped)
}

func TestDispatchJ1939StandardFrameDecodes(t *testing.T) {
	d := newTestDispatcher(t)

	f := frame.Frame{
		ArbitrationID: j1939ArbitrationID(3, 61444, 0x00),
		Data:          [8]byte{0x00, 0x00, 0x00, 0x00, 0x80, 0x00, 0x00, 0x00},
		Length:        8,
	}

	msg, class := d.Dispatch("j1939", f)
	require.Equal(t, ClassStandard, class)
	require.NotNil(t, msg)
}

func TestInboundQueueDropsLowerPriorityFirst(t *testing.T) {
	registry := canbus.NewRegistry()
	node, err := registry.Register("chassis", "can1", "j1939", canbus.PriorityHigh, false, nil)
	require.NoError(t, err)

	q := NewInboundQueue(2, node)
	q.Push(QueuedFrame{Frame: frame.Frame{ArbitrationID: 1}, Priority: protocol.PriorityLow})
	q.Push(QueuedFrame{Frame: frame.Frame{ArbitrationID: 2}, Priority: protocol.PriorityCritical})

	// Queue full at capacity 2; a high-priority arrival should evict the
	// queued low-priority frame, not the critical one.
	q.Push(QueuedFrame{Frame: frame.Frame{ArbitrationID: 3}, Priority: protocol.PriorityHigh})

	require.Equal(t, 2, q.Len())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	first, ok := q.Pop(ctx)
	require.True(t, ok)
	require.Equal(t, uint32(2), first.Frame.ArbitrationID) // critical survived, now oldest

	second, ok := q.Pop(ctx)
	require.True(t, ok)
	require.Equal(t, uint32(3), second.Frame.ArbitrationID)

	require.Equal(t, canbus.StatusInitializing, node.Status())
}

func TestInboundQueueHardCapacityDemotesNode(t *testing.T) {
	registry := canbus.NewRegistry()
	node, err := registry.Register("chassis", "can1", "j1939", canbus.PriorityHigh, false, nil)
	require.NoError(t, err)

	q := NewInboundQueue(1, node)
	q.Push(QueuedFrame{Frame: frame.Frame{ArbitrationID: 1}, Priority: protocol.PriorityCritical})
	q.Push(QueuedFrame{Frame: frame.Frame{ArbitrationID: 2}, Priority: protocol.PriorityCritical})

	require.Equal(t, 1, q.Len())
	require.Equal(t, uint64(1), node.Snapshot().DropCount)
}

func TestRouterDropsOldestNonCritical(t *testing.T) {
	counters := newCounters()
	delivered := make([]RoutedMessage, 0)
	router := NewRouter(2, func(ctx context.Context, msg RoutedMessage) error {
		delivered = append(delivered, msg)
		return nil
	}, counters)

	router.Offer(RoutedMessage{SourceNetworkID: "a", Message: &protocol.DecodedMessage{PGN: 1}, Priority: protocol.PriorityLow})
	router.Offer(RoutedMessage{SourceNetworkID: "a", Message: &protocol.DecodedMessage{PGN: 2}, Priority: protocol.PriorityCritical})
	router.Offer(RoutedMessage{SourceNetworkID: "a", Message: &protocol.DecodedMessage{PGN: 3}, Priority: protocol.PriorityNormal})

	require.Equal(t, 2, router.Len())

	ctx, cancel := context.WithCancel(context.Background())
	for i := 0; i < 2; i++ {
		msg, ok := router.pop(ctx)
		require.True(t, ok)
		delivered = append(delivered, msg)
	}
	cancel()

	require.Equal(t, uint64(1), counters.Snapshot().Dropped)
}
