package canbus

import (
	"context"
	"testing"

	"github.com/coachlink/gateway/internal/frame"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	healthy bool
	closed  bool
}

func (f *fakeTransport) Recv(ctx context.Context) (frame.Frame, error) { return frame.Frame{}, nil }
func (f *fakeTransport) Send(ctx context.Context, fr frame.Frame) error { return nil }
func (f *fakeTransport) Close() error                                   { f.closed = true; return nil }
func (f *fakeTransport) Healthy() bool                                  { return f.healthy }

func TestRegisterUniqueness(t *testing.T) {
	r := NewRegistry()

	_, err := r.Register("chassis", "can0", "j1939", PriorityHigh, true, nil)
	require.NoError(t, err)

	_, err = r.Register("chassis", "can1", "j1939", PriorityHigh, true, nil)
	require.Error(t, err)

	_, err = r.Register("house", "can0", "rvc", PriorityNormal, true, nil)
	require.Error(t, err)
}

func TestAttachTransitions(t *testing.T) {
	r := NewRegistry()
	node, err := r.Register("house", "can0", "rvc", PriorityNormal, true, nil)
	require.NoError(t, err)
	require.Equal(t, StatusInitializing, node.status())

	require.NoError(t, r.Attach("house", &fakeTransport{healthy: true}))
	require.Equal(t, StatusHealthy, node.status())
}

func TestAttachFailureFaultsNode(t *testing.T) {
	r := NewRegistry()
	node, _ := r.Register("house", "can0", "rvc", PriorityNormal, true, nil)

	err := r.Attach("house", &fakeTransport{healthy: false})
	require.Error(t, err)
	require.Equal(t, StatusFaulted, node.status())
}

func TestIsolateIsIdempotent(t *testing.T) {
	r := NewRegistry()
	node, _ := r.Register("house", "can0", "rvc", PriorityNormal, true, nil)
	transport := &fakeTransport{healthy: true}
	require.NoError(t, r.Attach("house", transport))

	require.NoError(t, r.Isolate("house", "maintenance"))
	require.Equal(t, StatusIsolated, node.status())
	require.True(t, transport.closed)

	require.NoError(t, r.Isolate("house", "maintenance again"))
	require.Equal(t, StatusIsolated, node.status())
}

func TestRecoverAfterFault(t *testing.T) {
	r := NewRegistry()
	node, _ := r.Register("house", "can0", "rvc", PriorityNormal, true, nil)
	_ = r.Attach("house", &fakeTransport{healthy: false})
	require.Equal(t, StatusFaulted, node.status())

	err := r.Recover(context.Background(), "house", func(ctx context.Context) (frame.BusTransport, error) {
		return &fakeTransport{healthy: true}, nil
	})
	require.NoError(t, err)
	require.Equal(t, StatusHealthy, node.status())
	require.EqualValues(t, 1, node.Snapshot().FaultRecoveries)
}
