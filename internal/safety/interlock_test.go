package safety

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSafetyInterlockEvaluateSafe(t *testing.T) {
	registry := NewRegistry()
	vs := NewVehicleState()
	vs.SetParkBrake(true)
	vs.SetEngineRunning(false)

	interlock := NewSafetyInterlock("slides", []string{"park_brake_set", "engine_not_running"})
	violations := interlock.Evaluate(registry, vs.Snapshot(), time.Unix(0, 0))

	require.Empty(t, violations)
	require.Equal(t, StateSafe, interlock.CurrentState)
	require.True(t, interlock.Safe())
}

// TestSafetyInterlockEvaluateUnsafe covers the scenario of requesting a
// slide extension with the park brake not set and the engine running.
func TestSafetyInterlockEvaluateUnsafe(t *testing.T) {
	registry := NewRegistry()
	vs := NewVehicleState()
	vs.SetParkBrake(false)
	vs.SetEngineRunning(true)

	interlock := NewSafetyInterlock("slides", []string{"park_brake_set", "engine_not_running"})
	violations := interlock.Evaluate(registry, vs.Snapshot(), time.Unix(0, 0))

	require.ElementsMatch(t, []string{"park_brake_set", "engine_not_running"}, violations)
	require.Equal(t, StateUnsafe, interlock.CurrentState)
	require.False(t, interlock.Safe())
}

func TestSafetyInterlockBypass(t *testing.T) {
	registry := NewRegistry()
	vs := NewVehicleState()

	interlock := NewSafetyInterlock("slides", []string{"park_brake_set"})
	interlock.Bypass(true)
	violations := interlock.Evaluate(registry, vs.Snapshot(), time.Unix(0, 0))

	require.Empty(t, violations)
	require.Equal(t, StateBypassed, interlock.CurrentState)
	require.True(t, interlock.Safe())
}

func TestRegistryUnknownConditionFails(t *testing.T) {
	registry := NewRegistry()
	vs := NewVehicleState()

	violations := registry.Evaluate(vs.Snapshot(), []string{"no_such_condition"})
	require.Equal(t, []string{"no_such_condition"}, violations)
}

func TestVehicleStateSnapshotIndependence(t *testing.T) {
	vs := NewVehicleState()
	vs.SetVehicleSpeed(5.0)
	snap := vs.Snapshot()

	vs.SetVehicleSpeed(60.0)

	require.InDelta(t, 5.0, snap.VehicleSpeed, 0.001)
	require.InDelta(t, 60.0, vs.Snapshot().VehicleSpeed, 0.001)
}
