package feature

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStartOrderRespectsDependencies(t *testing.T) {
	m := NewManager()
	var started []string

	require.NoError(t, m.Register(&Feature{
		Name: "can", Enabled: true, SafetyClassification: ClassCritical,
		Start: func() error { started = append(started, "can"); return nil },
	}))
	require.NoError(t, m.Register(&Feature{
		Name: "entities", Enabled: true, Dependencies: []string{"can"}, SafetyClassification: ClassCritical,
		Start: func() error { started = append(started, "entities"); return nil },
	}))
	require.NoError(t, m.Register(&Feature{
		Name: "bridge", Enabled: true, Dependencies: []string{"can", "entities"}, SafetyClassification: ClassOperational,
		Start: func() error { started = append(started, "bridge"); return nil },
	}))

	require.NoError(t, m.Start())
	require.Equal(t, []string{"can", "entities", "bridge"}, started)

	for _, name := range []string{"can", "entities", "bridge"} {
		f, _ := m.Get(name)
		require.Equal(t, StateRunning, f.State())
	}
}

func TestCycleDetected(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Register(&Feature{Name: "a", Enabled: true, Dependencies: []string{"b"}}))
	require.NoError(t, m.Register(&Feature{Name: "b", Enabled: true, Dependencies: []string{"a"}}))

	err := m.Start()
	require.Error(t, err)
}

func TestCriticalFailureAbortsStartup(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Register(&Feature{
		Name: "can", Enabled: true, SafetyClassification: ClassCritical,
		Start: func() error { return errors.New("bus attach failed") },
	}))

	err := m.Start()
	require.Error(t, err)
	var startupErr *StartupError
	require.ErrorAs(t, err, &startupErr)
	require.Equal(t, "can", startupErr.Feature)
}

func TestOperationalFailureDisablesButContinues(t *testing.T) {
	m := NewManager()
	var secondStarted bool
	require.NoError(t, m.Register(&Feature{
		Name: "notifications", Enabled: true, SafetyClassification: ClassOperational,
		Start: func() error { return errors.New("smtp unreachable") },
	}))
	require.NoError(t, m.Register(&Feature{
		Name: "metrics", Enabled: true, SafetyClassification: ClassOperational,
		Start: func() error { secondStarted = true; return nil },
	}))

	require.NoError(t, m.Start())
	require.True(t, secondStarted)

	f, _ := m.Get("notifications")
	require.True(t, f.Disabled())
	require.Equal(t, HealthDisabled, f.Health())
}

func TestSafetyRelatedAppliesDegradationPolicy(t *testing.T) {
	m := NewManager()
	var degraded bool
	require.NoError(t, m.Register(&Feature{
		Name: "leveling", Enabled: true, SafetyClassification: ClassSafetyRelated,
		Start: func() error { return errors.New("sensor offline") },
		Degrade: func(f *Feature, err error) {
			degraded = true
			f.SetDegraded()
		},
	}))

	require.NoError(t, m.Start())
	require.True(t, degraded)

	f, _ := m.Get("leveling")
	require.Equal(t, HealthDegraded, f.Health())
}

func TestDisabledFeatureSkipsStart(t *testing.T) {
	m := NewManager()
	var started bool
	require.NoError(t, m.Register(&Feature{
		Name: "diagnostics", Enabled: false,
		Start: func() error { started = true; return nil },
	}))

	require.NoError(t, m.Start())
	require.False(t, started)

	f, _ := m.Get("diagnostics")
	require.Equal(t, HealthDisabled, f.Health())
}

func TestStopTraversesInReverse(t *testing.T) {
	m := NewManager()
	var stopped []string

	require.NoError(t, m.Register(&Feature{
		Name: "can", Enabled: true, SafetyClassification: ClassCritical,
		Start: func() error { return nil },
		Stop:  func() error { stopped = append(stopped, "can"); return nil },
	}))
	require.NoError(t, m.Register(&Feature{
		Name: "entities", Enabled: true, Dependencies: []string{"can"}, SafetyClassification: ClassCritical,
		Start: func() error { return nil },
		Stop:  func() error { stopped = append(stopped, "entities"); return nil },
	}))

	require.NoError(t, m.Start())
	m.Stop()
	require.Equal(t, []string{"entities", "can"}, stopped)

	for _, name := range []string{"can", "entities"} {
		f, _ := m.Get(name)
		require.Equal(t, StateStopped, f.State())
	}
}

func TestHealthAggregation(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Register(&Feature{
		Name: "a", Enabled: true, SafetyClassification: ClassCritical,
		Start: func() error { return nil },
	}))
	require.NoError(t, m.Register(&Feature{
		Name: "b", Enabled: true, SafetyClassification: ClassSafetyRelated,
		Start: func() error { return errors.New("degraded start") },
		Degrade: func(f *Feature, err error) { f.SetDegraded() },
	}))

	require.NoError(t, m.Start())
	require.Equal(t, HealthDegraded, m.Health())
}

func TestDuplicateRegistrationRejected(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Register(&Feature{Name: "a"}))
	err := m.Register(&Feature{Name: "a"})
	require.Error(t, err)
}
