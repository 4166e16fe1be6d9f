package spartank2

import (
	"testing"

	"github.com/coachlink/gateway/internal/frame"
	"github.com/coachlink/gateway/internal/protocol"
	"github.com/coachlink/gateway/internal/safety"
	"github.com/stretchr/testify/require"
)

func chassisFrame(pgn uint32, source uint8, data []byte) frame.Frame {
	var arr [8]byte
	copy(arr[:], data)
	return frame.Frame{
		ArbitrationID: (pgn << 8) | uint32(source),
		Data:          arr,
		Length:        len(data),
	}
}

// TestBrakeSafetyInterlockViolation covers the brake-pressure-low scenario:
// low brake pressure must surface a violation and mark the brake interlock
// unsafe.
func TestBrakeSafetyInterlockViolation(t *testing.T) {
	vs := safety.NewVehicleState()
	vs.SetEngineRunning(true)
	vs.SetVehicleSpeed(10)

	dec := NewDecoder(vs)

	// brake_pressure raw=100 * 0.5 = 50 psi, below the 80 psi threshold;
	// abs_active=0 at speed 10 > 5 also violates; parking_brake_active=0
	// with engine running does not (engine is running).
	data := []byte{0x64, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	msg, err := dec.Decode(chassisFrame(65280, 0x30, data))
	require.NoError(t, err)
	require.Contains(t, msg.SafetyViolations, "Low brake pressure detected - system safety compromised")
	require.Contains(t, msg.SafetyViolations, "ABS system inactive at speed - safety concern")

	il, ok := dec.Interlock(protocol.SystemBrakes)
	require.True(t, ok)
	require.Equal(t, safety.StateUnsafe, il.CurrentState)
}

func TestBrakeSafetyInterlockSafe(t *testing.T) {
	vs := safety.NewVehicleState()
	vs.SetEngineRunning(true)
	vs.SetVehicleSpeed(0)

	dec := NewDecoder(vs)

	// brake_pressure raw=400 * 0.5 = 200 psi; abs_active bits set; parking
	// brake bits set.
	data := []byte{0x90, 0x01, 0x0F, 0x00, 0x00, 0x00, 0x00, 0x00}
	msg, err := dec.Decode(chassisFrame(65280, 0x30, data))
	require.NoError(t, err)
	require.Empty(t, msg.SafetyViolations)

	il, ok := dec.Interlock(protocol.SystemBrakes)
	require.True(t, ok)
	require.Equal(t, safety.StateSafe, il.CurrentState)
}

func TestSuspensionLevelDifferentialViolation(t *testing.T) {
	vs := safety.NewVehicleState()
	dec := NewDecoder(vs)

	// front_level_sensor raw=0 -> 0%, rear raw=250 * 0.4 = 100% -> diff 100.
	data := []byte{0x00, 0xFA, 0x64, 0x00, 0x00, 0x00, 0x00, 0x00}
	msg, err := dec.Decode(chassisFrame(65281, 0x31, data))
	require.NoError(t, err)
	require.Contains(t, msg.SafetyViolations, "Chassis level differential exceeds safe limits")
}

func TestSteeringExcessiveAngle(t *testing.T) {
	vs := safety.NewVehicleState()
	dec := NewDecoder(vs)

	// power_steering_pressure raw=2000*4=8000, clamped to 2000 psi (safe); steering_wheel_angle
	// raw=32000 * 0.0625 - 2000 = 0 degrees (safe) -- use a larger raw value
	// to push past the 720 degree threshold: raw=44000*0.0625-2000=750.
	data := make([]byte, 8)
	data[0] = byte(2000 & 0xFF)
	data[1] = byte((2000 >> 8) & 0xFF)
	rawAngle := uint16(44000)
	data[2] = byte(rawAngle & 0xFF)
	data[3] = byte((rawAngle >> 8) & 0xFF)

	msg, err := dec.Decode(chassisFrame(65282, 0x32, data))
	require.NoError(t, err)
	require.Contains(t, msg.SafetyViolations, "Excessive steering angle detected")
}

func TestDiagnosticCodeExtraction(t *testing.T) {
	vs := safety.NewVehicleState()
	dec := NewDecoder(vs)

	data := []byte{0x2A, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00} // dtc=0x012A=298
	msg, err := dec.Decode(chassisFrame(65284, 0x33, data))
	require.NoError(t, err)
	require.Equal(t, []uint16{298}, msg.DiagnosticCodes)
}

func TestDecodeUnknownPGN(t *testing.T) {
	vs := safety.NewVehicleState()
	dec := NewDecoder(vs)

	_, err := dec.Decode(chassisFrame(99999, 0x34, []byte{0, 0, 0, 0, 0, 0, 0, 0}))
	require.Error(t, err)
}
