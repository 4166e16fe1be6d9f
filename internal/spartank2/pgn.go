package spartank2

import "github.com/coachlink/gateway/internal/protocol"

func f64(v float64) *float64 { return &v }

// chassisPGNs returns the four Spartan K2 chassis controller PGN
// definitions: advanced brakes, suspension/leveling, power steering and
// stability, and chassis electrical/power management. Signal layouts and
// safety-interlock labels are ported from the manufacturer extension this
// decoder is based on.
func chassisPGNs() []protocol.PGNDefinition {
	return []protocol.PGNDefinition{
		{
			ID:                65280,
			Name:              "Spartan K2 Advanced Brake System Controller",
			SystemType:        protocol.SystemBrakes,
			Priority:          protocol.PriorityCritical,
			DataLength:        8,
			SafetyInterlocks:  []string{"brake_pressure_low", "abs_malfunction", "parking_brake_disengaged"},
			DiagnosticSupport: true,
			Signals: []protocol.SignalDef{
				{Name: "brake_pressure", StartBit: 0, Length: 16, Scale: 0.5, Offset: 0, Units: "psi", Min: f64(0), Max: f64(200), SafetyCritical: true},
				{Name: "abs_active", StartBit: 16, Length: 2, Scale: 1, Offset: 0, Units: "state", SafetyCritical: true},
				{Name: "parking_brake_active", StartBit: 18, Length: 2, Scale: 1, Offset: 0, Units: "state", SafetyCritical: true},
				{Name: "brake_fluid_level", StartBit: 20, Length: 4, Scale: 1, Offset: 0, Units: "level"},
				{Name: "brake_temp_front", StartBit: 24, Length: 8, Scale: 1, Offset: -40, Units: "°C", Min: f64(-40), Max: f64(200)},
				{Name: "brake_temp_rear", StartBit: 32, Length: 8, Scale: 1, Offset: -40, Units: "°C", Min: f64(-40), Max: f64(200)},
				{Name: "brake_wear_front", StartBit: 40, Length: 8, Scale: 0.4, Offset: 0, Units: "%", Min: f64(0), Max: f64(100)},
				{Name: "brake_wear_rear", StartBit: 48, Length: 8, Scale: 0.4, Offset: 0, Units: "%", Min: f64(0), Max: f64(100)},
			},
		},
		{
			ID:                65281,
			Name:              "Spartan K2 Suspension and Leveling System",
			SystemType:        protocol.SystemSuspension,
			Priority:          protocol.PriorityHigh,
			DataLength:        8,
			SafetyInterlocks:  []string{"level_differential_high", "air_pressure_low", "leveling_while_moving"},
			DiagnosticSupport: true,
			Signals: []protocol.SignalDef{
				{Name: "front_level_sensor", StartBit: 0, Length: 8, Scale: 0.4, Offset: 0, Units: "%", Min: f64(0), Max: f64(100), SafetyCritical: true},
				{Name: "rear_level_sensor", StartBit: 8, Length: 8, Scale: 0.4, Offset: 0, Units: "%", Min: f64(0), Max: f64(100), SafetyCritical: true},
				{Name: "air_pressure", StartBit: 16, Length: 8, Scale: 2, Offset: 0, Units: "psi", Min: f64(0), Max: f64(200), SafetyCritical: true},
				{Name: "leveling_active", StartBit: 24, Length: 2, Scale: 1, Offset: 0, Units: "state"},
				{Name: "suspension_mode", StartBit: 26, Length: 3, Scale: 1, Offset: 0, Units: "mode"},
				{Name: "ride_height_front", StartBit: 32, Length: 8, Scale: 0.5, Offset: 0, Units: "inches"},
				{Name: "ride_height_rear", StartBit: 40, Length: 8, Scale: 0.5, Offset: 0, Units: "inches"},
				{Name: "shock_position", StartBit: 48, Length: 8, Scale: 0.4, Offset: 0, Units: "%"},
			},
		},
		{
			ID:                65282,
			Name:              "Spartan K2 Power Steering and Stability System",
			SystemType:        protocol.SystemSteering,
			Priority:          protocol.PriorityHigh,
			DataLength:        8,
			SafetyInterlocks:  []string{"steering_pressure_low", "steering_angle_excessive"},
			DiagnosticSupport: true,
			Signals: []protocol.SignalDef{
				{Name: "power_steering_pressure", StartBit: 0, Length: 16, Scale: 4, Offset: 0, Units: "psi", Min: f64(0), Max: f64(2000), SafetyCritical: true},
				{Name: "steering_wheel_angle", StartBit: 16, Length: 16, Scale: 0.0625, Offset: -2000, Units: "degrees", SafetyCritical: true},
				{Name: "steering_effort", StartBit: 32, Length: 8, Scale: 1, Offset: 0, Units: "%", Min: f64(0), Max: f64(100)},
				{Name: "stability_control_active", StartBit: 40, Length: 2, Scale: 1, Offset: 0, Units: "state"},
				{Name: "lane_keep_assist", StartBit: 42, Length: 2, Scale: 1, Offset: 0, Units: "state"},
				{Name: "steering_temp", StartBit: 48, Length: 8, Scale: 1, Offset: -40, Units: "°C"},
			},
		},
		{
			ID:                65283,
			Name:              "Spartan K2 Chassis Electrical and Power Management",
			SystemType:        protocol.SystemElectrical,
			Priority:          protocol.PriorityNormal,
			DataLength:        8,
			SafetyInterlocks:  []string{"battery_voltage_low", "alternator_failure"},
			DiagnosticSupport: true,
			Signals: []protocol.SignalDef{
				{Name: "chassis_battery_voltage", StartBit: 0, Length: 16, Scale: 0.05, Offset: 0, Units: "V", Min: f64(10), Max: f64(16)},
				{Name: "alternator_output", StartBit: 16, Length: 8, Scale: 1, Offset: 0, Units: "A", Min: f64(0), Max: f64(200)},
				{Name: "power_distribution_status", StartBit: 24, Length: 8, Scale: 1, Offset: 0, Units: "status"},
				{Name: "auxiliary_power_active", StartBit: 32, Length: 2, Scale: 1, Offset: 0, Units: "state"},
				{Name: "engine_block_heater", StartBit: 34, Length: 2, Scale: 1, Offset: 0, Units: "state"},
				{Name: "chassis_ground_fault", StartBit: 36, Length: 2, Scale: 1, Offset: 0, Units: "state"},
			},
		},
		{
			ID:                65284,
			Name:              "Spartan K2 Advanced Diagnostics and Maintenance",
			SystemType:        protocol.SystemDiagnostic,
			Priority:          protocol.PriorityLow,
			DataLength:        8,
			SafetyInterlocks:  nil,
			DiagnosticSupport: true,
			Signals: []protocol.SignalDef{
				{Name: "diagnostic_trouble_code", StartBit: 0, Length: 16, Scale: 1, Offset: 0, Units: "code"},
				{Name: "maintenance_due_indicator", StartBit: 16, Length: 8, Scale: 1, Offset: 0, Units: "days"},
				{Name: "system_health_score", StartBit: 24, Length: 8, Scale: 1, Offset: 0, Units: "%", Min: f64(0), Max: f64(100)},
				{Name: "operating_hours", StartBit: 32, Length: 16, Scale: 0.1, Offset: 0, Units: "hours"},
				{Name: "mileage_counter", StartBit: 48, Length: 16, Scale: 0.1, Offset: 0, Units: "miles"},
			},
		},
	}
}
