// Package j1939 implements the J1939 decoder: standard SAE PGNs plus
// manufacturer extensions (Cummins engine, Allison transmission, Spartan
// chassis) gated by feature flags, per spec §4.4.
package j1939

import "github.com/coachlink/gateway/internal/protocol"

func f64(v float64) *float64 { return &v }

// standardPGNs returns the SAE J1939 PGN definitions every gateway loads
// regardless of OEM feature flags.
func standardPGNs() []protocol.PGNDefinition {
	return []protocol.PGNDefinition{
		{
			ID:         61444,
			Name:       "Electronic Engine Controller 1",
			SystemType: protocol.SystemEngine,
			Priority:   protocol.PriorityHigh,
			DataLength: 8,
			Signals: []protocol.SignalDef{
				{Name: "engine_torque_mode", StartBit: 0, Length: 4, Scale: 1, Offset: 0, Units: "state"},
				{Name: "actual_engine_torque_percent", StartBit: 8, Length: 8, Scale: 1, Offset: -125, Units: "%"},
				{Name: "engine_speed", StartBit: 24, Length: 16, Scale: 0.125, Offset: 0, Units: "rpm", Min: f64(0), Max: f64(8031.875)},
				{Name: "source_address_engine", StartBit: 40, Length: 8, Scale: 1, Offset: 0, Units: "address"},
				{Name: "engine_starter_mode", StartBit: 48, Length: 4, Scale: 1, Offset: 0, Units: "state"},
				{Name: "engine_demand_torque_percent", StartBit: 56, Length: 8, Scale: 1, Offset: -125, Units: "%"},
			},
		},
		{
			ID:         65262,
			Name:       "Engine Temperature 1",
			SystemType: protocol.SystemEngine,
			Priority:   protocol.PriorityCritical,
			DataLength: 8,
			Signals: []protocol.SignalDef{
				{Name: "engine_coolant_temp", StartBit: 0, Length: 8, Scale: 1, Offset: -40, Units: "C", Min: f64(-40), Max: f64(210)},
				{Name: "fuel_temp", StartBit: 8, Length: 8, Scale: 1, Offset: -40, Units: "C", Min: f64(-40), Max: f64(210)},
				{Name: "engine_oil_temp", StartBit: 16, Length: 16, Scale: 0.03125, Offset: -273, Units: "C", Min: f64(-273), Max: f64(1735)},
				{Name: "turbo_oil_temp", StartBit: 32, Length: 16, Scale: 0.03125, Offset: -273, Units: "C", Min: f64(-273), Max: f64(1735)},
				{Name: "engine_intercooler_temp", StartBit: 48, Length: 8, Scale: 1, Offset: -40, Units: "C", Min: f64(-40), Max: f64(210)},
				{Name: "engine_intercooler_thermostat_opening", StartBit: 56, Length: 8, Scale: 0.4, Offset: 0, Units: "%", Min: f64(0), Max: f64(100)},
			},
		},
		{
			ID:         65265,
			Name:       "Cruise Control/Vehicle Speed",
			SystemType: protocol.SystemGeneric,
			Priority:   protocol.PriorityHigh,
			DataLength: 8,
			Signals: []protocol.SignalDef{
				{Name: "two_speed_axle_switch", StartBit: 0, Length: 2, Scale: 1, Offset: 0, Units: "state"},
				{Name: "parking_brake_switch", StartBit: 2, Length: 2, Scale: 1, Offset: 0, Units: "state", SafetyCritical: true},
				{Name: "cruise_control_pause_switch", StartBit: 4, Length: 2, Scale: 1, Offset: 0, Units: "state"},
				{Name: "park_brake_release_inhibit_req", StartBit: 6, Length: 2, Scale: 1, Offset: 0, Units: "state", SafetyCritical: true},
				{Name: "wheel_based_vehicle_speed", StartBit: 8, Length: 16, Scale: 1.0 / 256, Offset: 0, Units: "km/h", Min: f64(0), Max: f64(250.996)},
				{Name: "cruise_control_active", StartBit: 24, Length: 2, Scale: 1, Offset: 0, Units: "state"},
				{Name: "cruise_control_enable_switch", StartBit: 26, Length: 2, Scale: 1, Offset: 0, Units: "state"},
				{Name: "brake_switch", StartBit: 28, Length: 2, Scale: 1, Offset: 0, Units: "state", SafetyCritical: true},
				{Name: "clutch_switch", StartBit: 30, Length: 2, Scale: 1, Offset: 0, Units: "state"},
				{Name: "cruise_control_set_switch", StartBit: 32, Length: 2, Scale: 1, Offset: 0, Units: "state"},
				{Name: "cruise_control_coast_switch", StartBit: 34, Length: 2, Scale: 1, Offset: 0, Units: "state"},
				{Name: "cruise_control_resume_switch", StartBit: 36, Length: 2, Scale: 1, Offset: 0, Units: "state"},
				{Name: "cruise_control_accelerate_switch", StartBit: 38, Length: 2, Scale: 1, Offset: 0, Units: "state"},
				{Name: "cruise_control_set_speed", StartBit: 40, Length: 8, Scale: 1, Offset: 0, Units: "km/h", Min: f64(0), Max: f64(250)},
				{Name: "cruise_control_high_set_limit_speed", StartBit: 48, Length: 8, Scale: 1, Offset: 0, Units: "km/h", Min: f64(0), Max: f64(250)},
				{Name: "cruise_control_low_set_limit_speed", StartBit: 56, Length: 8, Scale: 1, Offset: 0, Units: "km/h", Min: f64(0), Max: f64(250)},
			},
		},
		{
			ID:         65266,
			Name:       "Fuel Economy",
			SystemType: protocol.SystemEngine,
			Priority:   protocol.PriorityHigh,
			DataLength: 8,
			Signals: []protocol.SignalDef{
				{Name: "fuel_rate", StartBit: 0, Length: 16, Scale: 0.05, Offset: 0, Units: "L/h", Min: f64(0), Max: f64(3212.75)},
				{Name: "instantaneous_fuel_economy", StartBit: 16, Length: 16, Scale: 1.0 / 512, Offset: 0, Units: "km/L", Min: f64(0), Max: f64(125.5)},
				{Name: "average_fuel_economy", StartBit: 32, Length: 16, Scale: 1.0 / 512, Offset: 0, Units: "km/L", Min: f64(0), Max: f64(125.5)},
				{Name: "throttle_position", StartBit: 48, Length: 8, Scale: 0.4, Offset: 0, Units: "%", Min: f64(0), Max: f64(100)},
			},
		},
	}
}

// cumminsPGNs returns the Cummins engine-manufacturer extension PGNs.
func cumminsPGNs() []protocol.PGNDefinition {
	return []protocol.PGNDefinition{
		{
			ID:           61445,
			Name:         "Cummins Electronic Engine Controller 3",
			SystemType:   protocol.SystemEngine,
			Priority:     protocol.PriorityHigh,
			DataLength:   8,
			Manufacturer: "Cummins",
			Signals: []protocol.SignalDef{
				{Name: "nominal_friction_torque", StartBit: 0, Length: 8, Scale: 1, Offset: -125, Units: "%"},
				{Name: "engine_desired_operating_speed", StartBit: 8, Length: 16, Scale: 0.125, Offset: 0, Units: "rpm"},
				{Name: "engine_operating_speed_asymmetry_adjustment", StartBit: 24, Length: 8, Scale: 1, Offset: -125, Units: "%"},
				{Name: "estimated_engine_parasitic_losses", StartBit: 32, Length: 16, Scale: 0.125, Offset: 0, Units: "kW"},
			},
		},
		{
			ID:           65110,
			Name:         "Cummins Aftertreatment 1 Diesel Exhaust Fluid Tank Information",
			SystemType:   protocol.SystemTank,
			Priority:     protocol.PriorityNormal,
			DataLength:   8,
			Manufacturer: "Cummins",
			Signals: []protocol.SignalDef{
				{Name: "diesel_exhaust_fluid_tank_level", StartBit: 0, Length: 8, Scale: 0.4, Offset: 0, Units: "%", Min: f64(0), Max: f64(100)},
				{Name: "diesel_exhaust_fluid_tank_temp", StartBit: 8, Length: 16, Scale: 0.03125, Offset: -273, Units: "C"},
				{Name: "diesel_exhaust_fluid_concentration", StartBit: 24, Length: 8, Scale: 0.4, Offset: 0, Units: "%", Min: f64(0), Max: f64(100)},
				{Name: "diesel_exhaust_fluid_conductivity", StartBit: 32, Length: 16, Scale: 1, Offset: 0, Units: "uS/cm"},
			},
		},
	}
}

// allisonPGNs returns the Allison transmission-manufacturer extension PGNs.
func allisonPGNs() []protocol.PGNDefinition {
	return []protocol.PGNDefinition{
		{
			ID:           61443,
			Name:         "Allison Electronic Transmission Controller 1",
			SystemType:   protocol.SystemTransmission,
			Priority:     protocol.PriorityHigh,
			DataLength:   8,
			Manufacturer: "Allison",
			Signals: []protocol.SignalDef{
				{Name: "clutch_pressure", StartBit: 0, Length: 8, Scale: 4, Offset: 0, Units: "kPa", Min: f64(0), Max: f64(1000)},
				{Name: "transmission_oil_level_high_low", StartBit: 8, Length: 2, Scale: 1, Offset: 0, Units: "state"},
				{Name: "transmission_oil_level_countdown_timer", StartBit: 10, Length: 6, Scale: 1, Offset: 0, Units: "s"},
				{Name: "transmission_oil_level_measurement_status", StartBit: 16, Length: 4, Scale: 1, Offset: 0, Units: "state"},
				{Name: "transmission_shift_in_process", StartBit: 20, Length: 2, Scale: 1, Offset: 0, Units: "state"},
				{Name: "transmission_current_gear", StartBit: 24, Length: 8, Scale: 1, Offset: -125, Units: "gear"},
				{Name: "transmission_selected_gear", StartBit: 32, Length: 8, Scale: 1, Offset: -125, Units: "gear"},
				{Name: "transmission_actual_gear_ratio", StartBit: 40, Length: 16, Scale: 0.001, Offset: 0, Units: "ratio"},
			},
		},
		{
			ID:           65272,
			Name:         "Allison Electronic Transmission Controller 2",
			SystemType:   protocol.SystemTransmission,
			Priority:     protocol.PriorityNormal,
			DataLength:   8,
			Manufacturer: "Allison",
			Signals: []protocol.SignalDef{
				{Name: "transmission_fluid_temp", StartBit: 0, Length: 16, Scale: 0.03125, Offset: -273, Units: "C"},
				{Name: "transmission_oil_pressure", StartBit: 16, Length: 8, Scale: 4, Offset: 0, Units: "kPa", Min: f64(0), Max: f64(1000)},
				{Name: "transmission_output_shaft_speed", StartBit: 24, Length: 16, Scale: 0.125, Offset: 0, Units: "rpm"},
				{Name: "transmission_input_shaft_speed", StartBit: 40, Length: 16, Scale: 0.125, Offset: 0, Units: "rpm"},
			},
		},
	}
}

// chassisPGNs returns the Spartan chassis-manufacturer extension PGNs.
func chassisPGNs() []protocol.PGNDefinition {
	return []protocol.PGNDefinition{
		{
			ID:           65098,
			Name:         "Chassis Electronic Control Unit",
			SystemType:   protocol.SystemSuspension,
			Priority:     protocol.PriorityNormal,
			DataLength:   8,
			Manufacturer: "Spartan",
			Signals: []protocol.SignalDef{
				{Name: "chassis_system_status", StartBit: 0, Length: 8, Scale: 1, Offset: 0, Units: "status"},
				{Name: "front_axle_weight", StartBit: 8, Length: 16, Scale: 0.5, Offset: 0, Units: "kg"},
				{Name: "rear_axle_weight", StartBit: 24, Length: 16, Scale: 0.5, Offset: 0, Units: "kg"},
				{Name: "chassis_level_front", StartBit: 40, Length: 8, Scale: 0.4, Offset: 0, Units: "%"},
				{Name: "chassis_level_rear", StartBit: 48, Length: 8, Scale: 0.4, Offset: 0, Units: "%"},
			},
		},
		{
			ID:         65097,
			Name:       "Anti-lock Braking System Information",
			SystemType: protocol.SystemBrakes,
			Priority:   protocol.PriorityCritical,
			DataLength: 8,
			Signals: []protocol.SignalDef{
				{Name: "abs_active", StartBit: 0, Length: 2, Scale: 1, Offset: 0, Units: "state", SafetyCritical: true},
				{Name: "abs_off_road_switch", StartBit: 2, Length: 2, Scale: 1, Offset: 0, Units: "state"},
				{Name: "antilock_braking_active", StartBit: 4, Length: 2, Scale: 1, Offset: 0, Units: "state", SafetyCritical: true},
				{Name: "engine_retarder_selection", StartBit: 6, Length: 8, Scale: 1, Offset: 0, Units: "level"},
				{Name: "abs_full_function", StartBit: 16, Length: 2, Scale: 1, Offset: 0, Units: "state"},
				{Name: "ebs_red_warning_signal", StartBit: 18, Length: 2, Scale: 1, Offset: 0, Units: "state", SafetyCritical: true},
				{Name: "abs_ebs_amber_warning_signal", StartBit: 20, Length: 2, Scale: 1, Offset: 0, Units: "state"},
			},
		},
	}
}
