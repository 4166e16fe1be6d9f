package firefly

// customDecoder decodes one Firefly custom DGN payload into named signals.
type customDecoder func(data []byte) map[string]any

var customDecoders = map[uint32]customDecoder{
	0x1F100: decodeLightingControl,
	0x1F101: decodeClimateControl,
	0x1F102: decodeSlideAwningControl,
	0x1F103: decodePowerManagement,
	0x1F104: decodeDiagnosticExtended,
}

// DecodeCustomDGN dispatches a Firefly custom-range frame payload to its
// registered decoder, returning (nil, false) if dgn has no decoder
// registered (an unrecognized custom DGN, not a decode error).
func DecodeCustomDGN(dgn uint32, data []byte) (map[string]any, bool) {
	dec, ok := customDecoders[dgn]
	if !ok {
		return nil, false
	}
	return dec(data), true
}

func decodeLightingControl(data []byte) map[string]any {
	if len(data) < 8 {
		return map[string]any{}
	}
	return map[string]any{
		"lighting_zone":   data[0],
		"command_type":    data[1], // 0=off, 1=on, 2=dim, 3=scene
		"brightness_level": data[2],
		"scene_id":        data[3],
		"fade_time_ms":    (uint16(data[4]) << 8) | uint16(data[5]),
		"group_mask":      data[6],
		"status_flags":    data[7],
	}
}

func decodeClimateControl(data []byte) map[string]any {
	if len(data) < 8 {
		return map[string]any{}
	}
	return map[string]any{
		"zone_id":          data[0],
		"target_temp_f":    data[1],
		"current_temp_f":   data[2],
		"hvac_mode":        data[3], // 0=off, 1=heat, 2=cool, 3=auto
		"fan_speed":        data[4],
		"humidity_percent": data[5],
		"system_status":    data[6],
		"fault_codes":      data[7],
	}
}

func decodeSlideAwningControl(data []byte) map[string]any {
	if len(data) < 8 {
		return map[string]any{}
	}
	return map[string]any{
		"device_id":         data[0],
		"device_type":       data[1], // 0=slide, 1=awning, 2=jack
		"position_percent":  data[2],
		"target_position":   data[3],
		"movement_state":    data[4], // 0=stopped, 1=extending, 2=retracting
		"safety_status":     data[5],
		"current_draw_amps": data[6],
		"fault_flags":       data[7],
	}
}

func decodePowerManagement(data []byte) map[string]any {
	if len(data) < 8 {
		return map[string]any{}
	}
	return map[string]any{
		"battery_voltage":        float64((uint16(data[0])<<8)|uint16(data[1])) / 100.0,
		"battery_current":        float64((uint16(data[2])<<8)|uint16(data[3])) / 10.0,
		"inverter_status":        data[4],
		"shore_power_status":     data[5],
		"generator_status":       data[6],
		"load_management_flags":  data[7],
	}
}

func decodeDiagnosticExtended(data []byte) map[string]any {
	if len(data) < 8 {
		return map[string]any{}
	}
	return map[string]any{
		"diagnostic_source": data[0],
		"error_category":    data[1],
		"error_severity":    data[2],
		"error_code":        (uint16(data[3]) << 8) | uint16(data[4]),
		"occurrence_count":  data[5],
		"time_since_first":  (uint16(data[6]) << 8) | uint16(data[7]),
	}
}
