package logger

// Standard field keys for structured logging. Keys are protocol-agnostic
// across RV-C, J1939, Firefly, and Spartan K2; use them consistently so log
// aggregation and querying works across decoders.
const (
	// Distributed tracing
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	// Network / bus
	KeyNetworkID     = "network_id"
	KeyInterface     = "interface"
	KeyArbitrationID = "arbitration_id"
	KeySourceNetwork = "source_network_id"

	// Protocol & message identity
	KeyProtocol      = "protocol"
	KeySystemType    = "system_type"
	KeyPGN           = "pgn"
	KeyDGN           = "dgn"
	KeySourceAddress = "source_address"
	KeyManufacturer  = "manufacturer"
	KeyPriority      = "priority"

	// Entity / device
	KeyEntityID    = "entity_id"
	KeyDeviceType  = "device_type"
	KeyInstance    = "instance"
	KeyComponent   = "component"
	KeyOperation   = "operation"
	KeyCommandID   = "command_id"

	// Errors & counters
	KeyError         = "error"
	KeyErrorKind     = "error_kind"
	KeyCount         = "count"
	KeyReason        = "reason"
	KeyViolation     = "violation"
	KeyFeature       = "feature"
	KeyDurationMs    = "duration_ms"
)
