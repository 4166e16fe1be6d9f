// Package gwerrors defines the error-kind taxonomy used across the
// network, decoder, entity, and feature layers.
//
// This is a leaf package with no internal dependencies, importable by
// internal/canbus, internal/rvc, internal/j1939, internal/firefly,
// internal/spartank2, internal/entity, and internal/feature without
// circular imports.
package gwerrors

import "fmt"

// Kind identifies the category of error, per spec §7.
type Kind int

const (
	// KindTransientBus is a single frame read/write failure. Counted and
	// logged at debug level; does not change node state.
	KindTransientBus Kind = iota + 1

	// KindBusFault is a repeated or fatal bus error. Transitions the node
	// to faulted and triggers recovery if fault isolation is enabled.
	KindBusFault

	// KindDecode is a malformed frame or unknown PGN/DGN. Counted per
	// decoder, logged at debug level, frame dropped.
	KindDecode

	// KindInterlockViolation is non-fatal. It is annotated onto the
	// emitted DecodedMessage and, for control commands, rejects the
	// command.
	KindInterlockViolation

	// KindConfig is a malformed or inconsistent spec/mapping at startup.
	// Fatal for the owning feature; may be fatal for the process
	// depending on the feature's safety classification.
	KindConfig

	// KindFeatureStartup is a feature start failure, handled per the
	// feature's safety classification.
	KindFeatureStartup

	// KindCancellation is expected at shutdown; never logged as an error.
	KindCancellation
)

func (k Kind) String() string {
	switch k {
	case KindTransientBus:
		return "TransientBusError"
	case KindBusFault:
		return "BusFault"
	case KindDecode:
		return "DecodeError"
	case KindInterlockViolation:
		return "InterlockViolation"
	case KindConfig:
		return "ConfigError"
	case KindFeatureStartup:
		return "FeatureStartupError"
	case KindCancellation:
		return "CancellationError"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// GatewayError is a classified error carrying the component it originated
// from and, optionally, the error it wraps.
type GatewayError struct {
	Kind      Kind
	Component string // network ID, decoder name, feature name, etc.
	Message   string
	Err       error
}

func (e *GatewayError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("%s[%s]: %s", e.Kind, e.Component, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *GatewayError) Unwrap() error { return e.Err }

func newf(kind Kind, component, format string, args ...any) *GatewayError {
	return &GatewayError{Kind: kind, Component: component, Message: fmt.Sprintf(format, args...)}
}

// TransientBus wraps a single failed bus read/write.
func TransientBus(networkID string, err error) *GatewayError {
	return &GatewayError{Kind: KindTransientBus, Component: networkID, Message: "transient bus error", Err: err}
}

// BusFault reports a fatal bus condition that demotes a node to faulted.
func BusFault(networkID string, err error) *GatewayError {
	return &GatewayError{Kind: KindBusFault, Component: networkID, Message: "bus fault", Err: err}
}

// Decode reports a malformed frame or unknown PGN/DGN for a decoder.
func Decode(decoder string, format string, args ...any) *GatewayError {
	return newf(KindDecode, decoder, format, args...)
}

// Interlock reports a non-fatal safety interlock violation.
func Interlock(component, condition string) *GatewayError {
	return newf(KindInterlockViolation, component, "interlock violated: %s", condition)
}

// Config reports a malformed or inconsistent startup configuration.
func Config(owner string, err error) *GatewayError {
	return &GatewayError{Kind: KindConfig, Component: owner, Message: "configuration error", Err: err}
}

// FeatureStartup reports a feature start failure.
func FeatureStartup(feature string, err error) *GatewayError {
	return &GatewayError{Kind: KindFeatureStartup, Component: feature, Message: "feature startup failed", Err: err}
}

// Cancellation marks an error as an expected shutdown cancellation.
func Cancellation(component string) *GatewayError {
	return &GatewayError{Kind: KindCancellation, Component: component, Message: "cancelled"}
}

// Is reports whether err is a GatewayError of the given kind.
func Is(err error, kind Kind) bool {
	var ge *GatewayError
	for err != nil {
		if g, ok := err.(*GatewayError); ok {
			ge = g
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return ge != nil && ge.Kind == kind
}

// IsTransient reports whether err should be counted but never change node
// or feature state (TransientBusError, DecodeError).
func IsTransient(err error) bool {
	return Is(err, KindTransientBus) || Is(err, KindDecode)
}

// IsFatalForFeature reports whether err should abort a feature's startup
// outright regardless of safety classification (ConfigError always is).
func IsFatalForFeature(err error) bool {
	return Is(err, KindConfig)
}
