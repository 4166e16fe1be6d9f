package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions.
type contextKey struct{}

var logContextKey = contextKey{}

// LogContext holds request-scoped logging context for a single frame or
// command flowing through the dispatcher, decoders, and entity updater.
type LogContext struct {
	TraceID       string // OpenTelemetry trace ID
	SpanID        string // OpenTelemetry span ID
	NetworkID     string // logical CAN network the frame arrived on
	ArbitrationID uint32 // raw arbitration ID of the frame being processed
	PGN           uint32 // decoded PGN/DGN, 0 if not yet classified
	SourceAddress uint8  // J1939/RV-C source address
	EntityID      string // entity ID being updated or controlled
	StartTime     time.Time
}

// WithContext returns a new context carrying the given LogContext.
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if absent.
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a LogContext for a frame arriving on networkID.
func NewLogContext(networkID string) *LogContext {
	return &LogContext{NetworkID: networkID, StartTime: time.Now()}
}

// Clone returns a copy of the LogContext.
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	clone := *lc
	return &clone
}

// WithPGN returns a copy with the PGN/DGN and source address set.
func (lc *LogContext) WithPGN(pgn uint32, sourceAddress uint8) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.PGN = pgn
		clone.SourceAddress = sourceAddress
	}
	return clone
}

// WithEntity returns a copy with the entity ID set.
func (lc *LogContext) WithEntity(entityID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.EntityID = entityID
	}
	return clone
}

// WithTrace returns a copy with trace info set.
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds.
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
