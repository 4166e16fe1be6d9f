// Package eventlog is the optional long-term archive of decoded messages
// and feature lifecycle transitions, backed by PostgreSQL via GORM. It is
// off by default (spec_full §5's persistence.eventlog.enabled) and adapts
// the teacher's pkg/controlplane/store GORMStore connect/automigrate
// pattern, trimmed to the Postgres-only backend the gateway domain needs.
package eventlog

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/coachlink/gateway/internal/protocol"
)

// MessageRecord is the archived form of a protocol.DecodedMessage.
type MessageRecord struct {
	ID              uint `gorm:"primarykey"`
	RecordedAt      time.Time
	SourceNetworkID string `gorm:"index"`
	Protocol        string `gorm:"index"`
	PGN             uint32
	SourceAddress   uint8
	Classification  string
	Payload         string `gorm:"type:jsonb"`
}

// TableName pins the table name so AutoMigrate doesn't pluralize oddly.
func (MessageRecord) TableName() string { return "message_records" }

// FeatureTransitionRecord archives one feature lifecycle state change.
type FeatureTransitionRecord struct {
	ID         uint `gorm:"primarykey"`
	RecordedAt time.Time
	Feature    string `gorm:"index"`
	State      string
	Error      string `gorm:"type:text"`
}

func (FeatureTransitionRecord) TableName() string { return "feature_transition_records" }

// AllModels lists every model eventlog.Open automigrates, mirroring the
// teacher's models.AllModels convention.
func AllModels() []interface{} {
	return []interface{}{
		&MessageRecord{},
		&FeatureTransitionRecord{},
	}
}

// Store is a GORM-backed archive for decoded messages and feature
// lifecycle transitions.
type Store struct {
	db *gorm.DB
}

// Open connects to the Postgres database at dsn and runs AutoMigrate.
func Open(dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("eventlog: dsn is required")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("eventlog: connect to postgres: %w", err)
	}

	if err := db.AutoMigrate(AllModels()...); err != nil {
		return nil, fmt.Errorf("eventlog: automigrate: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// RecordMessage archives a single decoded message, tagged with the
// dispatcher's protocol name ("rvc"/"j1939") and classification string
// since neither lives on protocol.DecodedMessage itself.
func (s *Store) RecordMessage(ctx context.Context, msg *protocol.DecodedMessage, networkProtocol, classification, payloadJSON string) error {
	rec := MessageRecord{
		RecordedAt:      time.Unix(0, int64(msg.Timestamp*float64(time.Second))),
		SourceNetworkID: msg.SourceNetworkID,
		Protocol:        networkProtocol,
		PGN:             msg.PGN,
		SourceAddress:   msg.SourceAddress,
		Classification:  classification,
		Payload:         payloadJSON,
	}
	return s.db.WithContext(ctx).Create(&rec).Error
}

// RecordFeatureTransition archives a feature lifecycle state change.
func (s *Store) RecordFeatureTransition(ctx context.Context, feature, state string, transitionErr error) error {
	rec := FeatureTransitionRecord{
		RecordedAt: time.Now(),
		Feature:    feature,
		State:      state,
	}
	if transitionErr != nil {
		rec.Error = transitionErr.Error()
	}
	return s.db.WithContext(ctx).Create(&rec).Error
}

// RecentMessages returns the most recent limit messages for networkID,
// newest first.
func (s *Store) RecentMessages(ctx context.Context, networkID string, limit int) ([]MessageRecord, error) {
	var out []MessageRecord
	q := s.db.WithContext(ctx).Order("recorded_at desc").Limit(limit)
	if networkID != "" {
		q = q.Where("source_network_id = ?", networkID)
	}
	err := q.Find(&out).Error
	return out, err
}

// FeatureHistory returns feature's transition history, newest first.
func (s *Store) FeatureHistory(ctx context.Context, feature string, limit int) ([]FeatureTransitionRecord, error) {
	var out []FeatureTransitionRecord
	err := s.db.WithContext(ctx).
		Where("feature = ?", feature).
		Order("recorded_at desc").
		Limit(limit).
		Find(&out).Error
	return out, err
}
