// Package persistence stores agent step records in SQLite via GORM, so
// runs can be replayed and audited after the fact.
package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/codeflow-ai/codeflow/agent"
)

// StepRecord is the database row for one agent step.
type StepRecord struct {
	ID          uint   `gorm:"primaryKey"`
	RunID       string `gorm:"index;size:64"`
	StepIndex   int
	Reply       string `gorm:"type:text"`
	Code        string `gorm:"type:text"`
	Value       string `gorm:"type:text"`
	Logs        string `gorm:"type:text"`
	Error       string `gorm:"type:text"`
	Observation string `gorm:"type:text"`
	DurationMS  int64
	CreatedAt   time.Time
}

// TableName fixes the table name.
func (StepRecord) TableName() string { return "agent_steps" }

// Store persists step records.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Open opens (and migrates) the SQLite step store at path. Use
// ":memory:" for an ephemeral store.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open step store: %w", err)
	}
	if err := db.AutoMigrate(&StepRecord{}); err != nil {
		return nil, fmt.Errorf("migrate step store: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// SaveStep writes one step record.
func (s *Store) SaveStep(ctx context.Context, step *agent.Step) error {
	rec := StepRecord{
		RunID:       step.RunID,
		StepIndex:   step.Index,
		Reply:       step.Reply,
		Code:        step.Code,
		Value:       step.Value,
		Logs:        step.Logs,
		Error:       step.Error,
		Observation: step.Observation,
		DurationMS:  step.Duration.Milliseconds(),
		CreatedAt:   step.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("save step %d of run %s: %w", step.Index, step.RunID, err)
	}
	return nil
}

// ListSteps returns the steps of one run in execution order.
func (s *Store) ListSteps(ctx context.Context, runID string) ([]agent.Step, error) {
	var recs []StepRecord
	err := s.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("step_index ASC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list steps of run %s: %w", runID, err)
	}

	steps := make([]agent.Step, 0, len(recs))
	for _, r := range recs {
		steps = append(steps, agent.Step{
			RunID:       r.RunID,
			Index:       r.StepIndex,
			Reply:       r.Reply,
			Code:        r.Code,
			Value:       r.Value,
			Logs:        r.Logs,
			Error:       r.Error,
			Observation: r.Observation,
			Duration:    time.Duration(r.DurationMS) * time.Millisecond,
			CreatedAt:   r.CreatedAt,
		})
	}
	return steps, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
