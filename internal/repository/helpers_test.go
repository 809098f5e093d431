package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lshigami/skillcheck/internal/model"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&model.TestDefinition{},
		&model.Question{},
		&model.SkillBucket{},
		&model.Job{},
		&model.Application{},
		&model.AssessmentSession{},
		&model.SessionAnswer{},
		&model.SessionEvent{},
		&model.SkillAttempt{},
	))
	return db
}

// newMockDB returns a postgres-dialect gorm handle backed by sqlmock.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func activeSession(applicationID uint) *model.AssessmentSession {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	return &model.AssessmentSession{
		ID:             uuid.NewString(),
		ApplicationID:  applicationID,
		CandidateID:    42,
		TestID:         1,
		Status:         model.SessionActive,
		StartedAt:      now,
		Deadline:       now.Add(30 * time.Minute),
		TotalQuestions: 3,
		QuestionOrder:  []uint{10, 11, 12},
	}
}

func terminalOutcome(status model.SessionStatus) model.SessionOutcome {
	return model.SessionOutcome{
		Status:       status,
		Score:        66.67,
		CorrectCount: 2,
		Passed:       false,
		SubmittedAt:  time.Date(2026, 4, 1, 12, 20, 0, 0, time.UTC),
	}
}
