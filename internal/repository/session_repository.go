package repository

import (
	"context"

	"github.com/lshigami/skillcheck/internal/model"
	"gorm.io/gorm"
)

type SessionRepository interface {
	Create(ctx context.Context, session *model.AssessmentSession) error
	FindByID(ctx context.Context, id string) (*model.AssessmentSession, error)
	// FindOpenByApplication returns the non-terminal session of an
	// application, or gorm.ErrRecordNotFound.
	FindOpenByApplication(ctx context.Context, applicationID uint) (*model.AssessmentSession, error)
	FindLatestByApplication(ctx context.Context, applicationID uint) (*model.AssessmentSession, error)
	// FinalizeIfActive applies the terminal outcome only while the row is
	// still ACTIVE. It reports whether this call performed the transition.
	FinalizeIfActive(ctx context.Context, id string, outcome model.SessionOutcome) (bool, error)
}

type sessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(ctx context.Context, session *model.AssessmentSession) error {
	return r.db.WithContext(ctx).Omit("Test", "Answers").Create(session).Error
}

func (r *sessionRepository) FindByID(ctx context.Context, id string) (*model.AssessmentSession, error) {
	var session model.AssessmentSession
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) FindOpenByApplication(ctx context.Context, applicationID uint) (*model.AssessmentSession, error) {
	var session model.AssessmentSession
	err := r.db.WithContext(ctx).
		Where("application_id = ? AND status IN ?", applicationID, []model.SessionStatus{model.SessionNotStarted, model.SessionActive}).
		Order("created_at DESC").
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) FindLatestByApplication(ctx context.Context, applicationID uint) (*model.AssessmentSession, error) {
	var session model.AssessmentSession
	err := r.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("created_at DESC").
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) FinalizeIfActive(ctx context.Context, id string, outcome model.SessionOutcome) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.AssessmentSession{}).
		Where("id = ? AND status = ?", id, model.SessionActive).
		Updates(map[string]interface{}{
			"status":        outcome.Status,
			"score":         outcome.Score,
			"correct_count": outcome.CorrectCount,
			"passed":        outcome.Passed,
			"submitted_at":  outcome.SubmittedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
