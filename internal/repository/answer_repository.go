package repository

import (
	"context"

	"github.com/lshigami/skillcheck/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AnswerRepository interface {
	// Upsert writes the answer, replacing any earlier answer to the same
	// question in the same session.
	Upsert(ctx context.Context, answer *model.SessionAnswer) error
	FindBySession(ctx context.Context, sessionID string) ([]model.SessionAnswer, error)
	CountCorrect(ctx context.Context, sessionID string) (int, error)
}

type answerRepository struct {
	db *gorm.DB
}

func NewAnswerRepository(db *gorm.DB) AnswerRepository {
	return &answerRepository{db: db}
}

func (r *answerRepository) Upsert(ctx context.Context, answer *model.SessionAnswer) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}, {Name: "question_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"selected_option", "is_correct", "answered_at", "updated_at"}),
	}).Create(answer).Error
}

func (r *answerRepository) FindBySession(ctx context.Context, sessionID string) ([]model.SessionAnswer, error) {
	var answers []model.SessionAnswer
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("question_id ASC").
		Find(&answers).Error
	return answers, err
}

func (r *answerRepository) CountCorrect(ctx context.Context, sessionID string) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.SessionAnswer{}).
		Where("session_id = ? AND is_correct = ?", sessionID, true).
		Count(&count).Error
	return int(count), err
}
