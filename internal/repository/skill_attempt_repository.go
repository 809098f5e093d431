package repository

import (
	"context"

	"github.com/lshigami/skillcheck/internal/model"
	"gorm.io/gorm"
)

type SkillAttemptRepository interface {
	Create(ctx context.Context, attempt *model.SkillAttempt) error
	// FindLatest returns gorm.ErrRecordNotFound when the candidate never
	// attempted the bucket.
	FindLatest(ctx context.Context, candidateID, skillBucketID uint) (*model.SkillAttempt, error)
}

type skillAttemptRepository struct {
	db *gorm.DB
}

func NewSkillAttemptRepository(db *gorm.DB) SkillAttemptRepository {
	return &skillAttemptRepository{db: db}
}

func (r *skillAttemptRepository) Create(ctx context.Context, attempt *model.SkillAttempt) error {
	return r.db.WithContext(ctx).Create(attempt).Error
}

func (r *skillAttemptRepository) FindLatest(ctx context.Context, candidateID, skillBucketID uint) (*model.SkillAttempt, error) {
	var attempt model.SkillAttempt
	err := r.db.WithContext(ctx).
		Where("candidate_id = ? AND skill_bucket_id = ?", candidateID, skillBucketID).
		Order("attempted_at DESC, id DESC").
		First(&attempt).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}
