package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/lshigami/skillcheck/config"
	"github.com/lshigami/skillcheck/internal/dto"
	"github.com/lshigami/skillcheck/internal/model"
	"github.com/lshigami/skillcheck/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// EligibilityService decides whether a candidate may take a test for a
// skill bucket and records the outcome of each attempt.
type EligibilityService interface {
	CheckSkillStatus(ctx context.Context, candidateID, skillBucketID uint) (*dto.SkillStatus, error)
	RecordAttempt(ctx context.Context, candidateID, skillBucketID uint, passed bool, score float64, sessionID string) (*model.SkillAttempt, error)
}

type eligibilityService struct {
	attempts       repository.SkillAttemptRepository
	passValidity   time.Duration
	retestCooldown time.Duration
	now            func() time.Time
}

func NewEligibilityService(attempts repository.SkillAttemptRepository, cfg *config.Config) EligibilityService {
	return newEligibilityService(attempts, cfg.Assessment.PassValidity, cfg.Assessment.RetestCooldown)
}

func newEligibilityService(attempts repository.SkillAttemptRepository, passValidity, retestCooldown time.Duration) *eligibilityService {
	return &eligibilityService{
		attempts:       attempts,
		passValidity:   passValidity,
		retestCooldown: retestCooldown,
		now:            time.Now,
	}
}

func (s *eligibilityService) CheckSkillStatus(ctx context.Context, candidateID, skillBucketID uint) (*dto.SkillStatus, error) {
	latest, err := s.attempts.FindLatest(ctx, candidateID, skillBucketID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &dto.SkillStatus{CanRetest: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find latest skill attempt: %w", err)
	}

	now := s.now()
	status := &dto.SkillStatus{}
	if latest.IsPassed {
		status.IsPassed = true
		if latest.ValidUntil != nil && latest.ValidUntil.After(now) {
			status.IsValid = true
			status.ValidDaysRemaining = int(math.Ceil(latest.ValidUntil.Sub(now).Hours() / 24))
		} else {
			status.CanRetest = true
		}
		return status, nil
	}

	status.IsFailed = true
	if latest.RetestAllowedAt != nil && latest.RetestAllowedAt.After(now) {
		status.RetestInHours = int(math.Ceil(latest.RetestAllowedAt.Sub(now).Hours()))
	} else {
		status.CanRetest = true
	}
	return status, nil
}

func (s *eligibilityService) RecordAttempt(ctx context.Context, candidateID, skillBucketID uint, passed bool, score float64, sessionID string) (*model.SkillAttempt, error) {
	now := s.now()
	attempt := &model.SkillAttempt{
		CandidateID:   candidateID,
		SkillBucketID: skillBucketID,
		SessionID:     sessionID,
		IsPassed:      passed,
		Score:         score,
		AttemptedAt:   now,
	}
	if passed {
		validUntil := now.Add(s.passValidity)
		attempt.ValidUntil = &validUntil
	} else {
		retestAt := now.Add(s.retestCooldown)
		attempt.RetestAllowedAt = &retestAt
	}

	if err := s.attempts.Create(ctx, attempt); err != nil {
		return nil, fmt.Errorf("create skill attempt: %w", err)
	}
	log.Info().
		Uint("candidateID", candidateID).
		Uint("skillBucketID", skillBucketID).
		Bool("passed", passed).
		Float64("score", score).
		Msg("Skill attempt recorded")
	return attempt, nil
}
