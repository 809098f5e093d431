package service

import (
	"context"
	"errors"
	"time"

	"github.com/lshigami/skillcheck/internal/apperror"
	"github.com/lshigami/skillcheck/internal/cache"
	"github.com/lshigami/skillcheck/internal/dto"
	"github.com/lshigami/skillcheck/internal/metrics"
	"github.com/lshigami/skillcheck/internal/model"
	"github.com/lshigami/skillcheck/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// OutcomeRecorder turns an active session into its terminal outcome,
// exactly once per session.
type OutcomeRecorder interface {
	Finalize(ctx context.Context, session *model.AssessmentSession, isAutoSubmit bool) (*dto.OutcomeSummary, error)
}

type outcomeRecorder struct {
	tests        repository.TestRepository
	sessions     repository.SessionRepository
	answers      repository.AnswerRepository
	states       *cache.SessionStateStore
	applications ApplicationWorkflow
	eligibility  EligibilityService
	metrics      *metrics.Metrics
	now          func() time.Time
}

func NewOutcomeRecorder(
	tests repository.TestRepository,
	sessions repository.SessionRepository,
	answers repository.AnswerRepository,
	states *cache.SessionStateStore,
	applications ApplicationWorkflow,
	eligibility EligibilityService,
	m *metrics.Metrics,
) OutcomeRecorder {
	return newOutcomeRecorder(tests, sessions, answers, states, applications, eligibility, m)
}

func newOutcomeRecorder(
	tests repository.TestRepository,
	sessions repository.SessionRepository,
	answers repository.AnswerRepository,
	states *cache.SessionStateStore,
	applications ApplicationWorkflow,
	eligibility EligibilityService,
	m *metrics.Metrics,
) *outcomeRecorder {
	return &outcomeRecorder{
		tests:        tests,
		sessions:     sessions,
		answers:      answers,
		states:       states,
		applications: applications,
		eligibility:  eligibility,
		metrics:      m,
		now:          time.Now,
	}
}

// ComputeScore returns the percentage score for correct answers out of
// total. correct is clamped to [0, total]; a test with no questions scores 0.
func ComputeScore(correct, total int) (float64, int) {
	if total <= 0 {
		return 0, 0
	}
	if correct < 0 {
		correct = 0
	}
	if correct > total {
		correct = total
	}
	return 100 * float64(correct) / float64(total), correct
}

func (r *outcomeRecorder) Finalize(ctx context.Context, session *model.AssessmentSession, isAutoSubmit bool) (*dto.OutcomeSummary, error) {
	if session.Status.Terminal() {
		return summaryFromSession(session), nil
	}
	if session.Status != model.SessionActive {
		return nil, apperror.ErrSessionNotActive
	}

	test, err := r.tests.FindByID(ctx, session.TestID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.ErrTestNotFound
	}
	if err != nil {
		return nil, apperror.Unavailable("load test definition", err)
	}

	correct, err := r.answers.CountCorrect(ctx, session.ID)
	if err != nil {
		return nil, apperror.Unavailable("count correct answers", err)
	}

	score, correct := ComputeScore(correct, session.TotalQuestions)
	status := model.SessionSubmitted
	if isAutoSubmit {
		status = model.SessionAutoSubmitted
	}
	outcome := model.SessionOutcome{
		Status:       status,
		Score:        score,
		CorrectCount: correct,
		Passed:       score >= test.PassingScore,
		SubmittedAt:  r.now(),
	}

	won, err := r.sessions.FinalizeIfActive(ctx, session.ID, outcome)
	if err != nil {
		log.Error().Err(err).Str("sessionID", session.ID).Msg("Finalize: terminal write failed")
		return nil, apperror.Unavailable("persist session outcome", err)
	}
	r.states.Delete(ctx, session.ID)

	if !won {
		// Someone else finalized first; report what they recorded.
		current, err := r.sessions.FindByID(ctx, session.ID)
		if err != nil {
			return nil, apperror.Unavailable("reload finalized session", err)
		}
		if !current.Status.Terminal() {
			return nil, apperror.ErrSessionNotActive
		}
		log.Info().Str("sessionID", session.ID).Msg("Finalize: session already terminal, returning recorded outcome")
		return summaryFromSession(current), nil
	}

	log.Info().
		Str("sessionID", session.ID).
		Uint("applicationID", session.ApplicationID).
		Float64("score", outcome.Score).
		Bool("passed", outcome.Passed).
		Bool("autoSubmit", isAutoSubmit).
		Msg("Session finalized")
	if r.metrics != nil {
		r.metrics.ObserveFinalized(isAutoSubmit, outcome.Passed)
	}

	r.recordSecondary(ctx, session, outcome)

	return &dto.OutcomeSummary{
		SessionID:     session.ID,
		Score:         outcome.Score,
		Passed:        outcome.Passed,
		CorrectCount:  outcome.CorrectCount,
		TotalCount:    session.TotalQuestions,
		AutoSubmitted: isAutoSubmit,
	}, nil
}

// recordSecondary moves the application and writes the skill attempt.
// Failures here never undo the recorded outcome.
func (r *outcomeRecorder) recordSecondary(ctx context.Context, session *model.AssessmentSession, outcome model.SessionOutcome) {
	if err := r.applications.SetApplicationOutcome(ctx, session.ApplicationID, outcome.Passed); err != nil {
		log.Error().Err(err).Str("sessionID", session.ID).Uint("applicationID", session.ApplicationID).Msg("Finalize: failed to update application status")
	}

	app, err := r.applications.GetApplication(ctx, session.ApplicationID)
	if err != nil {
		log.Error().Err(err).Str("sessionID", session.ID).Msg("Finalize: failed to load application for skill attempt")
		return
	}
	if app.Job.SkillBucketID == nil {
		return
	}
	if _, err := r.eligibility.RecordAttempt(ctx, session.CandidateID, *app.Job.SkillBucketID, outcome.Passed, outcome.Score, session.ID); err != nil {
		log.Error().Err(err).Str("sessionID", session.ID).Uint("skillBucketID", *app.Job.SkillBucketID).Msg("Finalize: failed to record skill attempt")
	}
}

func summaryFromSession(session *model.AssessmentSession) *dto.OutcomeSummary {
	summary := &dto.OutcomeSummary{
		SessionID:     session.ID,
		TotalCount:    session.TotalQuestions,
		AutoSubmitted: session.Status == model.SessionAutoSubmitted,
	}
	if session.Score != nil {
		summary.Score = *session.Score
	}
	if session.CorrectCount != nil {
		summary.CorrectCount = *session.CorrectCount
	}
	if session.Passed != nil {
		summary.Passed = *session.Passed
	}
	return summary
}
