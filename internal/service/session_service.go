package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lshigami/skillcheck/config"
	"github.com/lshigami/skillcheck/internal/apperror"
	"github.com/lshigami/skillcheck/internal/cache"
	"github.com/lshigami/skillcheck/internal/dto"
	"github.com/lshigami/skillcheck/internal/metrics"
	"github.com/lshigami/skillcheck/internal/model"
	"github.com/lshigami/skillcheck/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	MsgViolationAutoSubmit = "auto-submitted due to excessive tab switches"
	defaultStateGrace      = 5 * time.Minute
)

// maxEventTypeLen is the width of session_events.event_type.
const maxEventTypeLen = 32

// SessionService runs the timed assessment state machine:
// NOT_STARTED -> ACTIVE -> SUBMITTED | AUTO_SUBMITTED.
//
// Expiry is lazy. A session past its deadline is auto-submitted the next
// time any operation touches it; nothing sweeps untouched sessions.
//
// Concurrent requests for the same session are not serialized. The
// violation counter is a read-modify-write of the whole ephemeral state, so
// two simultaneous TAB_SWITCH events can lose an increment.
type SessionService interface {
	Start(ctx context.Context, applicationID, candidateID uint) (*dto.SessionView, error)
	GetSession(ctx context.Context, sessionID string, candidateID uint) (*dto.SessionView, error)
	SubmitAnswer(ctx context.Context, sessionID string, candidateID, questionID uint, selectedOption int) (*dto.AnswerAccepted, error)
	LogEvent(ctx context.Context, sessionID string, candidateID uint, eventType string, eventData []byte) (*dto.EventResult, error)
	SubmitTest(ctx context.Context, sessionID string, candidateID uint) (*dto.OutcomeSummary, error)
	AutoSubmit(ctx context.Context, sessionID string) (*dto.OutcomeSummary, error)
}

type sessionService struct {
	applications ApplicationWorkflow
	eligibility  EligibilityService
	tests        repository.TestRepository
	sessions     repository.SessionRepository
	answers      repository.AnswerRepository
	events       repository.EventRepository
	states       *cache.SessionStateStore
	outcomes     OutcomeRecorder
	metrics      *metrics.Metrics
	stateGrace   time.Duration
	now          func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewSessionService(
	applications ApplicationWorkflow,
	eligibility EligibilityService,
	tests repository.TestRepository,
	sessions repository.SessionRepository,
	answers repository.AnswerRepository,
	events repository.EventRepository,
	states *cache.SessionStateStore,
	outcomes OutcomeRecorder,
	m *metrics.Metrics,
	cfg *config.Config,
) SessionService {
	s := newSessionService(applications, eligibility, tests, sessions, answers, events, states, outcomes, m)
	if cfg.Assessment.StateGrace > 0 {
		s.stateGrace = cfg.Assessment.StateGrace
	}
	return s
}

func newSessionService(
	applications ApplicationWorkflow,
	eligibility EligibilityService,
	tests repository.TestRepository,
	sessions repository.SessionRepository,
	answers repository.AnswerRepository,
	events repository.EventRepository,
	states *cache.SessionStateStore,
	outcomes OutcomeRecorder,
	m *metrics.Metrics,
) *sessionService {
	return &sessionService{
		applications: applications,
		eligibility:  eligibility,
		tests:        tests,
		sessions:     sessions,
		answers:      answers,
		events:       events,
		states:       states,
		outcomes:     outcomes,
		metrics:      m,
		stateGrace:   defaultStateGrace,
		now:          time.Now,
		rng:          rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

func (s *sessionService) Start(ctx context.Context, applicationID, candidateID uint) (*dto.SessionView, error) {
	app, err := s.applications.GetApplication(ctx, applicationID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.ErrApplicationNotFound
	}
	if err != nil {
		return nil, apperror.Unavailable("load application", err)
	}
	if app.CandidateID != candidateID {
		log.Warn().Uint("applicationID", applicationID).Uint("candidateID", candidateID).Msg("Start: candidate does not own application")
		return nil, apperror.ErrApplicationForbidden
	}
	if app.TestID == nil {
		return nil, apperror.ErrNoTestAssigned
	}

	open, err := s.sessions.FindOpenByApplication(ctx, applicationID)
	switch {
	case err == nil:
		return s.resume(ctx, open)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, apperror.Unavailable("find open session", err)
	}

	if _, err := s.sessions.FindLatestByApplication(ctx, applicationID); err == nil {
		return nil, apperror.ErrAlreadyAttempted
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.Unavailable("find previous session", err)
	}

	if !Eligible(app) {
		log.Info().Uint("applicationID", applicationID).Str("status", string(app.Status)).Msg("Start: application not eligible")
		return nil, apperror.ErrNotEligible
	}
	if err := s.checkSkill(ctx, app); err != nil {
		return nil, err
	}

	test, err := s.tests.FindByIDWithQuestions(ctx, *app.TestID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.ErrTestNotFound
	}
	if err != nil {
		return nil, apperror.Unavailable("load test definition", err)
	}

	now := s.now()
	deadline := now.Add(test.Duration()).Truncate(time.Millisecond)
	session := &model.AssessmentSession{
		ID:             uuid.NewString(),
		ApplicationID:  app.ID,
		CandidateID:    candidateID,
		TestID:         test.ID,
		Status:         model.SessionActive,
		StartedAt:      now,
		Deadline:       deadline,
		TotalQuestions: len(test.Questions),
		QuestionOrder:  datatypes.JSONSlice[uint](s.order(test.Questions, test.ShuffleQuestions)),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// A concurrent start won the unique index on open sessions.
			return nil, apperror.ErrAlreadyAttempted
		}
		log.Error().Err(err).Uint("applicationID", applicationID).Msg("Start: failed to create session")
		return nil, apperror.Unavailable("create session", err)
	}

	state := &cache.EphemeralState{
		CandidateID:    candidateID,
		ApplicationID:  app.ID,
		TestID:         test.ID,
		DeadlineMillis: deadline.UnixMilli(),
		QuestionOrder:  []uint(session.QuestionOrder),
		ViolationLimit: test.MaxViolations,
	}
	s.states.Save(ctx, session.ID, state, s.stateTTL(now, deadline))

	if err := s.applications.MarkTestStarted(ctx, app.ID); err != nil {
		log.Error().Err(err).Uint("applicationID", app.ID).Msg("Start: failed to mark application in progress")
	}
	if s.metrics != nil {
		s.metrics.SessionsStarted.Inc()
	}
	log.Info().
		Str("sessionID", session.ID).
		Uint("applicationID", app.ID).
		Uint("testID", test.ID).
		Time("deadline", deadline).
		Msg("Assessment session started")

	return s.view(ctx, session, test, state, now)
}

// resume handles a start call for an application that already has an open
// session.
func (s *sessionService) resume(ctx context.Context, open *model.AssessmentSession) (*dto.SessionView, error) {
	if open.Status != model.SessionActive {
		return nil, apperror.ErrAlreadyAttempted
	}
	now := s.now()
	if open.Expired(now) {
		if _, err := s.outcomes.Finalize(ctx, open, true); err != nil {
			return nil, err
		}
		return nil, apperror.ErrAlreadyAttempted
	}

	test, err := s.tests.FindByIDWithQuestions(ctx, open.TestID)
	if err != nil {
		return nil, apperror.Unavailable("load test definition", err)
	}

	state, ok := s.states.Load(ctx, open.ID)
	if !ok {
		// The row is active and in time but its hot state is gone (lost
		// cache and process restart). Rebuild it from durable records;
		// the violation count comes from the audit trail.
		state, err = s.rehydrate(ctx, open, test, now)
		if err != nil {
			return nil, err
		}
	}

	if s.metrics != nil {
		s.metrics.SessionsResumed.Inc()
	}
	log.Info().Str("sessionID", open.ID).Uint("applicationID", open.ApplicationID).Msg("Start: resuming active session")

	view, err := s.view(ctx, open, test, state, now)
	if err != nil {
		return nil, err
	}
	view.Resumed = true
	return view, nil
}

func (s *sessionService) rehydrate(ctx context.Context, session *model.AssessmentSession, test *model.TestDefinition, now time.Time) (*cache.EphemeralState, error) {
	violations, err := s.events.CountBySessionAndType(ctx, session.ID, model.EventTabSwitch)
	if err != nil {
		return nil, apperror.Unavailable("count violations", err)
	}
	state := &cache.EphemeralState{
		CandidateID:    session.CandidateID,
		ApplicationID:  session.ApplicationID,
		TestID:         session.TestID,
		DeadlineMillis: session.Deadline.UnixMilli(),
		QuestionOrder:  []uint(session.QuestionOrder),
		ViolationCount: violations,
		ViolationLimit: test.MaxViolations,
	}
	s.states.Save(ctx, session.ID, state, s.stateTTL(now, session.Deadline))
	log.Warn().Str("sessionID", session.ID).Int("violations", violations).Msg("Rebuilt missing session state from durable records")
	return state, nil
}

func (s *sessionService) checkSkill(ctx context.Context, app *model.Application) error {
	if app.Job.SkillBucketID == nil {
		return nil
	}
	status, err := s.eligibility.CheckSkillStatus(ctx, app.CandidateID, *app.Job.SkillBucketID)
	if err != nil {
		return apperror.Unavailable("check skill status", err)
	}
	if status.IsPassed && status.IsValid {
		return apperror.ErrSkillAlreadyVerified.With(fmt.Errorf("valid for %d more days", status.ValidDaysRemaining))
	}
	if status.IsFailed && !status.CanRetest {
		return apperror.ErrRetestCooldown.With(fmt.Errorf("retest available in %d hours", status.RetestInHours))
	}
	return nil
}

func (s *sessionService) GetSession(ctx context.Context, sessionID string, candidateID uint) (*dto.SessionView, error) {
	active, err := s.touch(ctx, sessionID, candidateID)
	if err != nil {
		return nil, err
	}
	test, err := s.tests.FindByIDWithQuestions(ctx, active.row.TestID)
	if err != nil {
		return nil, apperror.Unavailable("load test definition", err)
	}
	return s.view(ctx, active.row, test, active.state, active.now)
}

func (s *sessionService) SubmitAnswer(ctx context.Context, sessionID string, candidateID, questionID uint, selectedOption int) (*dto.AnswerAccepted, error) {
	active, err := s.touch(ctx, sessionID, candidateID)
	if err != nil {
		return nil, err
	}
	test, err := s.tests.FindByIDWithQuestions(ctx, active.row.TestID)
	if err != nil {
		return nil, apperror.Unavailable("load test definition", err)
	}

	var question *model.Question
	for i := range test.Questions {
		if test.Questions[i].ID == questionID {
			question = &test.Questions[i]
			break
		}
	}
	if question == nil {
		return nil, apperror.ErrInvalidQuestion
	}
	if !question.ValidOption(selectedOption) {
		return nil, apperror.ErrInvalidOption
	}

	answer := &model.SessionAnswer{
		SessionID:      sessionID,
		QuestionID:     questionID,
		SelectedOption: selectedOption,
		IsCorrect:      selectedOption == question.CorrectOption,
		AnsweredAt:     active.now,
	}
	if err := s.answers.Upsert(ctx, answer); err != nil {
		log.Error().Err(err).Str("sessionID", sessionID).Uint("questionID", questionID).Msg("SubmitAnswer: failed to save answer")
		return nil, apperror.Unavailable("save answer", err)
	}
	return &dto.AnswerAccepted{Accepted: true}, nil
}

func (s *sessionService) LogEvent(ctx context.Context, sessionID string, candidateID uint, eventType string, eventData []byte) (*dto.EventResult, error) {
	row, err := s.loadRow(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if row.CandidateID != candidateID {
		return nil, apperror.ErrForbidden
	}

	// The audit row is written whatever happens to the session next, even
	// for event types the rules below do not understand.
	kind := model.EventType(truncate(eventType, maxEventTypeLen))
	event := &model.SessionEvent{
		SessionID:   sessionID,
		CandidateID: candidateID,
		EventType:   kind,
	}
	if len(eventData) > 0 {
		event.EventData = datatypes.JSON(eventData)
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, apperror.Unavailable("save session event", err)
	}
	if !kind.Known() {
		log.Info().Str("sessionID", sessionID).Str("eventType", string(kind)).Msg("Recorded unknown session event type")
		return nil, apperror.ErrInvalidEventType
	}

	active, err := s.touchRow(ctx, row, candidateID)
	if err != nil {
		return nil, err
	}
	if kind != model.EventTabSwitch {
		return &dto.EventResult{Accepted: true}, nil
	}

	state := active.state
	state.ViolationCount++
	if s.metrics != nil {
		s.metrics.Violations.Inc()
	}
	log.Warn().Str("sessionID", sessionID).Int("violations", state.ViolationCount).Int("limit", state.ViolationLimit).Msg("Tab switch recorded")

	if state.HasLimit() && state.ViolationCount >= state.ViolationLimit {
		outcome, err := s.outcomes.Finalize(ctx, active.row, true)
		if err != nil {
			return nil, err
		}
		return &dto.EventResult{
			Accepted:      true,
			AutoSubmitted: true,
			Message:       MsgViolationAutoSubmit,
			Outcome:       outcome,
		}, nil
	}

	s.states.Save(ctx, sessionID, state, s.stateTTL(active.now, state.Deadline()))

	result := &dto.EventResult{Accepted: true}
	if state.HasLimit() {
		remaining := state.ViolationLimit - state.ViolationCount
		result.RemainingViolationAllowance = &remaining
		result.Message = fmt.Sprintf("warning: %d more tab switches will submit the test", remaining)
	}
	return result, nil
}

func (s *sessionService) SubmitTest(ctx context.Context, sessionID string, candidateID uint) (*dto.OutcomeSummary, error) {
	row, err := s.loadRow(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if row.CandidateID != candidateID {
		return nil, apperror.ErrForbidden
	}
	if row.Status != model.SessionActive {
		return nil, apperror.ErrSessionNotActive
	}
	// Past the deadline the submission counts as automatic.
	return s.outcomes.Finalize(ctx, row, row.Expired(s.now()))
}

func (s *sessionService) AutoSubmit(ctx context.Context, sessionID string) (*dto.OutcomeSummary, error) {
	row, err := s.loadRow(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.outcomes.Finalize(ctx, row, true)
}

type activeSession struct {
	row   *model.AssessmentSession
	state *cache.EphemeralState
	now   time.Time
}

// touch loads the session for a candidate operation and enforces the
// deadline. An expired session is auto-submitted and ErrTimeExpired returned.
func (s *sessionService) touch(ctx context.Context, sessionID string, candidateID uint) (*activeSession, error) {
	state, ok := s.states.Load(ctx, sessionID)
	if !ok {
		return nil, s.missingState(ctx, sessionID, candidateID)
	}
	if state.CandidateID != candidateID {
		return nil, apperror.ErrForbidden
	}
	row, err := s.loadRow(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.checkActive(ctx, row, state)
}

// touchRow is touch for callers that already hold the durable row.
func (s *sessionService) touchRow(ctx context.Context, row *model.AssessmentSession, candidateID uint) (*activeSession, error) {
	state, ok := s.states.Load(ctx, row.ID)
	if !ok {
		return nil, s.missingState(ctx, row.ID, candidateID)
	}
	if state.CandidateID != candidateID {
		return nil, apperror.ErrForbidden
	}
	return s.checkActive(ctx, row, state)
}

func (s *sessionService) checkActive(ctx context.Context, row *model.AssessmentSession, state *cache.EphemeralState) (*activeSession, error) {
	if row.Status != model.SessionActive {
		s.states.Delete(ctx, row.ID)
		return nil, apperror.ErrSessionNotActive
	}
	now := s.now()
	if now.After(state.Deadline()) {
		if _, err := s.outcomes.Finalize(ctx, row, true); err != nil {
			log.Error().Err(err).Str("sessionID", row.ID).Msg("Auto-submit on expiry failed")
			return nil, err
		}
		return nil, apperror.ErrTimeExpired
	}
	return &activeSession{row: row, state: state, now: now}, nil
}

// missingState decides what a caller sees when the ephemeral state is gone.
// It is always reported as not found or expired; a row left ACTIVE past its
// deadline is finalized on the way.
func (s *sessionService) missingState(ctx context.Context, sessionID string, candidateID uint) error {
	row, err := s.sessions.FindByID(ctx, sessionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.ErrSessionNotFound
	}
	if err != nil {
		log.Error().Err(err).Str("sessionID", sessionID).Msg("Failed to check durable session after state miss")
		return apperror.Unavailable("load session", err)
	}
	if row.CandidateID != candidateID || row.Status != model.SessionActive || !row.Expired(s.now()) {
		return apperror.ErrSessionNotFound
	}
	if _, err := s.outcomes.Finalize(ctx, row, true); err != nil {
		return err
	}
	return apperror.ErrTimeExpired
}

func (s *sessionService) loadRow(ctx context.Context, sessionID string) (*model.AssessmentSession, error) {
	row, err := s.sessions.FindByID(ctx, sessionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.ErrSessionNotFound
	}
	if err != nil {
		return nil, apperror.Unavailable("load session", err)
	}
	return row, nil
}

// order fixes the presentation order as question ids, so questions added to
// or removed from the test later cannot shift what an open session shows.
func (s *sessionService) order(questions []model.Question, shuffle bool) []uint {
	s.rngMu.Lock()
	positions := questionOrder(len(questions), shuffle, s.rng)
	s.rngMu.Unlock()

	ids := make([]uint, len(positions))
	for i, pos := range positions {
		ids[i] = questions[pos].ID
	}
	return ids
}

func truncate(v string, n int) string {
	if len(v) > n {
		return v[:n]
	}
	return v
}

// stateTTL bounds ephemeral state by the deadline plus a grace period.
func (s *sessionService) stateTTL(now, deadline time.Time) time.Duration {
	ttl := deadline.Sub(now) + s.stateGrace
	if ttl < time.Second {
		ttl = time.Second
	}
	return ttl
}
