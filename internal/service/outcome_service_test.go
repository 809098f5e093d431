package service

import (
	"context"
	"sync"
	"testing"

	"github.com/lshigami/skillcheck/internal/apperror"
	"github.com/lshigami/skillcheck/internal/dto"
	"github.com/lshigami/skillcheck/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeScore(t *testing.T) {
	tests := []struct {
		name        string
		correct     int
		total       int
		wantScore   float64
		wantCorrect int
	}{
		{"all correct", 5, 5, 100, 5},
		{"partial", 4, 5, 80, 4},
		{"none", 0, 5, 0, 0},
		{"empty test", 0, 0, 0, 0},
		{"empty test with stray answers", 3, 0, 0, 0},
		{"more correct than served", 7, 5, 100, 5},
		{"negative", -2, 5, 0, 0},
		{"thirds", 1, 3, 100.0 / 3, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, correct := ComputeScore(tt.correct, tt.total)
			assert.InDelta(t, tt.wantScore, score, 1e-9)
			assert.Equal(t, tt.wantCorrect, correct)
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 100.0)
		})
	}
}

func TestOutcomeRecorder_PassingScoreIsInclusive(t *testing.T) {
	env := newTestEnv(t, nil)
	f := seedFixture(t, env, fixtureOpts{questions: 10, duration: 30, passingScore: 70, maxViolations: 3})
	ctx := context.Background()

	view, err := env.svc.Start(ctx, f.application.ID, testCandidateID)
	require.NoError(t, err)
	answerQuestions(t, env, view.SessionID, f, 7)

	outcome, err := env.outcomes.Finalize(ctx, loadSession(t, env, view.SessionID), false)
	require.NoError(t, err)
	assert.InDelta(t, 70.0, outcome.Score, 1e-9)
	assert.True(t, outcome.Passed)
}

func TestOutcomeRecorder_ConcurrentFinalizeWritesOnce(t *testing.T) {
	env := newTestEnv(t, nil)
	f := seedFixture(t, env, defaultFixture())
	ctx := context.Background()

	view, err := env.svc.Start(ctx, f.application.ID, testCandidateID)
	require.NoError(t, err)
	answerQuestions(t, env, view.SessionID, f, 2)

	// Every caller holds the same stale ACTIVE row.
	row := loadSession(t, env, view.SessionID)

	const callers = 5
	results := make([]*dto.OutcomeSummary, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			stale := *row
			results[i], errs[i] = env.outcomes.Finalize(ctx, &stale, i%2 == 0)
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.InDelta(t, 40.0, results[i].Score, 1e-9)
		assert.Equal(t, 2, results[i].CorrectCount)
	}

	var attempts int64
	require.NoError(t, env.db.Model(&model.SkillAttempt{}).Count(&attempts).Error)
	assert.EqualValues(t, 1, attempts)

	final := loadSession(t, env, view.SessionID)
	assert.True(t, final.Status.Terminal())
	for i := 0; i < callers; i++ {
		assert.Equal(t, final.Status == model.SessionAutoSubmitted, results[i].AutoSubmitted)
	}
}

func TestOutcomeRecorder_TerminalSessionReturnsStoredOutcome(t *testing.T) {
	env := newTestEnv(t, nil)
	f := seedFixture(t, env, defaultFixture())
	ctx := context.Background()

	view, err := env.svc.Start(ctx, f.application.ID, testCandidateID)
	require.NoError(t, err)
	answerQuestions(t, env, view.SessionID, f, 5)
	_, err = env.svc.SubmitTest(ctx, view.SessionID, testCandidateID)
	require.NoError(t, err)

	// Answers written behind the engine's back must not change the outcome.
	require.NoError(t, env.db.Model(&model.SessionAnswer{}).Where("session_id = ?", view.SessionID).Update("is_correct", false).Error)

	outcome, err := env.outcomes.Finalize(ctx, loadSession(t, env, view.SessionID), true)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, outcome.Score, 1e-9)
	assert.True(t, outcome.Passed)
	assert.False(t, outcome.AutoSubmitted)
}

func TestOutcomeRecorder_RejectsNotStarted(t *testing.T) {
	env := newTestEnv(t, nil)
	_, err := env.outcomes.Finalize(context.Background(), &model.AssessmentSession{ID: "pending", Status: model.SessionNotStarted}, true)
	assert.ErrorIs(t, err, apperror.ErrSessionNotActive)
}

func TestOutcomeRecorder_NoSkillBucketSkipsAttempt(t *testing.T) {
	env := newTestEnv(t, nil)
	f := seedFixture(t, env, fixtureOpts{questions: 2, duration: 10, passingScore: 50, maxViolations: 3})
	ctx := context.Background()

	view, err := env.svc.Start(ctx, f.application.ID, testCandidateID)
	require.NoError(t, err)
	outcome, err := env.svc.SubmitTest(ctx, view.SessionID, testCandidateID)
	require.NoError(t, err)
	assert.False(t, outcome.Passed)

	var attempts int64
	require.NoError(t, env.db.Model(&model.SkillAttempt{}).Count(&attempts).Error)
	assert.Zero(t, attempts)
}
