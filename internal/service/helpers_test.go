package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/lshigami/skillcheck/internal/cache"
	"github.com/lshigami/skillcheck/internal/dto"
	"github.com/lshigami/skillcheck/internal/metrics"
	"github.com/lshigami/skillcheck/internal/model"
	"github.com/lshigami/skillcheck/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testCandidateID uint = 42

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	db          *gorm.DB
	clock       *testClock
	metrics     *metrics.Metrics
	store       *cache.DualStore
	states      *cache.SessionStateStore
	eligibility *eligibilityService
	outcomes    *outcomeRecorder
	svc         *sessionService
	sessions    repository.SessionRepository
	answers     repository.AnswerRepository
}

func newTestDB(t *testing.T) *gorm.DB {
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

// newMiniredisClient returns a client bound to a fresh miniredis server.
func newMiniredisClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

// newUnreachableClient points at a port nothing listens on.
func newUnreachableClient(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 50 * time.Millisecond,
		ReadTimeout: 50 * time.Millisecond,
	})
	t.Cleanup(func() { client.Close() })
	return client
}

func newTestEnv(t *testing.T, client *redis.Client) *testEnv {
	t.Helper()
	db := newTestDB(t)
	clock := newTestClock()
	m := metrics.NewMetrics()

	store := cache.NewDualStore(client, cache.WithObserver(m))
	states := cache.NewSessionStateStore(store)

	tests := repository.NewTestRepository(db)
	sessions := repository.NewSessionRepository(db)
	answers := repository.NewAnswerRepository(db)
	events := repository.NewEventRepository(db)

	applications := NewApplicationWorkflow(repository.NewApplicationRepository(db))
	eligibility := newEligibilityService(repository.NewSkillAttemptRepository(db), 180*24*time.Hour, 72*time.Hour)
	eligibility.now = clock.Now

	outcomes := newOutcomeRecorder(tests, sessions, answers, states, applications, eligibility, m)
	outcomes.now = clock.Now

	svc := newSessionService(applications, eligibility, tests, sessions, answers, events, states, outcomes, m)
	svc.now = clock.Now
	svc.rng = rand.New(rand.NewPCG(1, 2))

	return &testEnv{
		db:          db,
		clock:       clock,
		metrics:     m,
		store:       store,
		states:      states,
		eligibility: eligibility,
		outcomes:    outcomes,
		svc:         svc,
		sessions:    sessions,
		answers:     answers,
	}
}

type fixtureOpts struct {
	questions     int
	duration      int
	passingScore  float64
	maxViolations int
	shuffle       bool
	withBucket    bool
}

func defaultFixture() fixtureOpts {
	return fixtureOpts{questions: 5, duration: 30, passingScore: 70, maxViolations: 2, withBucket: true}
}

type fixture struct {
	test        *model.TestDefinition
	application *model.Application
	bucketID    uint
}

// correctOption is the right answer for question i of a seeded test.
func correctOption(i int) int { return i % 4 }

func seedFixture(t *testing.T, env *testEnv, opts fixtureOpts) *fixture {
	t.Helper()
	ctx := context.Background()

	test := &model.TestDefinition{
		Title:            "Go Fundamentals",
		DurationMinutes:  opts.duration,
		PassingScore:     opts.passingScore,
		TotalQuestions:   opts.questions,
		ShuffleQuestions: opts.shuffle,
		MaxViolations:    opts.maxViolations,
	}
	for i := 0; i < opts.questions; i++ {
		test.Questions = append(test.Questions, model.Question{
			Text:          fmt.Sprintf("Question %d", i+1),
			Options:       []string{"A", "B", "C", "D"},
			CorrectOption: correctOption(i),
			Points:        1,
			DisplayOrder:  i + 1,
		})
	}
	require.NoError(t, repository.NewTestRepository(env.db).Create(ctx, test))

	f := &fixture{test: test}
	job := &model.Job{Title: "Backend Engineer"}
	if opts.withBucket {
		bucket := &model.SkillBucket{Name: "go-" + uuid.NewString()}
		require.NoError(t, env.db.Create(bucket).Error)
		job.SkillBucketID = &bucket.ID
		f.bucketID = bucket.ID
	}
	require.NoError(t, env.db.Create(job).Error)

	f.application = seedApplication(t, env, job.ID, test.ID, testCandidateID)
	return f
}

func seedApplication(t *testing.T, env *testEnv, jobID, testID, candidateID uint) *model.Application {
	t.Helper()
	app := &model.Application{
		CandidateID: candidateID,
		JobID:       jobID,
		TestID:      &testID,
		Status:      model.ApplicationTestAssigned,
	}
	require.NoError(t, env.db.Create(app).Error)
	return app
}

// answerQuestions answers the first `correct` questions right and the rest
// wrong.
func answerQuestions(t *testing.T, env *testEnv, sessionID string, f *fixture, correct int) {
	t.Helper()
	for i, q := range f.test.Questions {
		option := correctOption(i)
		if i >= correct {
			option = (option + 1) % 4
		}
		_, err := env.svc.SubmitAnswer(context.Background(), sessionID, testCandidateID, q.ID, option)
		require.NoError(t, err)
	}
}

func loadSession(t *testing.T, env *testEnv, id string) *model.AssessmentSession {
	t.Helper()
	row, err := env.sessions.FindByID(context.Background(), id)
	require.NoError(t, err)
	return row
}

func questionIDs(view *dto.SessionView) []uint {
	ids := make([]uint, 0, len(view.Questions))
	for _, q := range view.Questions {
		ids = append(ids, q.ID)
	}
	return ids
}

func fixtureQuestionIDs(f *fixture) []uint {
	ids := make([]uint, 0, len(f.test.Questions))
	for _, q := range f.test.Questions {
		ids = append(ids, q.ID)
	}
	return ids
}
