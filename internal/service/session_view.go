package service

import (
	"context"
	"time"

	"github.com/jinzhu/copier"
	"github.com/lshigami/skillcheck/internal/apperror"
	"github.com/lshigami/skillcheck/internal/cache"
	"github.com/lshigami/skillcheck/internal/dto"
	"github.com/lshigami/skillcheck/internal/model"
	"github.com/rs/zerolog/log"
)

// view assembles what the candidate sees. Questions follow the order stored
// at start; correct options are never included.
func (s *sessionService) view(ctx context.Context, session *model.AssessmentSession, test *model.TestDefinition, state *cache.EphemeralState, now time.Time) (*dto.SessionView, error) {
	answers, err := s.answers.FindBySession(ctx, session.ID)
	if err != nil {
		return nil, apperror.Unavailable("load answers", err)
	}

	remaining := int64(state.Deadline().Sub(now) / time.Second)
	if remaining < 0 {
		remaining = 0
	}

	resp := &dto.SessionView{
		SessionID:        session.ID,
		TestTitle:        test.Title,
		DurationMinutes:  test.DurationMinutes,
		TotalQuestions:   session.TotalQuestions,
		RemainingSeconds: remaining,
		Questions:        orderedQuestions(test.Questions, state.QuestionOrder),
		Answers:          make([]dto.PriorAnswer, 0, len(answers)),
		ViolationCount:   state.ViolationCount,
		ViolationLimit:   state.ViolationLimit,
	}
	for _, a := range answers {
		resp.Answers = append(resp.Answers, dto.PriorAnswer{QuestionID: a.QuestionID, SelectedOption: a.SelectedOption})
	}
	return resp, nil
}

func orderedQuestions(questions []model.Question, order []uint) []dto.QuestionView {
	byID := make(map[uint]*model.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}

	views := make([]dto.QuestionView, 0, len(order))
	for _, id := range order {
		q, ok := byID[id]
		if !ok {
			// Question removed after the session started.
			continue
		}
		var qv dto.QuestionView
		if err := copier.Copy(&qv, q); err != nil {
			log.Error().Err(err).Uint("questionID", q.ID).Msg("Failed to copy question to view")
			continue
		}
		qv.Options = append([]string(nil), q.Options...)
		views = append(views, qv)
	}
	return views
}
