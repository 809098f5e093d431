package service

import (
	"context"
	"fmt"

	"github.com/lshigami/skillcheck/internal/model"
	"github.com/lshigami/skillcheck/internal/repository"
	"github.com/rs/zerolog/log"
)

// ApplicationWorkflow is the part of the hiring workflow the session engine
// drives: reading an application and moving it along after the test.
type ApplicationWorkflow interface {
	GetApplication(ctx context.Context, applicationID uint) (*model.Application, error)
	MarkTestStarted(ctx context.Context, applicationID uint) error
	SetApplicationOutcome(ctx context.Context, applicationID uint, passed bool) error
}

type applicationWorkflow struct {
	applications repository.ApplicationRepository
}

func NewApplicationWorkflow(applications repository.ApplicationRepository) ApplicationWorkflow {
	return &applicationWorkflow{applications: applications}
}

// GetApplication returns repository errors unwrapped so callers can test
// for gorm.ErrRecordNotFound.
func (w *applicationWorkflow) GetApplication(ctx context.Context, applicationID uint) (*model.Application, error) {
	return w.applications.FindByID(ctx, applicationID)
}

func (w *applicationWorkflow) MarkTestStarted(ctx context.Context, applicationID uint) error {
	if err := w.applications.UpdateStatus(ctx, applicationID, model.ApplicationTestInProgress); err != nil {
		return fmt.Errorf("mark application %d test started: %w", applicationID, err)
	}
	return nil
}

func (w *applicationWorkflow) SetApplicationOutcome(ctx context.Context, applicationID uint, passed bool) error {
	status := model.ApplicationRejected
	if passed {
		status = model.ApplicationAwaitingReview
	}
	if err := w.applications.UpdateStatus(ctx, applicationID, status); err != nil {
		return fmt.Errorf("set application %d outcome: %w", applicationID, err)
	}
	log.Info().Uint("applicationID", applicationID).Str("status", string(status)).Msg("Application moved after assessment")
	return nil
}

// Eligible reports whether an application may start its test.
func Eligible(app *model.Application) bool {
	return app.Status == model.ApplicationTestAssigned
}
