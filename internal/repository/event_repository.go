package repository

import (
	"context"

	"github.com/lshigami/skillcheck/internal/model"
	"gorm.io/gorm"
)

type EventRepository interface {
	Create(ctx context.Context, event *model.SessionEvent) error
	CountBySessionAndType(ctx context.Context, sessionID string, eventType model.EventType) (int, error)
}

type eventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) Create(ctx context.Context, event *model.SessionEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *eventRepository) CountBySessionAndType(ctx context.Context, sessionID string, eventType model.EventType) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.SessionEvent{}).
		Where("session_id = ? AND event_type = ?", sessionID, eventType).
		Count(&count).Error
	return int(count), err
}
