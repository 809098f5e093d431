package repository

import (
	"context"

	"github.com/lshigami/skillcheck/internal/model"
	"gorm.io/gorm"
)

type ApplicationRepository interface {
	FindByID(ctx context.Context, id uint) (*model.Application, error)
	UpdateStatus(ctx context.Context, id uint, status model.ApplicationStatus) error
}

type applicationRepository struct {
	db *gorm.DB
}

func NewApplicationRepository(db *gorm.DB) ApplicationRepository {
	return &applicationRepository{db: db}
}

func (r *applicationRepository) FindByID(ctx context.Context, id uint) (*model.Application, error) {
	var app model.Application
	if err := r.db.WithContext(ctx).Preload("Job").First(&app, id).Error; err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *applicationRepository) UpdateStatus(ctx context.Context, id uint, status model.ApplicationStatus) error {
	result := r.db.WithContext(ctx).
		Model(&model.Application{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
