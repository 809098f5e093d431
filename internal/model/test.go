package model

import (
	"time"

	"gorm.io/gorm"
)

// TestDefinition is the blueprint of a timed multiple-choice test. It is
// authored elsewhere and only read by the session engine.
type TestDefinition struct {
	ID               uint           `gorm:"primarykey" json:"id"`
	Title            string         `json:"title" gorm:"not null"`
	Description      string         `json:"description,omitempty"`
	DurationMinutes  int            `json:"duration_minutes" gorm:"not null"`
	PassingScore     float64        `json:"passing_score" gorm:"not null"` // 0-100
	TotalQuestions   int            `json:"total_questions"`
	ShuffleQuestions bool           `json:"shuffle_questions" gorm:"default:false"`
	MaxViolations    int            `json:"max_violations" gorm:"default:3"` // <= 0 disables the limit
	Questions        []Question     `json:"questions,omitempty" gorm:"foreignKey:TestID"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

func (TestDefinition) TableName() string { return "test_definitions" }

func (t *TestDefinition) Duration() time.Duration {
	return time.Duration(t.DurationMinutes) * time.Minute
}
