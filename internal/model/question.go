package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Question struct {
	ID            uint                        `gorm:"primarykey" json:"id"`
	TestID        uint                        `json:"test_id" gorm:"not null;index"`
	Text          string                      `json:"text" gorm:"type:text;not null"`
	Options       datatypes.JSONSlice[string] `json:"options" gorm:"not null"`
	CorrectOption int                         `json:"-" gorm:"not null"`
	Points        float64                     `json:"points" gorm:"default:1"`
	DisplayOrder  int                         `json:"display_order" gorm:"not null"`
	CreatedAt     time.Time                   `json:"created_at"`
	UpdatedAt     time.Time                   `json:"updated_at"`
	DeletedAt     gorm.DeletedAt              `gorm:"index" json:"-"`
}

// ValidOption reports whether idx addresses one of the question's options.
func (q *Question) ValidOption(idx int) bool {
	return idx >= 0 && idx < len(q.Options)
}
