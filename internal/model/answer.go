package model

import (
	"time"
)

// SessionAnswer is unique per (session, question); later submissions
// overwrite earlier ones.
type SessionAnswer struct {
	ID             uint      `gorm:"primarykey" json:"id"`
	SessionID      string    `json:"session_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_answers_session_question"`
	QuestionID     uint      `json:"question_id" gorm:"not null;uniqueIndex:idx_answers_session_question"`
	SelectedOption int       `json:"selected_option" gorm:"not null"`
	IsCorrect      bool      `json:"is_correct"`
	AnsweredAt     time.Time `json:"answered_at"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (SessionAnswer) TableName() string { return "session_answers" }
