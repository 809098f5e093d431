package model

import (
	"time"

	"gorm.io/datatypes"
)

type SessionStatus string

const (
	SessionNotStarted    SessionStatus = "NOT_STARTED"
	SessionActive        SessionStatus = "ACTIVE"
	SessionSubmitted     SessionStatus = "SUBMITTED"
	SessionAutoSubmitted SessionStatus = "AUTO_SUBMITTED"
)

func (s SessionStatus) Terminal() bool {
	return s == SessionSubmitted || s == SessionAutoSubmitted
}

// AssessmentSession is one candidate's timed attempt at a TestDefinition.
// The partial unique index keeps at most one non-terminal session per
// application.
type AssessmentSession struct {
	ID             string                    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ApplicationID  uint                      `json:"application_id" gorm:"not null;uniqueIndex:idx_sessions_open_application,where:status <> 'SUBMITTED' AND status <> 'AUTO_SUBMITTED'"`
	CandidateID    uint                      `json:"candidate_id" gorm:"not null;index"`
	TestID         uint                      `json:"test_id" gorm:"not null;index"`
	Test           TestDefinition            `json:"-" gorm:"foreignKey:TestID"`
	Status         SessionStatus             `json:"status" gorm:"type:varchar(20);not null;index"`
	StartedAt      time.Time                 `json:"started_at"`
	Deadline       time.Time                 `json:"deadline" gorm:"not null"`
	TotalQuestions int                       `json:"total_questions"`
	QuestionOrder  datatypes.JSONSlice[uint] `json:"question_order"`
	Score          *float64                  `json:"score,omitempty"`
	CorrectCount   *int                      `json:"correct_count,omitempty"`
	Passed         *bool                     `json:"passed,omitempty"`
	SubmittedAt    *time.Time                `json:"submitted_at,omitempty"`
	Answers        []SessionAnswer           `json:"answers,omitempty" gorm:"foreignKey:SessionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	CreatedAt      time.Time                 `json:"created_at"`
	UpdatedAt      time.Time                 `json:"updated_at"`
}

func (AssessmentSession) TableName() string { return "assessment_sessions" }

// Expired reports whether the deadline has passed at now.
func (s *AssessmentSession) Expired(now time.Time) bool {
	return now.After(s.Deadline)
}

// SessionOutcome is the terminal write applied exactly once per session.
type SessionOutcome struct {
	Status       SessionStatus
	Score        float64
	CorrectCount int
	Passed       bool
	SubmittedAt  time.Time
}
