package model

import (
	"time"
)

type ApplicationStatus string

const (
	ApplicationApplied        ApplicationStatus = "APPLIED"
	ApplicationTestAssigned   ApplicationStatus = "TEST_ASSIGNED"
	ApplicationTestInProgress ApplicationStatus = "TEST_IN_PROGRESS"
	ApplicationAwaitingReview ApplicationStatus = "AWAITING_REVIEW"
	ApplicationRejected       ApplicationStatus = "REJECTED"
)

type Job struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	Title         string    `json:"title" gorm:"not null"`
	SkillBucketID *uint     `json:"skill_bucket_id,omitempty" gorm:"index"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Application links a candidate to a job and, once assigned, to the test
// they must take.
type Application struct {
	ID          uint              `gorm:"primarykey" json:"id"`
	CandidateID uint              `json:"candidate_id" gorm:"not null;index"`
	JobID       uint              `json:"job_id" gorm:"not null;index"`
	Job         Job               `json:"job,omitempty" gorm:"foreignKey:JobID"`
	TestID      *uint             `json:"test_id,omitempty"`
	Status      ApplicationStatus `json:"status" gorm:"type:varchar(32);not null"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}
