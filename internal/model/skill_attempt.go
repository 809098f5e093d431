package model

import (
	"time"
)

// SkillAttempt is append-only history. The latest row per (candidate,
// bucket) decides current eligibility.
type SkillAttempt struct {
	ID              uint       `gorm:"primarykey" json:"id"`
	CandidateID     uint       `json:"candidate_id" gorm:"not null;index:idx_skill_attempts_candidate_bucket"`
	SkillBucketID   uint       `json:"skill_bucket_id" gorm:"not null;index:idx_skill_attempts_candidate_bucket"`
	SessionID       string     `json:"session_id" gorm:"type:varchar(36)"`
	IsPassed        bool       `json:"is_passed"`
	Score           float64    `json:"score"`
	ValidUntil      *time.Time `json:"valid_until,omitempty"`
	RetestAllowedAt *time.Time `json:"retest_allowed_at,omitempty"`
	AttemptedAt     time.Time  `json:"attempted_at" gorm:"not null"`
	CreatedAt       time.Time  `json:"created_at"`
}

type SkillBucket struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Name      string    `json:"name" gorm:"not null;uniqueIndex"`
	CreatedAt time.Time `json:"created_at"`
}
