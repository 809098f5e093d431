package dto

// QuestionView is a question as shown to a candidate, without its answer.
type QuestionView struct {
	ID      uint     `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
	Points  float64  `json:"points"`
}

type PriorAnswer struct {
	QuestionID     uint `json:"question_id"`
	SelectedOption int  `json:"selected_option"`
}

// SessionView is returned by start and by every session read.
type SessionView struct {
	SessionID        string         `json:"session_id"`
	TestTitle        string         `json:"test_title"`
	DurationMinutes  int            `json:"duration_minutes"`
	TotalQuestions   int            `json:"total_questions"`
	RemainingSeconds int64          `json:"remaining_seconds"`
	Questions        []QuestionView `json:"questions"`
	Answers          []PriorAnswer  `json:"answers"`
	ViolationCount   int            `json:"violation_count"`
	ViolationLimit   int            `json:"violation_limit"`
	Resumed          bool           `json:"resumed,omitempty"`
}

type AnswerAccepted struct {
	Accepted bool `json:"accepted"`
}

// EventResult reports what an event did to the session.
// RemainingViolationAllowance is only set for counted violations when the
// test has a limit.
type EventResult struct {
	Accepted                    bool            `json:"accepted"`
	AutoSubmitted               bool            `json:"auto_submitted"`
	RemainingViolationAllowance *int            `json:"remaining_violation_allowance,omitempty"`
	Message                     string          `json:"message,omitempty"`
	Outcome                     *OutcomeSummary `json:"outcome,omitempty"`
}

type OutcomeSummary struct {
	SessionID     string  `json:"session_id"`
	Score         float64 `json:"score"`
	Passed        bool    `json:"passed"`
	CorrectCount  int     `json:"correct_count"`
	TotalCount    int     `json:"total_count"`
	AutoSubmitted bool    `json:"auto_submitted"`
}

// SkillStatus is the eligibility decision for a candidate and skill bucket.
type SkillStatus struct {
	IsPassed           bool `json:"is_passed"`
	IsValid            bool `json:"is_valid"`
	ValidDaysRemaining int  `json:"valid_days_remaining"`
	IsFailed           bool `json:"is_failed"`
	CanRetest          bool `json:"can_retest"`
	RetestInHours      int  `json:"retest_in_hours"`
}

type ErrorResponse struct {
	Message string   `json:"message"`
	Code    string   `json:"code,omitempty"`
	Details []string `json:"details,omitempty"`
}
