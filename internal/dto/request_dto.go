package dto

import "encoding/json"

// SubmitAnswerRequest records or replaces the answer to one question.
type SubmitAnswerRequest struct {
	QuestionID     uint `json:"question_id" binding:"required"`
	SelectedOption *int `json:"selected_option" binding:"required"`
}

// LogEventRequest carries one proctoring event from the client.
type LogEventRequest struct {
	EventType string          `json:"event_type" binding:"required"`
	EventData json.RawMessage `json:"event_data,omitempty" swaggertype:"object"`
}
