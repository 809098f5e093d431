package model

import (
	"time"

	"gorm.io/datatypes"
)

type EventType string

const (
	EventTabSwitch      EventType = "TAB_SWITCH"
	EventWindowBlur     EventType = "WINDOW_BLUR"
	EventFullscreenExit EventType = "FULLSCREEN_EXIT"
	EventCopyPaste      EventType = "COPY_PASTE"
	EventContextMenu    EventType = "CONTEXT_MENU"
)

func (e EventType) Known() bool {
	switch e {
	case EventTabSwitch, EventWindowBlur, EventFullscreenExit, EventCopyPaste, EventContextMenu:
		return true
	}
	return false
}

// SessionEvent is an immutable proctoring audit row.
type SessionEvent struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	SessionID   string         `json:"session_id" gorm:"type:varchar(36);not null;index"`
	CandidateID uint           `json:"candidate_id" gorm:"not null"`
	EventType   EventType      `json:"event_type" gorm:"type:varchar(32);not null"`
	EventData   datatypes.JSON `json:"event_data,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

func (SessionEvent) TableName() string { return "session_events" }
