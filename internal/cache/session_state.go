package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
)

const sessionKeyPrefix = "assessment:session:"

// EphemeralState is the hot working state of an active session. It mirrors
// the durable row and is keyed by session id.
type EphemeralState struct {
	CandidateID    uint   `json:"candidate_id"`
	ApplicationID  uint   `json:"application_id"`
	TestID         uint   `json:"test_id"`
	DeadlineMillis int64  `json:"deadline_ms"`
	QuestionOrder  []uint `json:"question_order"`
	ViolationCount int    `json:"violation_count"`
	ViolationLimit int    `json:"violation_limit"`
}

func (s *EphemeralState) Deadline() time.Time {
	return time.UnixMilli(s.DeadlineMillis)
}

// HasLimit reports whether violations can force a submission. A limit of
// zero or less disables it.
func (s *EphemeralState) HasLimit() bool {
	return s.ViolationLimit > 0
}

// SessionStateStore stores EphemeralState values in a DualStore.
type SessionStateStore struct {
	store *DualStore
}

func NewSessionStateStore(store *DualStore) *SessionStateStore {
	return &SessionStateStore{store: store}
}

func SessionKey(sessionID string) string {
	return sessionKeyPrefix + sessionID
}

func (s *SessionStateStore) Save(ctx context.Context, sessionID string, state *EphemeralState, ttl time.Duration) {
	payload, err := json.Marshal(state)
	if err != nil {
		log.Error().Err(err).Str("sessionID", sessionID).Msg("Failed to encode session state")
		return
	}
	s.store.Put(ctx, SessionKey(sessionID), payload, ttl)
}

// Load reports false when the state is missing, expired or unreadable.
func (s *SessionStateStore) Load(ctx context.Context, sessionID string) (*EphemeralState, bool) {
	payload, ok := s.store.Get(ctx, SessionKey(sessionID))
	if !ok {
		return nil, false
	}
	var state EphemeralState
	if err := json.Unmarshal(payload, &state); err != nil {
		log.Error().Err(err).Str("sessionID", sessionID).Msg("Discarding undecodable session state")
		return nil, false
	}
	return &state, true
}

func (s *SessionStateStore) Delete(ctx context.Context, sessionID string) {
	s.store.Delete(ctx, SessionKey(sessionID))
}
