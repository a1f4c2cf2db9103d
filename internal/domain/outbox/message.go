package outbox

import (
	"encoding/json"
	"time"

	"github.com/executive-war-room/internal/domain/activity"
	"github.com/executive-war-room/internal/domain/shared"
)

// Message stores an activity for reliable publishing. It is written in the
// same atomic unit as the event mutation it describes.
type Message struct {
	ID            int64               `json:"id"`
	ActivityID    string              `json:"activity_id"`
	EventID       string              `json:"event_id"`
	Payload       json.RawMessage     `json:"payload"`
	Status        shared.OutboxStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	CreatedAt     time.Time           `json:"created_at"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
}

func NewMessage(a *activity.Activity) (*Message, error) {
	payload, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}

	return &Message{
		ActivityID: a.ID,
		EventID:    a.EventID,
		Payload:    payload,
		Status:     shared.OutboxStatusPending,
		Attempts:   0,
		CreatedAt:  a.OccurredAt,
	}, nil
}

func (m *Message) IncrementAttempts() {
	m.Attempts++
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsProcessed() {
	m.Status = shared.OutboxStatusProcessed
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsFailed() {
	m.Status = shared.OutboxStatusFailedToPublish
	now := time.Now()
	m.LastAttemptAt = &now
}

// SetStatus records a publishing outcome
func (m *Message) SetStatus(status shared.OutboxStatus) {
	switch status {
	case shared.OutboxStatusProcessed:
		m.MarkAsProcessed()
	case shared.OutboxStatusFailedToPublish:
		m.MarkAsFailed()
	default:
		m.Status = status
		now := time.Now()
		m.LastAttemptAt = &now
	}
}

// GetActivity extracts the activity from the payload
func (m *Message) GetActivity() (*activity.Activity, error) {
	var a activity.Activity
	if err := json.Unmarshal(m.Payload, &a); err != nil {
		return nil, err
	}
	return &a, nil
}
