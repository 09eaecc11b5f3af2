package broker

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	EventDealCompleted       = "deal.completed"
	EventMessageDeadLettered = "message.dead_lettered"
)

// Event is one pipeline lifecycle notification published on the event
// stream. Downstream systems key on ExternalID.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	ExternalID string    `json:"external_id"`
	MessageID  string    `json:"message_id,omitempty"`
	PageURL    string    `json:"page_url,omitempty"`
	Error      string    `json:"error,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewEvent(eventType, externalID, messageID string) Event {
	return Event{
		ID:         uuid.New().String(),
		Type:       eventType,
		ExternalID: externalID,
		MessageID:  messageID,
		OccurredAt: time.Now().UTC(),
	}
}

type Producer interface {
	Publish(ctx context.Context, topic string, event Event) error
	Close() error
}
