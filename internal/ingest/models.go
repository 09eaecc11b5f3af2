package ingest

import "dealflow/internal/store"

// IngestRequest is the intake payload. ExternalID ties the message back to
// the upstream channel; when absent one is generated, so replays of the same
// upstream message create independent records.
type IngestRequest struct {
	ExternalID string `json:"external_id"`
	Text       string `json:"text" binding:"required"`
}

type IngestResponse struct {
	MessageID  string `json:"message_id"`
	ExternalID string `json:"external_id"`
	Status     string `json:"status"`
}

type MessageDetail struct {
	Message *store.MessageRecord `json:"message"`
	Deal    *store.DealRecord    `json:"deal,omitempty"`
}
