package chat

import (
	"dealflow/internal/extractor"
	"dealflow/internal/publisher"
)

type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message" binding:"required"`
}

// ChatResponse carries the reply text plus the structured payload for the
// intent that produced it; at most one of Deals, Schema, and Parse is set.
type ChatResponse struct {
	SessionID string                  `json:"session_id"`
	Intent    string                  `json:"intent"`
	Reply     string                  `json:"reply"`
	Deals     []publisher.DealSummary `json:"deals,omitempty"`
	Schema    *publisher.SchemaReport `json:"schema,omitempty"`
	Parse     *extractor.ParseResult  `json:"parse,omitempty"`
}
