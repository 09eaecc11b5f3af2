package extractor

import (
	"context"
	"time"

	"dealflow/internal/logger"
	pkgerrors "dealflow/pkg/errors"
	"dealflow/pkg/metrics"
)

// Service turns free text into a validated deal candidate using a single
// completion call at temperature 0.
type Service struct {
	client Client
	logger logger.Logger
}

func NewService(client Client, log logger.Logger) *Service {
	return &Service{
		client: client,
		logger: log,
	}
}

// Parse sends the text with the fixed system instruction and decodes the
// single JSON object expected back. An unusable model response yields an
// EXTRACTION_FAILED error, which is recoverable at the worker boundary.
// Validation errors do not fail the parse; they ride along on the result.
func (s *Service) Parse(ctx context.Context, text string) (*ParseResult, error) {
	start := time.Now()

	response, err := s.client.Complete(ctx, CompletionRequest{
		System: systemPrompt,
		Messages: []ChatMessage{
			{Role: RoleUser, Content: parseInstruction + text},
		},
		Temperature: 0,
	})
	metrics.ExtractionDuration.Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		return nil, pkgerrors.ErrExtraction.WithCause(err)
	}

	raw, err := decodeDeal(response)
	if err != nil {
		s.logger.WarnwCtx(ctx, "Model returned malformed deal response",
			"error", err,
		)
		return nil, pkgerrors.ErrExtraction.WithMessage("malformed response").WithCause(err)
	}

	result := validate(raw)
	result.Verification = buildVerification(result)

	if result.RequiresAttention() {
		s.logger.WarnwCtx(ctx, "Parsed deal has validation errors",
			"partner", result.Deal.PartnerName,
			"errors", result.Errors,
		)
	}

	return result, nil
}

// Converse runs a free-form exchange over the supplied conversation
// history at a higher temperature than Parse.
func (s *Service) Converse(ctx context.Context, history []ChatMessage) (string, error) {
	response, err := s.client.Complete(ctx, CompletionRequest{
		System:      systemPrompt,
		Messages:    history,
		Temperature: 0.7,
	})
	if err != nil {
		return "", pkgerrors.ErrExtraction.WithCause(err)
	}
	return response, nil
}
