package ingest

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"dealflow/internal/logger"
	"dealflow/internal/queue"
	"dealflow/internal/store"
	pkgerrors "dealflow/pkg/errors"
	"dealflow/pkg/logging"
	"dealflow/pkg/metrics"
)

// Service accepts raw deal texts, persists them, and hands them to the
// queue.
type Service interface {
	Ingest(ctx context.Context, req IngestRequest) (*IngestResponse, error)
	ListMessages(ctx context.Context, status store.MessageStatus, limit int) ([]store.MessageRecord, error)
	GetMessage(ctx context.Context, id string) (*MessageDetail, error)
}

type service struct {
	store  *store.Store
	queue  queue.Queue
	logger logger.Logger
}

func NewService(st *store.Store, q queue.Queue, log logger.Logger) Service {
	return &service{store: st, queue: q, logger: log}
}

// Ingest writes the record before the enqueue, so a crash in between leaves
// a pending row an operator can re-enqueue, never a queue item without a
// record.
func (s *service) Ingest(ctx context.Context, req IngestRequest) (*IngestResponse, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, pkgerrors.ErrValidation.WithMessage("text must not be empty")
	}
	externalID := strings.TrimSpace(req.ExternalID)
	if externalID == "" {
		externalID = uuid.New().String()
	}

	sess, err := s.store.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	msg := &store.MessageRecord{
		ExternalID: externalID,
		RawText:    text,
	}
	if err := sess.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}

	ctx = logging.WithMessageID(ctx, msg.ID)
	ctx = logging.WithExternalID(ctx, externalID)

	item := queue.Item{
		ExternalID: externalID,
		Text:       text,
		MessageID:  msg.ID,
	}
	if err := s.queue.Enqueue(ctx, item); err != nil {
		s.logger.ErrorwCtx(ctx, "Failed to enqueue ingested message", "error", err)
		return nil, err
	}

	metrics.MessagesIngestedTotal.Inc()
	s.logger.InfowCtx(ctx, "Message ingested")

	return &IngestResponse{
		MessageID:  msg.ID,
		ExternalID: externalID,
		Status:     string(msg.Status),
	}, nil
}

func (s *service) ListMessages(ctx context.Context, status store.MessageStatus, limit int) ([]store.MessageRecord, error) {
	sess, err := s.store.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	return sess.ListMessages(ctx, status, limit)
}

// GetMessage returns the record and, when processing completed, the deal
// that came out of it.
func (s *service) GetMessage(ctx context.Context, id string) (*MessageDetail, error) {
	sess, err := s.store.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	msg, err := sess.GetMessage(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &MessageDetail{Message: msg}
	if msg.Status == store.StatusCompleted {
		deal, err := sess.GetDealByMessage(ctx, msg.ID)
		if err != nil && !pkgerrors.IsNotFound(err) {
			return nil, err
		}
		detail.Deal = deal
	}
	return detail, nil
}
