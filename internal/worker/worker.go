package worker

import (
	"context"
	"time"

	"dealflow/internal/broker"
	"dealflow/internal/config"
	"dealflow/internal/extractor"
	"dealflow/internal/logger"
	"dealflow/internal/publisher"
	"dealflow/internal/queue"
	"dealflow/internal/store"
	pkgerrors "dealflow/pkg/errors"
	"dealflow/pkg/logging"
	"dealflow/pkg/metrics"
	"dealflow/pkg/retry"
)

// Extractor turns free text into a structured deal candidate.
type Extractor interface {
	Parse(ctx context.Context, text string) (*extractor.ParseResult, error)
}

// Publisher pushes a validated deal into the workspace.
type Publisher interface {
	CreateDeal(ctx context.Context, deal publisher.DealInput) (*publisher.Page, error)
}

// Session is the per-attempt view of persistent message state.
type Session interface {
	Close() error
	GetMessage(ctx context.Context, id string) (*store.MessageRecord, error)
	MarkProcessing(ctx context.Context, id string) (int, error)
	MarkFailed(ctx context.Context, id string, errMsg string) error
	CompleteMessage(ctx context.Context, msgID string, partnerName string, deal *store.DealRecord) error
}

// SessionStore hands out one Session per processing attempt.
type SessionStore interface {
	Acquire(ctx context.Context) (Session, error)
}

// StoreAdapter narrows *store.Store to SessionStore.
type StoreAdapter struct {
	Store *store.Store
}

func (a StoreAdapter) Acquire(ctx context.Context) (Session, error) {
	return a.Store.Acquire(ctx)
}

// Worker drains the queue and drives each item through the
// extract -> publish -> persist pipeline with at-least-once delivery.
type Worker struct {
	queue        queue.Queue
	store        SessionStore
	extractor    Extractor
	publisher    Publisher
	events       broker.Producer
	logger       logger.Logger
	maxAttempts  int
	pollInterval time.Duration
	retryPolicy  config.RetryConfig
	topics       config.KafkaConfig
}

func New(
	q queue.Queue,
	sessions SessionStore,
	ext Extractor,
	pub Publisher,
	events broker.Producer,
	cfg config.WorkerConfig,
	topics config.KafkaConfig,
	log logger.Logger,
) *Worker {
	return &Worker{
		queue:        q,
		store:        sessions,
		extractor:    ext,
		publisher:    pub,
		events:       events,
		logger:       log,
		maxAttempts:  cfg.MaxAttempts,
		pollInterval: cfg.PollIntervalSeconds,
		retryPolicy:  cfg.Retry,
		topics:       topics,
	}
}

// Run polls the queue until ctx is canceled. Each tick drains the queue to
// empty before sleeping again.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Infow("Worker started",
		"poll_interval", w.pollInterval,
		"max_attempts", w.maxAttempts,
	)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		w.drain(ctx)

		select {
		case <-ctx.Done():
			w.logger.Infow("Worker stopped", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *Worker) drain(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		item, ok, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() == nil {
				w.logger.Errorw("Failed to dequeue item", "error", err)
			}
			return
		}
		if !ok {
			w.reportQueueDepth(ctx)
			return
		}

		w.processItem(ctx, item)
	}
}

func (w *Worker) processItem(ctx context.Context, item queue.Item) {
	ctx = logging.WithMessageID(ctx, item.MessageID)
	ctx = logging.WithExternalID(ctx, item.ExternalID)
	start := time.Now()

	sess, err := w.store.Acquire(ctx)
	if err != nil {
		w.logger.ErrorwCtx(ctx, "Failed to acquire store session", "error", err)
		w.requeue(ctx, item, 1)
		return
	}
	defer sess.Close()

	msg, err := sess.GetMessage(ctx, item.MessageID)
	if pkgerrors.IsNotFound(err) {
		// No durable record to retry against; dropping is the only safe
		// terminal state.
		w.logger.WarnwCtx(ctx, "Dropping queue item with no message record")
		if err := w.queue.MarkCompleted(ctx, item.ExternalID); err != nil {
			w.logger.ErrorwCtx(ctx, "Failed to release dropped item", "error", err)
		}
		metrics.ObserveProcessing("dropped", start)
		return
	}
	if err != nil {
		w.logger.ErrorwCtx(ctx, "Failed to load message record", "error", err)
		w.requeue(ctx, item, 1)
		return
	}

	attempts, err := sess.MarkProcessing(ctx, msg.ID)
	if err != nil {
		w.logger.ErrorwCtx(ctx, "Failed to mark message processing", "error", err)
		w.requeue(ctx, item, msg.Attempts+1)
		return
	}

	page, err := w.processAttempt(ctx, sess, item)
	if err != nil {
		w.handleFailure(ctx, sess, item, attempts, start, err)
		return
	}

	if err := w.queue.MarkCompleted(ctx, item.ExternalID); err != nil {
		w.logger.ErrorwCtx(ctx, "Failed to release completed item", "error", err)
	}
	metrics.ObserveProcessing("completed", start)

	event := broker.NewEvent(broker.EventDealCompleted, item.ExternalID, item.MessageID)
	event.PageURL = page.URL
	if err := w.events.Publish(ctx, w.topics.CompletedTopic, event); err != nil {
		w.logger.WarnwCtx(ctx, "Failed to publish completion event", "error", err)
	}

	w.logger.InfowCtx(ctx, "Message processed",
		"attempts", attempts,
		"page_url", page.URL,
	)
}

// processAttempt runs one extract -> publish -> persist pass. The workspace
// page is created before the local deal row; a crash between the two is
// repaired by the next attempt re-publishing, which at-least-once delivery
// permits.
func (w *Worker) processAttempt(ctx context.Context, sess Session, item queue.Item) (*publisher.Page, error) {
	result, err := w.extractor.Parse(ctx, item.Text)
	if err != nil {
		return nil, err
	}
	if !result.Usable() {
		// Missing required fields count against the attempt budget; a later
		// attempt may extract them from the same text.
		return nil, pkgerrors.ErrExtraction.
			WithMessage("extracted deal is missing required fields").
			WithDetail("required_field_errors", result.RequiredFieldErrors)
	}

	deal := result.Deal
	page, err := w.publisher.CreateDeal(ctx, toDealInput(deal, item.Text))
	if err != nil {
		return nil, err
	}

	record := toDealRecord(deal, page.URL)
	if err := sess.CompleteMessage(ctx, item.MessageID, deal.PartnerName, record); err != nil {
		return nil, err
	}
	return page, nil
}

func (w *Worker) handleFailure(ctx context.Context, sess Session, item queue.Item, attempts int, start time.Time, cause error) {
	if markErr := sess.MarkFailed(ctx, item.MessageID, cause.Error()); markErr != nil {
		w.logger.ErrorwCtx(ctx, "Failed to record attempt failure", "error", markErr)
	}

	if pkgerrors.IsRecoverable(cause) && attempts < w.maxAttempts {
		w.logger.WarnwCtx(ctx, "Attempt failed, scheduling retry",
			"attempt", attempts,
			"max_attempts", w.maxAttempts,
			"error", cause,
		)
		w.requeue(ctx, item, attempts)
		metrics.ObserveProcessing("retried", start)
		return
	}

	w.logger.ErrorwCtx(ctx, "Message exhausted, dead-lettering",
		"attempts", attempts,
		"error", cause,
	)
	if err := w.queue.DeadLetter(ctx, item, cause); err != nil {
		w.logger.ErrorwCtx(ctx, "Failed to dead-letter item", "error", err)
	}
	metrics.DeadLetteredTotal.Inc()
	metrics.ObserveProcessing("failed", start)

	event := broker.NewEvent(broker.EventMessageDeadLettered, item.ExternalID, item.MessageID)
	event.Error = cause.Error()
	if err := w.events.Publish(ctx, w.topics.DeadLetteredTopic, event); err != nil {
		w.logger.WarnwCtx(ctx, "Failed to publish dead-letter event", "error", err)
	}
}

// requeue schedules another attempt after exponential backoff. attempt is
// the count of attempts already made.
func (w *Worker) requeue(ctx context.Context, item queue.Item, attempt int) {
	delay := retry.CalculateBackoffDuration(
		attempt,
		w.retryPolicy.InitialInterval,
		w.retryPolicy.Multiplier,
		w.retryPolicy.MaxInterval,
	)
	if err := w.queue.Requeue(ctx, item, delay); err != nil {
		w.logger.ErrorwCtx(ctx, "Failed to requeue item", "error", err)
	}
}

func (w *Worker) reportQueueDepth(ctx context.Context) {
	sizes, err := w.queue.Sizes(ctx)
	if err != nil {
		return
	}
	metrics.SetQueueDepth(sizes.Main, sizes.InFlight, sizes.DeadLetter, sizes.Retry)
}

func toDealInput(deal extractor.ParsedDeal, rawText string) publisher.DealInput {
	return publisher.DealInput{
		PartnerName:    deal.PartnerName,
		Geo:            deal.Geo,
		LanguageCode:   deal.LanguageCode,
		PricingModel:   deal.PricingModel,
		CPAAmount:      deal.CPAAmount,
		CRGPercentage:  deal.CRGPercentage,
		CPLAmount:      deal.CPLAmount,
		ConversionRate: deal.ConversionRate,
		Sources:        deal.Sources,
		Funnels:        deal.Funnels,
		ExpirationDate: deal.ExpirationDate,
		RawText:        rawText,
	}
}

func toDealRecord(deal extractor.ParsedDeal, pageURL string) *store.DealRecord {
	return &store.DealRecord{
		Geo:               deal.Geo,
		LanguageCode:      deal.LanguageCode,
		IsNative:          deal.IsNative,
		PricingModel:      store.PricingModel(deal.PricingModel),
		CPAAmount:         deal.CPAAmount,
		CRGPercentage:     deal.CRGPercentage,
		CPLAmount:         deal.CPLAmount,
		DeductionLimit:    deal.DeductionLimit,
		ConversionRate:    deal.ConversionRate,
		ConversionCurrent: deal.ConversionCurrent,
		ConversionDetails: deal.ConversionDetails,
		Sources:           deal.Sources,
		Funnels:           deal.Funnels,
		ExternalURL:       pageURL,
	}
}
