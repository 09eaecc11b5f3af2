package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealflow/internal/broker"
	"dealflow/internal/config"
	"dealflow/internal/extractor"
	"dealflow/internal/logger"
	"dealflow/internal/publisher"
	"dealflow/internal/queue"
	"dealflow/internal/store"
	pkgerrors "dealflow/pkg/errors"
)

type fakeSession struct {
	messages  map[string]*store.MessageRecord
	completed map[string]*store.DealRecord
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		messages:  make(map[string]*store.MessageRecord),
		completed: make(map[string]*store.DealRecord),
	}
}

func (s *fakeSession) Close() error { return nil }

func (s *fakeSession) GetMessage(_ context.Context, id string) (*store.MessageRecord, error) {
	msg, ok := s.messages[id]
	if !ok {
		return nil, pkgerrors.ErrNotFound
	}
	copied := *msg
	return &copied, nil
}

func (s *fakeSession) MarkProcessing(_ context.Context, id string) (int, error) {
	msg, ok := s.messages[id]
	if !ok {
		return 0, pkgerrors.ErrNotFound
	}
	msg.Status = store.StatusProcessing
	msg.Attempts++
	return msg.Attempts, nil
}

func (s *fakeSession) MarkFailed(_ context.Context, id string, errMsg string) error {
	if msg, ok := s.messages[id]; ok {
		msg.Status = store.StatusFailed
		msg.ErrorMessage = &errMsg
	}
	return nil
}

func (s *fakeSession) CompleteMessage(_ context.Context, msgID string, partnerName string, deal *store.DealRecord) error {
	msg, ok := s.messages[msgID]
	if !ok {
		return pkgerrors.ErrNotFound
	}
	msg.Status = store.StatusCompleted
	msg.PartnerName = &partnerName
	now := time.Now().UTC()
	msg.ProcessedAt = &now
	msg.ErrorMessage = nil
	s.completed[msgID] = deal
	return nil
}

func (s *fakeSession) Acquire(_ context.Context) (Session, error) { return s, nil }

type fakeExtractor struct {
	result *extractor.ParseResult
	err    error
	// failures bounds how many leading calls return err; zero means every
	// call fails while err is set.
	failures int
	calls    int
}

func (e *fakeExtractor) Parse(context.Context, string) (*extractor.ParseResult, error) {
	e.calls++
	if e.err != nil && (e.failures == 0 || e.calls <= e.failures) {
		return nil, e.err
	}
	return e.result, nil
}

type fakePublisher struct {
	page  *publisher.Page
	err   error
	calls int
	last  publisher.DealInput
}

func (p *fakePublisher) CreateDeal(_ context.Context, deal publisher.DealInput) (*publisher.Page, error) {
	p.calls++
	p.last = deal
	if p.err != nil {
		return nil, p.err
	}
	return p.page, nil
}

func usableResult() *extractor.ParseResult {
	cpa := 1200.0
	return &extractor.ParseResult{
		Deal: extractor.ParsedDeal{
			PartnerName:  "Acme Media",
			Geo:          "DE",
			LanguageCode: "DE",
			PricingModel: "CPA",
			CPAAmount:    &cpa,
			Sources:      []string{"FB", "GG"},
		},
	}
}

func newTestWorker(q queue.Queue, sess *fakeSession, ext *fakeExtractor, pub *fakePublisher) *Worker {
	return New(
		q,
		sess,
		ext,
		pub,
		broker.NopProducer{},
		config.WorkerConfig{
			MaxAttempts:         3,
			PollIntervalSeconds: time.Second,
			Retry: config.RetryConfig{
				InitialInterval: 2 * time.Second,
				MaxInterval:     time.Minute,
				Multiplier:      2.0,
			},
		},
		config.KafkaConfig{},
		logger.NopLogger(),
	)
}

func seedMessage(t *testing.T, q queue.Queue, sess *fakeSession, externalID string) queue.Item {
	t.Helper()
	item := queue.Item{ExternalID: externalID, Text: "Acme DE CPA 1200", MessageID: "msg-" + externalID}
	sess.messages[item.MessageID] = &store.MessageRecord{
		ID:         item.MessageID,
		ExternalID: externalID,
		RawText:    item.Text,
		Status:     store.StatusPending,
	}
	require.NoError(t, q.Enqueue(context.Background(), item))
	return item
}

func TestWorkerHappyPath(t *testing.T) {
	ctx := context.Background()
	q := queue.NewMemoryQueue()
	sess := newFakeSession()
	ext := &fakeExtractor{result: usableResult()}
	pub := &fakePublisher{page: &publisher.Page{ID: "page-1", URL: "https://workspace.example/page-1"}}

	item := seedMessage(t, q, sess, "tg-100")
	w := newTestWorker(q, sess, ext, pub)

	w.drain(ctx)

	msg := sess.messages[item.MessageID]
	assert.Equal(t, store.StatusCompleted, msg.Status)
	assert.Equal(t, 1, msg.Attempts)
	require.NotNil(t, msg.PartnerName)
	assert.Equal(t, "Acme Media", *msg.PartnerName)
	require.NotNil(t, msg.ProcessedAt)
	assert.Nil(t, msg.ErrorMessage)

	deal := sess.completed[item.MessageID]
	require.NotNil(t, deal)
	assert.Equal(t, "https://workspace.example/page-1", deal.ExternalURL)
	assert.Equal(t, store.PricingCPA, deal.PricingModel)

	assert.Equal(t, "Acme Media", pub.last.PartnerName)
	assert.Equal(t, item.Text, pub.last.RawText)

	sizes, err := q.Sizes(ctx)
	require.NoError(t, err)
	assert.Equal(t, queue.Sizes{}, sizes)
}

func TestWorkerRetriesRecoverableFailure(t *testing.T) {
	ctx := context.Background()
	q := queue.NewMemoryQueue()
	sess := newFakeSession()
	ext := &fakeExtractor{err: pkgerrors.ErrExtraction.WithMessage("model timeout")}
	pub := &fakePublisher{}

	item := seedMessage(t, q, sess, "tg-200")
	w := newTestWorker(q, sess, ext, pub)

	w.drain(ctx)

	msg := sess.messages[item.MessageID]
	assert.Equal(t, store.StatusFailed, msg.Status)
	assert.Equal(t, 1, msg.Attempts)
	require.NotNil(t, msg.ErrorMessage)

	sizes, err := q.Sizes(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), sizes.Retry, "failed item must wait in the retry set")
	assert.Equal(t, int64(0), sizes.InFlight)
	assert.Equal(t, int64(0), sizes.DeadLetter)
	assert.Zero(t, pub.calls, "publish must not run when extraction fails")
}

func TestWorkerDeadLettersAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	q := queue.NewMemoryQueue()
	sess := newFakeSession()
	ext := &fakeExtractor{err: pkgerrors.ErrExtraction.WithMessage("model timeout")}
	pub := &fakePublisher{}

	item := seedMessage(t, q, sess, "tg-300")
	w := newTestWorker(q, sess, ext, pub)
	// Zero backoff so each failed attempt is immediately due again and one
	// drain walks through every retry.
	w.retryPolicy = config.RetryConfig{InitialInterval: 0, MaxInterval: 0, Multiplier: 2.0}

	w.drain(ctx)

	msg := sess.messages[item.MessageID]
	assert.Equal(t, store.StatusFailed, msg.Status)
	assert.Equal(t, 3, msg.Attempts, "attempts must stop at the cap")

	dead := q.DeadLetters()
	require.Len(t, dead, 1)
	assert.Equal(t, item.ExternalID, dead[0].Item.ExternalID)
	assert.Contains(t, dead[0].Error, "model timeout")

	sizes, err := q.Sizes(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), sizes.DeadLetter)
	assert.Equal(t, int64(0), sizes.Retry)
	assert.Equal(t, int64(0), sizes.InFlight)
}

func TestWorkerRetriesUnusableParse(t *testing.T) {
	ctx := context.Background()
	q := queue.NewMemoryQueue()
	sess := newFakeSession()
	result := usableResult()
	result.Deal.Geo = ""
	result.RequiredFieldErrors = []string{"missing required field: geo"}
	ext := &fakeExtractor{result: result}
	pub := &fakePublisher{}

	item := seedMessage(t, q, sess, "tg-400")
	w := newTestWorker(q, sess, ext, pub)

	w.drain(ctx)

	msg := sess.messages[item.MessageID]
	assert.Equal(t, store.StatusFailed, msg.Status)
	assert.Equal(t, 1, msg.Attempts)

	// A parse missing required fields is a recoverable extraction failure,
	// not a terminal one: the item waits in the retry set.
	sizes, err := q.Sizes(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), sizes.Retry)
	assert.Equal(t, int64(0), sizes.DeadLetter)
	assert.Zero(t, pub.calls)
	assert.Empty(t, sess.completed)
}

func TestWorkerDeadLettersUnusableParseAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	q := queue.NewMemoryQueue()
	sess := newFakeSession()
	result := usableResult()
	result.Deal.Geo = ""
	result.RequiredFieldErrors = []string{"missing required field: geo"}
	ext := &fakeExtractor{result: result}
	pub := &fakePublisher{}

	item := seedMessage(t, q, sess, "tg-410")
	w := newTestWorker(q, sess, ext, pub)
	w.retryPolicy = config.RetryConfig{InitialInterval: 0, MaxInterval: 0, Multiplier: 2.0}

	w.drain(ctx)

	msg := sess.messages[item.MessageID]
	assert.Equal(t, store.StatusFailed, msg.Status)
	assert.Equal(t, 3, msg.Attempts, "unusable parses burn the full attempt budget")

	dead := q.DeadLetters()
	require.Len(t, dead, 1)
	assert.Contains(t, dead[0].Error, "missing required fields")
	assert.Zero(t, pub.calls)
}

func TestWorkerCompletesAfterTransientFailures(t *testing.T) {
	ctx := context.Background()
	q := queue.NewMemoryQueue()
	sess := newFakeSession()
	ext := &fakeExtractor{
		result:   usableResult(),
		err:      pkgerrors.ErrExtraction.WithMessage("model timeout"),
		failures: 2,
	}
	pub := &fakePublisher{page: &publisher.Page{ID: "page-3", URL: "https://workspace.example/page-3"}}

	item := seedMessage(t, q, sess, "tg-450")
	w := newTestWorker(q, sess, ext, pub)
	w.retryPolicy = config.RetryConfig{InitialInterval: 0, MaxInterval: 0, Multiplier: 2.0}

	w.drain(ctx)

	msg := sess.messages[item.MessageID]
	assert.Equal(t, store.StatusCompleted, msg.Status)
	assert.Equal(t, 3, msg.Attempts, "two failed attempts then success")
	assert.Nil(t, msg.ErrorMessage, "completion clears the recorded failure")
	assert.Equal(t, 3, ext.calls)
	assert.Equal(t, 1, pub.calls)

	deal := sess.completed[item.MessageID]
	require.NotNil(t, deal)
	assert.Equal(t, "https://workspace.example/page-3", deal.ExternalURL)

	sizes, err := q.Sizes(ctx)
	require.NoError(t, err)
	assert.Equal(t, queue.Sizes{}, sizes)
}

func TestWorkerDropsItemWithoutRecord(t *testing.T) {
	ctx := context.Background()
	q := queue.NewMemoryQueue()
	sess := newFakeSession()
	ext := &fakeExtractor{result: usableResult()}
	pub := &fakePublisher{}

	item := queue.Item{ExternalID: "tg-500", Text: "orphan", MessageID: "msg-ghost"}
	require.NoError(t, q.Enqueue(ctx, item))

	w := newTestWorker(q, sess, ext, pub)
	w.drain(ctx)

	sizes, err := q.Sizes(ctx)
	require.NoError(t, err)
	assert.Equal(t, queue.Sizes{}, sizes, "orphan items leave no queue residue")
	assert.Zero(t, ext.calls)
	assert.Zero(t, pub.calls)
}

func TestWorkerPublishFailureKeepsMessagePending(t *testing.T) {
	ctx := context.Background()
	q := queue.NewMemoryQueue()
	sess := newFakeSession()
	ext := &fakeExtractor{result: usableResult()}
	pub := &fakePublisher{err: pkgerrors.ErrPublish.WithMessage("workspace unavailable")}

	item := seedMessage(t, q, sess, "tg-600")
	w := newTestWorker(q, sess, ext, pub)

	w.drain(ctx)

	msg := sess.messages[item.MessageID]
	assert.Equal(t, store.StatusFailed, msg.Status)
	assert.Empty(t, sess.completed, "no deal row may exist without completion")

	sizes, err := q.Sizes(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), sizes.Retry)
}
