package constants

import "time"

const (
	// WorkerPollInterval is the backoff between dequeue attempts when the
	// queue is empty.
	WorkerPollInterval = 1 * time.Second

	// DefaultMaxAttempts is the processing attempt cap before an item is
	// dead-lettered.
	DefaultMaxAttempts = 3
)

const (
	QueueKeyMain       = "deal:queue"
	QueueKeyProcessing = "deal:processing"
	QueueKeyDeadLetter = "deal:dead_letter"
	QueueKeyRetry      = "deal:retry"
)

// Documented quotas of the external services. They are enforced client-side
// with token-bucket limiters, not solved as a scheduling problem.
const (
	ExtractorRequestsPerMinute = 50
	WorkspaceRequestsPerSecond = 3
)

const (
	DefaultHTTPTimeout = 30 * time.Second
	ShutdownTimeout    = 5 * time.Second
)

const (
	DefaultCompletionMaxTokens = 1000

	// SessionHistoryLimit bounds the per-session conversation ring buffer.
	SessionHistoryLimit = 5
)

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second

	TopicDealCompleted       = "deal.completed"
	TopicMessageDeadLettered = "message.dead_lettered"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)
