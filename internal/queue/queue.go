// Package queue is the durable intake for submitted bids. A message is only
// removed after the consumer has persisted it, so unprocessed bids are
// redelivered.
package queue

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// Message is one received bid submission.
type Message struct {
	ID           string
	Body         []byte
	SubmissionID string
	Receipt      string
	// ReceiveCount is how many times the message has been handed out,
	// including this one. Zero when the backend does not report it.
	ReceiveCount int

	kafkaMsg *kafka.Message
}

type BidQueue interface {
	// Send enqueues body. dedupKey identifies the submission across retries.
	Send(ctx context.Context, dedupKey string, body []byte) error
	// Receive waits up to wait for a single message. It returns nil, nil when
	// none arrived.
	Receive(ctx context.Context, wait time.Duration) (*Message, error)
	Delete(ctx context.Context, msg *Message) error
	Close() error
}
