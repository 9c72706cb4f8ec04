package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaMaxReceives is how many times an uncommitted message is handed out
// before it is moved to the dead-letter topic.
const KafkaMaxReceives = 5

type kafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaQueue maps the intake contract onto a consumer group: Delete commits
// the message offset. A group reader moves past uncommitted offsets, so a
// received message is held and returned again by Receive until it is
// deleted or dead-lettered.
type KafkaQueue struct {
	writer     kafkaWriter
	deadLetter kafkaWriter
	reader     kafkaReader

	mu       sync.Mutex
	held     *kafka.Message
	receives int
}

func NewKafkaQueue(brokers []string, topic, group string) *KafkaQueue {
	newWriter := func(topic string) *kafka.Writer {
		return &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		}
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  group,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return newKafkaQueue(newWriter(topic), newWriter(topic+".dlq"), reader)
}

func newKafkaQueue(writer, deadLetter kafkaWriter, reader kafkaReader) *KafkaQueue {
	return &KafkaQueue{writer: writer, deadLetter: deadLetter, reader: reader}
}

func (q *KafkaQueue) Send(ctx context.Context, dedupKey string, body []byte) error {
	err := q.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(dedupKey),
		Value:   body,
		Headers: []kafka.Header{{Key: submissionAttr, Value: []byte(dedupKey)}},
	})
	if err != nil {
		return fmt.Errorf("kafka send: %w", err)
	}
	return nil
}

func (q *KafkaQueue) Receive(ctx context.Context, wait time.Duration) (*Message, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.held != nil {
		if q.receives < KafkaMaxReceives {
			q.receives++
			return kafkaToMessage(*q.held, q.receives), nil
		}
		if err := q.moveToDeadLetter(ctx, *q.held); err != nil {
			return nil, err
		}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	m, err := q.reader.FetchMessage(fetchCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("kafka fetch: %w", err)
	}
	q.held, q.receives = &m, 1
	return kafkaToMessage(m, 1), nil
}

func (q *KafkaQueue) moveToDeadLetter(ctx context.Context, m kafka.Message) error {
	dead := kafka.Message{
		Key:   m.Key,
		Value: m.Value,
		Headers: append(append([]kafka.Header{}, m.Headers...),
			kafka.Header{Key: "source-offset", Value: []byte(fmt.Sprintf("%s/%d/%d", m.Topic, m.Partition, m.Offset))},
			kafka.Header{Key: "receive-count", Value: []byte(strconv.Itoa(q.receives))},
		),
	}
	if err := q.deadLetter.WriteMessages(ctx, dead); err != nil {
		return fmt.Errorf("kafka dead-letter: %w", err)
	}
	if err := q.reader.CommitMessages(ctx, m); err != nil {
		return fmt.Errorf("kafka commit: %w", err)
	}
	q.held, q.receives = nil, 0
	return nil
}

func kafkaToMessage(m kafka.Message, receives int) *Message {
	msg := &Message{
		ID:           fmt.Sprintf("%s/%d/%d", m.Topic, m.Partition, m.Offset),
		Body:         m.Value,
		ReceiveCount: receives,
		kafkaMsg:     &m,
	}
	for _, h := range m.Headers {
		if h.Key == submissionAttr {
			msg.SubmissionID = string(h.Value)
		}
	}
	if msg.SubmissionID == "" {
		msg.SubmissionID = string(m.Key)
	}
	return msg
}

func (q *KafkaQueue) Delete(ctx context.Context, msg *Message) error {
	if msg.kafkaMsg == nil {
		return errors.New("kafka delete: message was not received from kafka")
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.reader.CommitMessages(ctx, *msg.kafkaMsg); err != nil {
		return fmt.Errorf("kafka commit: %w", err)
	}
	if q.held != nil && q.held.Partition == msg.kafkaMsg.Partition && q.held.Offset == msg.kafkaMsg.Offset {
		q.held, q.receives = nil, 0
	}
	return nil
}

func (q *KafkaQueue) Close() error {
	return errors.Join(q.writer.Close(), q.deadLetter.Close(), q.reader.Close())
}
