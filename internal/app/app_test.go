package app

import (
	"testing"

	"github.com/chachabrian/carbid-backend/internal/config"
	"github.com/chachabrian/carbid-backend/internal/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenQueue(t *testing.T) {
	cfg := config.Config{QueueDriver: config.QueueDriverSQS, AWSRegion: "us-east-1"}
	_, err := OpenQueue(cfg)
	assert.Error(t, err, "sqs needs a queue url")

	cfg.SQSQueueURL = "https://sqs.us-east-1.amazonaws.com/123456789012/bids.fifo"
	q, err := OpenQueue(cfg)
	require.NoError(t, err)
	assert.IsType(t, &queue.SQSQueue{}, q)

	q, err = OpenQueue(config.Config{
		QueueDriver:  config.QueueDriverKafka,
		KafkaBrokers: []string{"localhost:9092"},
		KafkaTopic:   "bid-intake",
		KafkaGroup:   "bid-intake-consumer",
	})
	require.NoError(t, err)
	assert.IsType(t, &queue.KafkaQueue{}, q)
	assert.NoError(t, q.Close())

	_, err = OpenQueue(config.Config{QueueDriver: "rabbitmq"})
	assert.Error(t, err)
}
