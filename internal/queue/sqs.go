package queue

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"
)

const (
	submissionAttr = "submissionId"
	fifoGroupID    = "bids"
)

type SQSQueue struct {
	client   sqsiface.SQSAPI
	queueURL string
	fifo     bool
}

// NewSQSClient builds an SQS client. Static credentials are used when both
// keys are set, otherwise the default AWS credential chain applies.
func NewSQSClient(region, accessKey, secretKey, endpoint string) (*sqs.SQS, error) {
	cfg := &aws.Config{Region: aws.String(region)}
	if accessKey != "" && secretKey != "" {
		cfg.Credentials = credentials.NewStaticCredentials(accessKey, secretKey, "")
	}
	if endpoint != "" {
		cfg.Endpoint = aws.String(endpoint)
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	return sqs.New(sess), nil
}

func NewSQSQueue(client sqsiface.SQSAPI, queueURL string) *SQSQueue {
	return &SQSQueue{
		client:   client,
		queueURL: queueURL,
		fifo:     strings.HasSuffix(queueURL, ".fifo"),
	}
}

func (q *SQSQueue) Send(ctx context.Context, dedupKey string, body []byte) error {
	in := &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]*sqs.MessageAttributeValue{
			submissionAttr: {
				DataType:    aws.String("String"),
				StringValue: aws.String(dedupKey),
			},
		},
	}
	if q.fifo {
		in.MessageGroupId = aws.String(fifoGroupID)
		in.MessageDeduplicationId = aws.String(dedupKey)
	}
	if _, err := q.client.SendMessageWithContext(ctx, in); err != nil {
		return fmt.Errorf("sqs send: %w", err)
	}
	return nil
}

func (q *SQSQueue) Receive(ctx context.Context, wait time.Duration) (*Message, error) {
	out, err := q.client.ReceiveMessageWithContext(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:              aws.String(q.queueURL),
		MaxNumberOfMessages:   aws.Int64(1),
		WaitTimeSeconds:       aws.Int64(int64(wait / time.Second)),
		MessageAttributeNames: []*string{aws.String(sqs.QueueAttributeNameAll)},
		AttributeNames:        []*string{aws.String(sqs.MessageSystemAttributeNameApproximateReceiveCount)},
	})
	if err != nil {
		return nil, fmt.Errorf("sqs receive: %w", err)
	}
	if len(out.Messages) == 0 {
		return nil, nil
	}

	m := out.Messages[0]
	msg := &Message{
		ID:      aws.StringValue(m.MessageId),
		Body:    []byte(aws.StringValue(m.Body)),
		Receipt: aws.StringValue(m.ReceiptHandle),
	}
	if attr, ok := m.MessageAttributes[submissionAttr]; ok && attr != nil {
		msg.SubmissionID = aws.StringValue(attr.StringValue)
	}
	if n, err := strconv.Atoi(aws.StringValue(m.Attributes[sqs.MessageSystemAttributeNameApproximateReceiveCount])); err == nil {
		msg.ReceiveCount = n
	}
	return msg, nil
}

func (q *SQSQueue) Delete(ctx context.Context, msg *Message) error {
	_, err := q.client.DeleteMessageWithContext(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.queueURL),
		ReceiptHandle: aws.String(msg.Receipt),
	})
	if err != nil {
		return fmt.Errorf("sqs delete: %w", err)
	}
	return nil
}

func (q *SQSQueue) Close() error { return nil }
