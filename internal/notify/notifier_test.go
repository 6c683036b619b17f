package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacesedan/sentiserve/internal/models"
)

var completion = models.BatchCompletion{
	BatchID:      "batch-123",
	TotalRows:    3,
	SuccessCount: 2,
	FailedCount:  1,
	CompletedAt:  "2024-05-01T12:00:00Z",
}

type fakeSNS struct {
	inputs []*sns.PublishInput
	err    error
}

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.inputs = append(f.inputs, in)
	return &sns.PublishOutput{}, f.err
}

func TestSNSNotifier(t *testing.T) {
	fake := &fakeSNS{}
	n := NewSNSNotifier(fake, "arn:aws:sns:us-east-1:123:batches")

	require.NoError(t, n.BatchCompleted(context.Background(), completion))
	require.Len(t, fake.inputs, 1)

	in := fake.inputs[0]
	assert.Equal(t, "arn:aws:sns:us-east-1:123:batches", aws.ToString(in.TopicArn))
	assert.Equal(t, "Batch batch-123 Processing Complete", aws.ToString(in.Subject))

	body := aws.ToString(in.Message)
	assert.Contains(t, body, "Batch ID: batch-123")
	assert.Contains(t, body, "Total Rows: 3")
	assert.Contains(t, body, "Successful: 2")
	assert.Contains(t, body, "Failed: 1")

	fake.err = errors.New("throttled")
	assert.Error(t, n.BatchCompleted(context.Background(), completion))
}

type fakeProducer struct {
	messages []*kafka.Message
	failures int
	closed   bool
}

func (f *fakeProducer) Produce(msg *kafka.Message, delivery chan kafka.Event) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("queue full")
	}
	f.messages = append(f.messages, msg)
	delivery <- msg
	return nil
}

func (f *fakeProducer) Flush(int) int { return 0 }

func (f *fakeProducer) Close() { f.closed = true }

func TestKafkaNotifier(t *testing.T) {
	fake := &fakeProducer{failures: 1}
	n := NewKafkaNotifier(fake, "batch-completed")

	require.NoError(t, n.BatchCompleted(context.Background(), completion))
	require.Len(t, fake.messages, 1)

	msg := fake.messages[0]
	assert.Equal(t, "batch-123", string(msg.Key))
	assert.Equal(t, "batch-completed", *msg.TopicPartition.Topic)
	assert.True(t, strings.Contains(string(msg.Value), `"batch_id":"batch-123"`))

	n.Close()
	assert.True(t, fake.closed)
}

func TestKafkaNotifierGivesUp(t *testing.T) {
	fake := &fakeProducer{failures: 10}
	n := NewKafkaNotifier(fake, "batch-completed")
	assert.Error(t, n.BatchCompleted(context.Background(), completion))
}

func TestNopNotifier(t *testing.T) {
	assert.NoError(t, NopNotifier{}.BatchCompleted(context.Background(), completion))
}
