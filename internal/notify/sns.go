package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/spacesedan/sentiserve/internal/models"
)

type SNSPublishAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type SNSNotifier struct {
	client   SNSPublishAPI
	topicARN string
}

func NewSNSNotifier(client SNSPublishAPI, topicARN string) *SNSNotifier {
	return &SNSNotifier{client: client, topicARN: topicARN}
}

func (n *SNSNotifier) BatchCompleted(ctx context.Context, c models.BatchCompletion) error {
	_, err := n.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Subject:  aws.String(Subject(c)),
		Message:  aws.String(Body(c)),
	})
	if err != nil {
		return fmt.Errorf("[SNSNotifier] failed to publish completion for %s: %w", c.BatchID, err)
	}

	slog.Info("[SNSNotifier] Sent completion notification",
		slog.String("batch_id", c.BatchID))
	return nil
}

func (n *SNSNotifier) Close() {}
