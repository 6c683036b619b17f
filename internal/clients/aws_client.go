package clients

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/spacesedan/sentiserve/config"
)

var (
	awsCfg     aws.Config
	awsCfgErr  error
	awsOnce    sync.Once
	awsBaseURL string
)

// GetAWSConfig loads the shared AWS configuration once per process.
func GetAWSConfig(ctx context.Context, cfg config.AWSConfig) (aws.Config, error) {
	awsOnce.Do(func() {
		slog.Info("[AWSClient] Initializing AWS Config...",
			slog.String("region", cfg.Region))

		loaded, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
		if err != nil {
			slog.Error("[AWSClient] Failed to load AWS config")
			awsCfgErr = fmt.Errorf("[AWSClient] failed to load AWS config: %w", err)
			return
		}

		awsCfg = loaded
		awsBaseURL = cfg.Endpoint
		slog.Info("[AWSClient] AWS Config Initialized")
	})

	return awsCfg, awsCfgErr
}

// baseEndpoint is set for local stacks such as DynamoDB Local or LocalStack.
func baseEndpoint() *string {
	if awsBaseURL == "" {
		return nil
	}
	return aws.String(awsBaseURL)
}

func GetDynamoDBClient(cfg aws.Config) *dynamodb.Client {
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		o.BaseEndpoint = baseEndpoint()
	})
}

func GetS3Client(cfg aws.Config) *s3.Client {
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = baseEndpoint()
		o.UsePathStyle = awsBaseURL != ""
	})
}

func GetSNSClient(cfg aws.Config) *sns.Client {
	return sns.NewFromConfig(cfg, func(o *sns.Options) {
		o.BaseEndpoint = baseEndpoint()
	})
}

func GetSecretsManagerClient(cfg aws.Config) *secretsmanager.Client {
	return secretsmanager.NewFromConfig(cfg, func(o *secretsmanager.Options) {
		o.BaseEndpoint = baseEndpoint()
	})
}
