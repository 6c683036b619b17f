package clients

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

type SecretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

type SecretResolver struct {
	client SecretsAPI
}

func NewSecretResolver(client SecretsAPI) *SecretResolver {
	return &SecretResolver{client: client}
}

// Resolve returns the string value of a secret.
func (s *SecretResolver) Resolve(ctx context.Context, secretID string) (string, error) {
	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		return "", fmt.Errorf("[SecretsClient] failed to read secret %s: %w", secretID, err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("[SecretsClient] secret %s has no string value", secretID)
	}

	slog.Info("[SecretsClient] Resolved secret", slog.String("secret_id", secretID))
	return *out.SecretString, nil
}

// ValkeyPassword prefers a secret when one is configured and falls back to
// the plain password otherwise.
func ValkeyPassword(ctx context.Context, resolver *SecretResolver, secretID, plain string) (string, error) {
	if secretID == "" || resolver == nil {
		return plain, nil
	}
	return resolver.Resolve(ctx, secretID)
}
