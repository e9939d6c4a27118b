// Package secrets resolves the AppSync API key from AWS Secrets Manager.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/couchcryptid/fishing-catch-etl/internal/domain"
)

// API is the subset of the Secrets Manager client used here.
type API interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// NewClient builds a Secrets Manager client from the default credential chain.
func NewClient(ctx context.Context, region string) (*secretsmanager.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return secretsmanager.NewFromConfig(cfg), nil
}

// APIKey reads the secret (name or ARN) and returns its "apiKey" field.
// Any failure is a *domain.ConfigurationError.
func APIKey(ctx context.Context, api API, secretID string) (string, error) {
	out, err := api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: aws.String(secretID)})
	if err != nil {
		return "", &domain.ConfigurationError{Msg: fmt.Sprintf("read secret %s: %v", secretID, err)}
	}
	key, err := parseAPIKey(aws.ToString(out.SecretString))
	if err != nil {
		return "", &domain.ConfigurationError{Msg: fmt.Sprintf("secret %s: %v", secretID, err)}
	}
	return key, nil
}

func parseAPIKey(secret string) (string, error) {
	var doc struct {
		APIKey string `json:"apiKey"`
	}
	if err := json.Unmarshal([]byte(secret), &doc); err != nil {
		return "", fmt.Errorf("decode secret string: %w", err)
	}
	if doc.APIKey == "" {
		return "", errors.New(`missing "apiKey"`)
	}
	return doc.APIKey, nil
}
