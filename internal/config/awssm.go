package config

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

const secretLookupTimeout = 30 * time.Second

// LoadOption configures how the AWS SDK config is loaded.
type LoadOption = func(*awsconfig.LoadOptions) error

// LoadOptions selects the region and, when both keys are set, a static
// credentials provider. Without keys the default credential chain applies.
func LoadOptions(creds Credentials, region string) []LoadOption {
	var opts []LoadOption
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	if creds.Key != "" && creds.Secret != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(creds.Key, creds.Secret, ""),
		))
	}
	return opts
}

type secretGetter interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// newSecretsClient is replaced in tests.
var newSecretsClient = func(ctx context.Context, opts ...LoadOption) (secretGetter, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return secretsmanager.NewFromConfig(cfg), nil
}

// resolveAWSSecretsManager resolves an AWS Secrets Manager reference.
// Format: secret-id or secret-id#key, where key selects a field of a JSON secret.
func resolveAWSSecretsManager(ref string, opts ...LoadOption) (string, error) {
	id, key, _ := strings.Cut(ref, "#")

	ctx, cancel := context.WithTimeout(context.Background(), secretLookupTimeout)
	defer cancel()

	client, err := newSecretsClient(ctx, opts...)
	if err != nil {
		return "", err
	}

	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(id),
	})
	if err != nil {
		return "", fmt.Errorf("getting secret %q: %w", id, err)
	}

	if out.SecretString == nil {
		return "", fmt.Errorf("secret %q has no string value (binary secrets not supported)", id)
	}

	if key == "" {
		return *out.SecretString, nil
	}
	return secretField(id, key, *out.SecretString)
}

func secretField(id, key, raw string) (string, error) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return "", fmt.Errorf("secret %q is not a JSON object: %w", id, err)
	}
	val, ok := fields[key]
	if !ok {
		return "", fmt.Errorf("key %q not found in secret %q", key, id)
	}
	str, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("secret %q value for key %q is not a string", id, key)
	}
	return str, nil
}
