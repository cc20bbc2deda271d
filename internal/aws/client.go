package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/redshift"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/sparkify/dwh/internal/config"
)

// LoadConfig builds an SDK config for the configured region. Static keys
// from the [AWS] section take precedence over the default credential chain.
func LoadConfig(ctx context.Context, creds config.Credentials, region string) (aws.Config, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, config.LoadOptions(creds, region)...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading AWS config: %w", err)
	}
	return cfg, nil
}

// NewClients creates the IAM, Redshift, STS and S3 clients for cfg.
func NewClients(ctx context.Context, cfg *config.Config) (*Clients, error) {
	awsCfg, err := LoadConfig(ctx, cfg.AWS, cfg.Cluster.Region)
	if err != nil {
		return nil, err
	}

	return &Clients{
		IAM:      iam.NewFromConfig(awsCfg),
		Redshift: redshift.NewFromConfig(awsCfg),
		STS:      sts.NewFromConfig(awsCfg),
		S3:       s3.NewFromConfig(awsCfg),
	}, nil
}
