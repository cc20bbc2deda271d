package aws

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// SourceChecker confirms COPY sources exist before a load starts.
type SourceChecker struct {
	s3     S3API
	logger *slog.Logger
}

// NewSourceChecker creates a checker over the given S3 client.
func NewSourceChecker(client S3API, logger *slog.Logger) *SourceChecker {
	if logger == nil {
		logger = slog.Default()
	}
	return &SourceChecker{s3: client, logger: logger}
}

// CheckPrefix fails with ErrSourceEmpty if nothing is stored under uri.
func (s *SourceChecker) CheckPrefix(ctx context.Context, uri string) error {
	bucket, prefix, err := ParseS3URI(uri)
	if err != nil {
		return err
	}

	out, err := s.s3.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return fmt.Errorf("listing %s: %w", uri, err)
	}
	if len(out.Contents) == 0 {
		return fmt.Errorf("%s: %w", uri, ErrSourceEmpty)
	}

	s.logger.Debug("source present", "uri", uri)
	return nil
}

// ParseS3URI splits s3://bucket/prefix into its parts.
func ParseS3URI(uri string) (bucket, prefix string, err error) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return "", "", fmt.Errorf("invalid S3 URI %q: missing s3:// scheme", uri)
	}
	bucket, prefix, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("invalid S3 URI %q: missing bucket", uri)
	}
	return bucket, prefix, nil
}
