package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/redshift"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// IAMAPI is the subset of the IAM client used to manage the cluster role.
type IAMAPI interface {
	GetRole(ctx context.Context, in *iam.GetRoleInput, opts ...func(*iam.Options)) (*iam.GetRoleOutput, error)
	CreateRole(ctx context.Context, in *iam.CreateRoleInput, opts ...func(*iam.Options)) (*iam.CreateRoleOutput, error)
	AttachRolePolicy(ctx context.Context, in *iam.AttachRolePolicyInput, opts ...func(*iam.Options)) (*iam.AttachRolePolicyOutput, error)
	DetachRolePolicy(ctx context.Context, in *iam.DetachRolePolicyInput, opts ...func(*iam.Options)) (*iam.DetachRolePolicyOutput, error)
	DeleteRole(ctx context.Context, in *iam.DeleteRoleInput, opts ...func(*iam.Options)) (*iam.DeleteRoleOutput, error)
}

// RedshiftAPI is the subset of the Redshift client used to manage the cluster.
type RedshiftAPI interface {
	DescribeClusters(ctx context.Context, in *redshift.DescribeClustersInput, opts ...func(*redshift.Options)) (*redshift.DescribeClustersOutput, error)
	CreateCluster(ctx context.Context, in *redshift.CreateClusterInput, opts ...func(*redshift.Options)) (*redshift.CreateClusterOutput, error)
	DeleteCluster(ctx context.Context, in *redshift.DeleteClusterInput, opts ...func(*redshift.Options)) (*redshift.DeleteClusterOutput, error)
}

// STSAPI verifies the configured credentials.
type STSAPI interface {
	GetCallerIdentity(ctx context.Context, in *sts.GetCallerIdentityInput, opts ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// S3API lists staged source objects.
type S3API interface {
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Clients bundles the service clients the pipeline talks to.
type Clients struct {
	IAM      IAMAPI
	Redshift RedshiftAPI
	STS      STSAPI
	S3       S3API
}

// CallerIdentity holds AWS STS caller identity information.
type CallerIdentity struct {
	Account string
	ARN     string
	UserID  string
}

// Cluster status values reported by Redshift.
const (
	StatusCreating  = "creating"
	StatusAvailable = "available"
	StatusDeleting  = "deleting"
)

// ClusterState is a point-in-time view of the cluster. It is fetched on
// demand and never cached.
type ClusterState struct {
	Identifier string
	Status     string
	Endpoint   string
	Port       int
	RoleARNs   []string
}

// Available reports whether the cluster accepts connections.
func (s ClusterState) Available() bool {
	return s.Status == StatusAvailable && s.Endpoint != ""
}

// RedshiftTrustPolicy lets Redshift assume the pipeline role.
const RedshiftTrustPolicy = `{
  "Version": "2012-10-17",
  "Statement": [
    {
      "Effect": "Allow",
      "Principal": {
        "Service": "redshift.amazonaws.com"
      },
      "Action": "sts:AssumeRole"
    }
  ]
}`

const roleDescription = "Allows Redshift clusters to call AWS services on your behalf."
