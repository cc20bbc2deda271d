package aws

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/redshift"
	rstypes "github.com/aws/aws-sdk-go-v2/service/redshift/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/sparkify/dwh/internal/config"
)

// Controller creates, inspects and deletes the IAM role and Redshift
// cluster named in the configuration. It holds no cluster state of its own;
// every query goes to the provider.
type Controller struct {
	iam      IAMAPI
	redshift RedshiftAPI
	sts      STSAPI
	cluster  config.ClusterSpec
	role     config.RoleSpec
	logger   *slog.Logger
}

// NewController creates a controller for the cluster and role in cfg.
func NewController(clients *Clients, cfg *config.Config, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		iam:      clients.IAM,
		redshift: clients.Redshift,
		sts:      clients.STS,
		cluster:  cfg.Cluster,
		role:     cfg.Role,
		logger:   logger,
	}
}

// Identifier is the cluster identifier every operation is keyed on.
func (c *Controller) Identifier() string {
	return c.cluster.Identifier
}

// Region is the region the cluster lives in.
func (c *Controller) Region() string {
	return c.cluster.Region
}

// VerifyCredentials checks the configured credentials using STS.
func (c *Controller) VerifyCredentials(ctx context.Context) (*CallerIdentity, error) {
	out, err := c.sts.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, fmt.Errorf("getting caller identity: %w", err)
	}

	return &CallerIdentity{
		Account: aws.ToString(out.Account),
		ARN:     aws.ToString(out.Arn),
		UserID:  aws.ToString(out.UserId),
	}, nil
}

// ClusterExists reports whether the provider knows the cluster. Only a
// cluster-not-found fault means false; other errors are returned.
func (c *Controller) ClusterExists(ctx context.Context) (bool, error) {
	cluster, err := c.GetCluster(ctx)
	if err != nil {
		return false, err
	}
	return cluster != nil, nil
}

// GetCluster returns the current cluster state, or nil without error when
// the cluster does not exist.
func (c *Controller) GetCluster(ctx context.Context) (*ClusterState, error) {
	out, err := c.redshift.DescribeClusters(ctx, &redshift.DescribeClustersInput{
		ClusterIdentifier: aws.String(c.cluster.Identifier),
	})
	if err != nil {
		if isClusterNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("describing cluster %s: %w", c.cluster.Identifier, err)
	}
	if len(out.Clusters) == 0 {
		return nil, nil
	}
	return toClusterState(out.Clusters[0]), nil
}

// Endpoint returns the cluster's host address.
func (c *Controller) Endpoint(ctx context.Context) (string, error) {
	cluster, err := c.requireCluster(ctx)
	if err != nil {
		return "", err
	}
	if cluster.Endpoint == "" {
		return "", fmt.Errorf("cluster %s (status %s): %w", cluster.Identifier, cluster.Status, ErrEndpointNotReady)
	}
	return cluster.Endpoint, nil
}

// AttachedRoleARN returns the first IAM role ARN attached to the cluster.
func (c *Controller) AttachedRoleARN(ctx context.Context) (string, error) {
	cluster, err := c.requireCluster(ctx)
	if err != nil {
		return "", err
	}
	if len(cluster.RoleARNs) == 0 {
		return "", fmt.Errorf("cluster %s: %w", cluster.Identifier, ErrNoRoleAttached)
	}
	return cluster.RoleARNs[0], nil
}

func (c *Controller) requireCluster(ctx context.Context) (*ClusterState, error) {
	cluster, err := c.GetCluster(ctx)
	if err != nil {
		return nil, err
	}
	if cluster == nil {
		return nil, fmt.Errorf("cluster %s: %w", c.cluster.Identifier, ErrClusterNotFound)
	}
	return cluster, nil
}

// CreateCluster requests a new cluster with the configured role attached.
// It returns once the request is accepted; use a Poller to wait for it.
func (c *Controller) CreateCluster(ctx context.Context) error {
	roleARN, err := c.RoleARN(ctx)
	if err != nil {
		return err
	}

	in := &redshift.CreateClusterInput{
		ClusterIdentifier:  aws.String(c.cluster.Identifier),
		ClusterType:        aws.String(c.cluster.ClusterType),
		NodeType:           aws.String(c.cluster.NodeType),
		DBName:             aws.String(c.cluster.DBName),
		MasterUsername:     aws.String(c.cluster.MasterUser),
		MasterUserPassword: aws.String(c.cluster.MasterPassword),
		Port:               aws.Int32(int32(c.cluster.Port)),
		IamRoles:           []string{roleARN},
	}
	// Redshift rejects a node count on single-node clusters.
	if c.cluster.ClusterType != config.SingleNode {
		in.NumberOfNodes = aws.Int32(int32(c.cluster.NumNodes))
	}

	if _, err := c.redshift.CreateCluster(ctx, in); err != nil {
		var exists *rstypes.ClusterAlreadyExistsFault
		if errors.As(err, &exists) {
			return fmt.Errorf("creating cluster %s: already exists: %w", c.cluster.Identifier, err)
		}
		return fmt.Errorf("creating cluster %s: %w", c.cluster.Identifier, err)
	}

	c.logger.Info("cluster creation requested",
		"cluster", c.cluster.Identifier,
		"node_type", c.cluster.NodeType,
		"nodes", c.cluster.NumNodes,
		"role_arn", roleARN,
	)
	return nil
}

// DeleteCluster requests deletion without a final snapshot. A missing
// cluster is not an error. It does not wait for deletion to finish.
func (c *Controller) DeleteCluster(ctx context.Context) error {
	exists, err := c.ClusterExists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		c.logger.Info("cluster does not exist, nothing to delete", "cluster", c.cluster.Identifier)
		return nil
	}

	_, err = c.redshift.DeleteCluster(ctx, &redshift.DeleteClusterInput{
		ClusterIdentifier:        aws.String(c.cluster.Identifier),
		SkipFinalClusterSnapshot: aws.Bool(true),
	})
	if err != nil {
		if isClusterNotFound(err) {
			return nil
		}
		return fmt.Errorf("deleting cluster %s: %w", c.cluster.Identifier, err)
	}

	c.logger.Info("cluster deletion requested", "cluster", c.cluster.Identifier)
	return nil
}

// RoleARN looks up the configured role's ARN.
func (c *Controller) RoleARN(ctx context.Context) (string, error) {
	out, err := c.iam.GetRole(ctx, &iam.GetRoleInput{RoleName: aws.String(c.role.RoleName)})
	if err != nil {
		err = classifyIAM(err)
		if errors.Is(err, ErrRoleEntityNotFound) {
			return "", fmt.Errorf("role %s: %w", c.role.RoleName, ErrRoleNotFound)
		}
		return "", fmt.Errorf("getting role %s: %w", c.role.RoleName, err)
	}
	return aws.ToString(out.Role.Arn), nil
}

// CreateRole creates the role Redshift assumes to read from S3. An existing
// role is left as is.
func (c *Controller) CreateRole(ctx context.Context) error {
	_, err := c.iam.CreateRole(ctx, &iam.CreateRoleInput{
		RoleName:                 aws.String(c.role.RoleName),
		Path:                     aws.String("/"),
		Description:              aws.String(roleDescription),
		AssumeRolePolicyDocument: aws.String(RedshiftTrustPolicy),
	})
	if err != nil {
		err = classifyIAM(err)
		if errors.Is(err, ErrRoleAlreadyExists) {
			c.logger.Info("role already exists, not creating", "role", c.role.RoleName)
			return nil
		}
		return fmt.Errorf("creating role %s: %w", c.role.RoleName, err)
	}

	c.logger.Info("role created", "role", c.role.RoleName)
	return nil
}

// AttachPolicy attaches the configured policy to the role.
func (c *Controller) AttachPolicy(ctx context.Context) error {
	_, err := c.iam.AttachRolePolicy(ctx, &iam.AttachRolePolicyInput{
		RoleName:  aws.String(c.role.RoleName),
		PolicyArn: aws.String(c.role.PolicyARN),
	})
	if err != nil {
		return fmt.Errorf("attaching policy %s to role %s: %w", c.role.PolicyARN, c.role.RoleName, classifyIAM(err))
	}

	c.logger.Info("policy attached", "role", c.role.RoleName, "policy", c.role.PolicyARN)
	return nil
}

// DetachPolicy detaches the configured policy. A missing role or attachment
// is not an error.
func (c *Controller) DetachPolicy(ctx context.Context) error {
	_, err := c.iam.DetachRolePolicy(ctx, &iam.DetachRolePolicyInput{
		RoleName:  aws.String(c.role.RoleName),
		PolicyArn: aws.String(c.role.PolicyARN),
	})
	if err != nil {
		err = classifyIAM(err)
		if errors.Is(err, ErrRoleEntityNotFound) {
			c.logger.Info("policy not attached, nothing to detach", "role", c.role.RoleName)
			return nil
		}
		return fmt.Errorf("detaching policy from role %s: %w", c.role.RoleName, err)
	}

	c.logger.Info("policy detached", "role", c.role.RoleName, "policy", c.role.PolicyARN)
	return nil
}

// RemoveRole deletes the role itself. The policy must already be detached.
// A missing role is not an error.
func (c *Controller) RemoveRole(ctx context.Context) error {
	_, err := c.iam.DeleteRole(ctx, &iam.DeleteRoleInput{RoleName: aws.String(c.role.RoleName)})
	if err != nil {
		err = classifyIAM(err)
		if errors.Is(err, ErrRoleEntityNotFound) {
			c.logger.Info("role does not exist, nothing to delete", "role", c.role.RoleName)
			return nil
		}
		return fmt.Errorf("deleting role %s: %w", c.role.RoleName, err)
	}

	c.logger.Info("role deleted", "role", c.role.RoleName)
	return nil
}

// DeleteRole detaches the policy and deletes the role.
func (c *Controller) DeleteRole(ctx context.Context) error {
	if err := c.DetachPolicy(ctx); err != nil {
		return err
	}
	return c.RemoveRole(ctx)
}

func toClusterState(cl rstypes.Cluster) *ClusterState {
	state := &ClusterState{
		Identifier: aws.ToString(cl.ClusterIdentifier),
		Status:     aws.ToString(cl.ClusterStatus),
	}
	if cl.Endpoint != nil {
		state.Endpoint = aws.ToString(cl.Endpoint.Address)
		state.Port = int(aws.ToInt32(cl.Endpoint.Port))
	}
	for _, r := range cl.IamRoles {
		if arn := aws.ToString(r.IamRoleArn); arn != "" {
			state.RoleARNs = append(state.RoleARNs, arn)
		}
	}
	return state
}
