package aws

import (
	"errors"

	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	rstypes "github.com/aws/aws-sdk-go-v2/service/redshift/types"
	"github.com/aws/smithy-go"
)

var (
	ErrClusterNotFound     = errors.New("cluster not found")
	ErrRoleNotFound        = errors.New("IAM role not found")
	ErrRoleAlreadyExists   = errors.New("IAM role already exists")
	ErrRoleEntityNotFound  = errors.New("IAM role or policy attachment not found")
	ErrProvisioningTimeout = errors.New("timed out waiting for cluster to become available")
	ErrEndpointNotReady    = errors.New("cluster endpoint not available yet")
	ErrNoRoleAttached      = errors.New("cluster has no IAM role attached")
	ErrSourceEmpty         = errors.New("no objects found under source prefix")
)

// classifyIAM tags provider errors with the matching sentinel so callers
// can use errors.Is without knowing SDK types.
func classifyIAM(err error) error {
	if err == nil {
		return nil
	}
	var exists *iamtypes.EntityAlreadyExistsException
	if errors.As(err, &exists) || apiErrorCode(err) == "EntityAlreadyExists" {
		return errors.Join(ErrRoleAlreadyExists, err)
	}
	var missing *iamtypes.NoSuchEntityException
	if errors.As(err, &missing) || apiErrorCode(err) == "NoSuchEntity" {
		return errors.Join(ErrRoleEntityNotFound, err)
	}
	return err
}

func isClusterNotFound(err error) bool {
	var nf *rstypes.ClusterNotFoundFault
	return errors.As(err, &nf) || apiErrorCode(err) == "ClusterNotFound"
}

func apiErrorCode(err error) string {
	var ae smithy.APIError
	if errors.As(err, &ae) {
		return ae.ErrorCode()
	}
	return ""
}
