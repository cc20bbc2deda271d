package aws

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/aws/aws-sdk-go-v2/service/redshift"
	rstypes "github.com/aws/aws-sdk-go-v2/service/redshift/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

const mockAccount = "123456789012"

// MockIAM is an in-memory IAM test double. It returns the same typed
// errors as the real service.
type MockIAM struct {
	mu       sync.Mutex
	roles    map[string]iamtypes.Role
	policies map[string][]string

	CreateErr error
	AttachErr error
	DetachErr error
	DeleteErr error

	// Track calls
	Calls []string
}

// NewMockIAM creates an empty MockIAM.
func NewMockIAM() *MockIAM {
	return &MockIAM{
		roles:    make(map[string]iamtypes.Role),
		policies: make(map[string][]string),
	}
}

// HasRole reports whether the named role exists.
func (m *MockIAM) HasRole(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.roles[name]
	return ok
}

// RoleCount is the number of roles held.
func (m *MockIAM) RoleCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.roles)
}

// AttachedPolicies returns the policy ARNs attached to the named role.
func (m *MockIAM) AttachedPolicies(name string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.policies[name])
}

func (m *MockIAM) record(call string) {
	m.Calls = append(m.Calls, call)
}

func noSuchRole(name string) error {
	return &iamtypes.NoSuchEntityException{Message: aws.String(fmt.Sprintf("The role with name %s cannot be found.", name))}
}

func (m *MockIAM) GetRole(_ context.Context, in *iam.GetRoleInput, _ ...func(*iam.Options)) (*iam.GetRoleOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("GetRole")

	name := aws.ToString(in.RoleName)
	role, ok := m.roles[name]
	if !ok {
		return nil, noSuchRole(name)
	}
	return &iam.GetRoleOutput{Role: &role}, nil
}

func (m *MockIAM) CreateRole(_ context.Context, in *iam.CreateRoleInput, _ ...func(*iam.Options)) (*iam.CreateRoleOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("CreateRole")

	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	name := aws.ToString(in.RoleName)
	if _, ok := m.roles[name]; ok {
		return nil, &iamtypes.EntityAlreadyExistsException{Message: aws.String(fmt.Sprintf("Role with name %s already exists.", name))}
	}
	role := iamtypes.Role{
		RoleName:                 in.RoleName,
		Path:                     in.Path,
		Description:              in.Description,
		AssumeRolePolicyDocument: in.AssumeRolePolicyDocument,
		Arn:                      aws.String(fmt.Sprintf("arn:aws:iam::%s:role/%s", mockAccount, name)),
	}
	m.roles[name] = role
	return &iam.CreateRoleOutput{Role: &role}, nil
}

func (m *MockIAM) AttachRolePolicy(_ context.Context, in *iam.AttachRolePolicyInput, _ ...func(*iam.Options)) (*iam.AttachRolePolicyOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("AttachRolePolicy")

	if m.AttachErr != nil {
		return nil, m.AttachErr
	}
	name := aws.ToString(in.RoleName)
	if _, ok := m.roles[name]; !ok {
		return nil, noSuchRole(name)
	}
	arn := aws.ToString(in.PolicyArn)
	if !slices.Contains(m.policies[name], arn) {
		m.policies[name] = append(m.policies[name], arn)
	}
	return &iam.AttachRolePolicyOutput{}, nil
}

func (m *MockIAM) DetachRolePolicy(_ context.Context, in *iam.DetachRolePolicyInput, _ ...func(*iam.Options)) (*iam.DetachRolePolicyOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("DetachRolePolicy")

	if m.DetachErr != nil {
		return nil, m.DetachErr
	}
	name := aws.ToString(in.RoleName)
	if _, ok := m.roles[name]; !ok {
		return nil, noSuchRole(name)
	}
	arn := aws.ToString(in.PolicyArn)
	i := slices.Index(m.policies[name], arn)
	if i < 0 {
		return nil, &iamtypes.NoSuchEntityException{Message: aws.String(fmt.Sprintf("Policy %s was not found.", arn))}
	}
	m.policies[name] = slices.Delete(m.policies[name], i, i+1)
	return &iam.DetachRolePolicyOutput{}, nil
}

func (m *MockIAM) DeleteRole(_ context.Context, in *iam.DeleteRoleInput, _ ...func(*iam.Options)) (*iam.DeleteRoleOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("DeleteRole")

	if m.DeleteErr != nil {
		return nil, m.DeleteErr
	}
	name := aws.ToString(in.RoleName)
	if _, ok := m.roles[name]; !ok {
		return nil, noSuchRole(name)
	}
	if len(m.policies[name]) > 0 {
		return nil, &iamtypes.DeleteConflictException{Message: aws.String("Cannot delete entity, must detach all policies first.")}
	}
	delete(m.roles, name)
	delete(m.policies, name)
	return &iam.DeleteRoleOutput{}, nil
}

// MockRedshift is an in-memory Redshift test double. New clusters start in
// the first status of Statuses; each DescribeClusters call on an existing
// cluster advances one step. With no Statuses clusters are available at once.
type MockRedshift struct {
	mu       sync.Mutex
	clusters map[string]*rstypes.Cluster
	ports    map[string]*int32

	Region   string
	Statuses []string

	DescribeErr error
	CreateErr   error
	DeleteErr   error

	// Track calls
	DescribeCalls int
	CreateInputs  []redshift.CreateClusterInput
	DeleteInputs  []redshift.DeleteClusterInput
}

// NewMockRedshift creates an empty MockRedshift in us-west-2.
func NewMockRedshift() *MockRedshift {
	return &MockRedshift{
		clusters: make(map[string]*rstypes.Cluster),
		ports:    make(map[string]*int32),
		Region:   "us-west-2",
	}
}

// ClusterCount is the number of clusters held.
func (m *MockRedshift) ClusterCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.clusters)
}

// Remove drops a cluster, as if it were deleted out of band.
func (m *MockRedshift) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.clusters, id)
}

func (m *MockRedshift) setStatus(cl *rstypes.Cluster, status string) {
	cl.ClusterStatus = aws.String(status)
	if status == StatusAvailable && cl.Endpoint == nil {
		id := aws.ToString(cl.ClusterIdentifier)
		cl.Endpoint = &rstypes.Endpoint{
			Address: aws.String(fmt.Sprintf("%s.cabc123xyz.%s.redshift.amazonaws.com", strings.ToLower(id), m.Region)),
			Port:    m.ports[id],
		}
	}
}

func (m *MockRedshift) DescribeClusters(_ context.Context, in *redshift.DescribeClustersInput, _ ...func(*redshift.Options)) (*redshift.DescribeClustersOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DescribeCalls++

	if m.DescribeErr != nil {
		return nil, m.DescribeErr
	}
	id := aws.ToString(in.ClusterIdentifier)
	cl, ok := m.clusters[id]
	if !ok {
		return nil, &rstypes.ClusterNotFoundFault{Message: aws.String(fmt.Sprintf("Cluster %s not found.", id))}
	}
	if len(m.Statuses) > 0 {
		m.setStatus(cl, m.Statuses[0])
		m.Statuses = m.Statuses[1:]
	}
	return &redshift.DescribeClustersOutput{Clusters: []rstypes.Cluster{*cl}}, nil
}

func (m *MockRedshift) CreateCluster(_ context.Context, in *redshift.CreateClusterInput, _ ...func(*redshift.Options)) (*redshift.CreateClusterOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateInputs = append(m.CreateInputs, *in)

	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	id := aws.ToString(in.ClusterIdentifier)
	if _, ok := m.clusters[id]; ok {
		return nil, &rstypes.ClusterAlreadyExistsFault{Message: aws.String("Cluster already exists")}
	}

	cl := &rstypes.Cluster{
		ClusterIdentifier: in.ClusterIdentifier,
		NodeType:          in.NodeType,
		DBName:            in.DBName,
		MasterUsername:    in.MasterUsername,
	}
	for _, arn := range in.IamRoles {
		cl.IamRoles = append(cl.IamRoles, rstypes.ClusterIamRole{
			IamRoleArn:  aws.String(arn),
			ApplyStatus: aws.String("in-sync"),
		})
	}
	m.clusters[id] = cl
	m.ports[id] = in.Port

	if len(m.Statuses) > 0 {
		cl.ClusterStatus = aws.String(StatusCreating)
	} else {
		m.setStatus(cl, StatusAvailable)
	}
	return &redshift.CreateClusterOutput{Cluster: cl}, nil
}

func (m *MockRedshift) DeleteCluster(_ context.Context, in *redshift.DeleteClusterInput, _ ...func(*redshift.Options)) (*redshift.DeleteClusterOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteInputs = append(m.DeleteInputs, *in)

	if m.DeleteErr != nil {
		return nil, m.DeleteErr
	}
	id := aws.ToString(in.ClusterIdentifier)
	cl, ok := m.clusters[id]
	if !ok {
		return nil, &rstypes.ClusterNotFoundFault{Message: aws.String(fmt.Sprintf("Cluster %s not found.", id))}
	}
	delete(m.clusters, id)
	delete(m.ports, id)
	cl.ClusterStatus = aws.String(StatusDeleting)
	return &redshift.DeleteClusterOutput{Cluster: cl}, nil
}

// MockSTS returns a fixed caller identity.
type MockSTS struct {
	Err error
}

func (m *MockSTS) GetCallerIdentity(_ context.Context, _ *sts.GetCallerIdentityInput, _ ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return &sts.GetCallerIdentityOutput{
		Account: aws.String(mockAccount),
		Arn:     aws.String("arn:aws:iam::" + mockAccount + ":user/dwh"),
		UserId:  aws.String("AIDAEXAMPLE"),
	}, nil
}

// MockS3 lists keys from an in-memory bucket map.
type MockS3 struct {
	Objects map[string][]string // bucket → keys
	Err     error
}

func (m *MockS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	prefix := aws.ToString(in.Prefix)
	limit := int(aws.ToInt32(in.MaxKeys))

	out := &s3.ListObjectsV2Output{}
	for _, key := range m.Objects[aws.ToString(in.Bucket)] {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		out.Contents = append(out.Contents, s3types.Object{Key: aws.String(key)})
		if limit > 0 && len(out.Contents) == limit {
			break
		}
	}
	return out, nil
}

// NewMockClients wires fresh mocks into a Clients bundle.
func NewMockClients() (*Clients, *MockIAM, *MockRedshift) {
	iamMock := NewMockIAM()
	rsMock := NewMockRedshift()
	return &Clients{
		IAM:      iamMock,
		Redshift: rsMock,
		STS:      &MockSTS{},
		S3:       &MockS3{Objects: map[string][]string{}},
	}, iamMock, rsMock
}
