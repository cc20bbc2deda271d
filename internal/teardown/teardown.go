package teardown

import (
	"context"
	"fmt"
	"log/slog"
)

// Resources removes the pipeline's cloud resources. Each method treats an
// already-missing resource as success. *aws.Controller implements it.
type Resources interface {
	DetachPolicy(ctx context.Context) error
	RemoveRole(ctx context.Context) error
	DeleteCluster(ctx context.Context) error
}

// Step names, in execution order.
const (
	StepDetachPolicy  = "detach-policy"
	StepDeleteRole    = "delete-role"
	StepDeleteCluster = "delete-cluster"
)

// Result records which steps finished.
type Result struct {
	PolicyDetached   bool `yaml:"policy_detached"`
	RoleDeleted      bool `yaml:"role_deleted"`
	ClusterRequested bool `yaml:"cluster_deletion_requested"`
}

// Completed lists the finished steps in order.
func (r *Result) Completed() []string {
	var steps []string
	if r.PolicyDetached {
		steps = append(steps, StepDetachPolicy)
	}
	if r.RoleDeleted {
		steps = append(steps, StepDeleteRole)
	}
	if r.ClusterRequested {
		steps = append(steps, StepDeleteCluster)
	}
	return steps
}

// Sequencer removes resources in dependency order: detach the policy,
// delete the role, then delete the cluster.
type Sequencer struct {
	resources Resources
	logger    *slog.Logger
}

// New creates a sequencer over resources.
func New(resources Resources, logger *slog.Logger) *Sequencer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sequencer{resources: resources, logger: logger}
}

// Run executes every step. The first error stops the sequence; the result
// still reports the steps that finished before it. announce, if non-nil,
// is called with each step name before it runs.
func (s *Sequencer) Run(ctx context.Context, announce func(step string)) (*Result, error) {
	result := &Result{}

	steps := []struct {
		name string
		run  func(context.Context) error
		done *bool
	}{
		{StepDetachPolicy, s.resources.DetachPolicy, &result.PolicyDetached},
		{StepDeleteRole, s.resources.RemoveRole, &result.RoleDeleted},
		{StepDeleteCluster, s.resources.DeleteCluster, &result.ClusterRequested},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("teardown interrupted before %s: %w", step.name, err)
		}
		if announce != nil {
			announce(step.name)
		}
		if err := step.run(ctx); err != nil {
			s.logger.Error("teardown step failed", "step", step.name, "error", err)
			return result, fmt.Errorf("teardown %s: %w", step.name, err)
		}
		*step.done = true
		s.logger.Info("teardown step complete", "step", step.name)
	}

	return result, nil
}
