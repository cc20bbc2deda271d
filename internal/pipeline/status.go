package pipeline

import (
	"context"

	"github.com/sparkify/dwh/internal/aws"
	"github.com/sparkify/dwh/internal/state"
)

// Report is what the status command shows.
type Report struct {
	Identity *aws.CallerIdentity
	Cluster  *aws.ClusterState // nil when the cluster does not exist
	State    *state.State
}

// Status gathers the caller identity, live cluster state and the local
// state record. Identity failures are logged and leave Identity nil.
func (p *Pipeline) Status(ctx context.Context) (*Report, error) {
	r := &Report{State: p.state}

	id, err := p.controller.VerifyCredentials(ctx)
	if err != nil {
		p.logger.Warn("could not verify credentials", "error", err)
	} else {
		r.Identity = id
	}

	cluster, err := p.controller.GetCluster(ctx)
	if err != nil {
		return nil, err
	}
	r.Cluster = cluster
	return r, nil
}
