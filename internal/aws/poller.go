package aws

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/juju/clock"
)

const (
	DefaultPollInterval = 5 * time.Second
	DefaultPollTimeout  = 30 * time.Minute
)

// ClusterReader fetches the current cluster state. *Controller implements it.
type ClusterReader interface {
	Identifier() string
	GetCluster(ctx context.Context) (*ClusterState, error)
}

// PollerConfig tunes a Poller. Zero values take the defaults; a negative
// Timeout disables the deadline.
type PollerConfig struct {
	Interval time.Duration
	Timeout  time.Duration
	Clock    clock.Clock
	Logger   *slog.Logger
}

// Poller blocks until the cluster reports available.
type Poller struct {
	clusters ClusterReader
	interval time.Duration
	timeout  time.Duration
	clock    clock.Clock
	logger   *slog.Logger
}

// NewPoller creates a poller over clusters.
func NewPoller(clusters ClusterReader, cfg PollerConfig) *Poller {
	p := &Poller{
		clusters: clusters,
		interval: cfg.Interval,
		timeout:  cfg.Timeout,
		clock:    cfg.Clock,
		logger:   cfg.Logger,
	}
	if p.interval <= 0 {
		p.interval = DefaultPollInterval
	}
	if p.timeout == 0 {
		p.timeout = DefaultPollTimeout
	}
	if p.clock == nil {
		p.clock = clock.WallClock
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// WaitForAvailable polls the cluster once per interval until it reports
// available, and returns that final state. A cluster that is missing at
// the start or disappears while polling fails with ErrClusterNotFound.
// observe, if non-nil, is called with every fetched state.
func (p *Poller) WaitForAvailable(ctx context.Context, observe func(ClusterState)) (*ClusterState, error) {
	id := p.clusters.Identifier()

	state, err := p.clusters.GetCluster(ctx)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, fmt.Errorf("waiting for cluster %s: %w", id, ErrClusterNotFound)
	}

	start := p.clock.Now()
	for polls := 1; ; polls++ {
		if observe != nil {
			observe(*state)
		}
		p.logger.Info("cluster status", "cluster", id, "status", state.Status, "poll", polls)

		if state.Status == StatusAvailable {
			return state, nil
		}
		// Only a freshly fetched state can time out.
		if p.timeout > 0 && p.clock.Now().Sub(start) >= p.timeout {
			return nil, fmt.Errorf("cluster %s still %q after %s: %w", id, state.Status, p.timeout, ErrProvisioningTimeout)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for cluster %s: %w", id, ctx.Err())
		case <-p.clock.After(p.interval):
		}

		state, err = p.clusters.GetCluster(ctx)
		if err != nil {
			return nil, err
		}
		if state == nil {
			return nil, fmt.Errorf("cluster %s disappeared while waiting: %w", id, ErrClusterNotFound)
		}
	}
}
