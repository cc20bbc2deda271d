package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	rstypes "github.com/aws/aws-sdk-go-v2/service/redshift/types"

	"github.com/sparkify/dwh/internal/aws"
	"github.com/sparkify/dwh/internal/config"
	"github.com/sparkify/dwh/internal/queries"
	"github.com/sparkify/dwh/internal/state"
	"github.com/sparkify/dwh/internal/teardown"
	"github.com/sparkify/dwh/internal/warehouse"
)

// ConnectFunc opens a warehouse connection.
type ConnectFunc func(ctx context.Context, cfg warehouse.ConnConfig) (*warehouse.Conn, error)

// Deps are the collaborators a Pipeline drives. Controller and Poller are
// required; the rest have defaults.
type Deps struct {
	Controller *aws.Controller
	Poller     *aws.Poller
	Sources    *aws.SourceChecker // nil skips the preflight
	Connect    ConnectFunc
	State      *state.State
	StatePath  string
	Out        io.Writer
	Logger     *slog.Logger
}

// Pipeline runs the provision, create-tables, etl and teardown actions.
type Pipeline struct {
	cfg        *config.Config
	controller *aws.Controller
	poller     *aws.Poller
	sources    *aws.SourceChecker
	connect    ConnectFunc
	state      *state.State
	statePath  string
	out        io.Writer
	logger     *slog.Logger
}

// New creates a pipeline for cfg.
func New(cfg *config.Config, deps Deps) *Pipeline {
	p := &Pipeline{
		cfg:        cfg,
		controller: deps.Controller,
		poller:     deps.Poller,
		sources:    deps.Sources,
		connect:    deps.Connect,
		state:      deps.State,
		statePath:  deps.StatePath,
		out:        deps.Out,
		logger:     deps.Logger,
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.out == nil {
		p.out = io.Discard
	}
	if p.state == nil {
		p.state = state.New()
	}
	if p.statePath == "" {
		p.statePath = cfg.Pipeline.StateFile
	}
	if p.connect == nil {
		logger := p.logger
		p.connect = func(ctx context.Context, cc warehouse.ConnConfig) (*warehouse.Conn, error) {
			return warehouse.Open(ctx, cc, logger)
		}
	}
	return p
}

// State returns the pipeline's state record.
func (p *Pipeline) State() *state.State {
	return p.state
}

func (p *Pipeline) say(format string, args ...any) {
	fmt.Fprintf(p.out, format+"\n", args...)
}

// Provision creates the role, attaches the policy, requests the cluster and
// blocks until it is available. A cluster that already exists is waited on
// rather than recreated. observe, if non-nil, sees every polled state.
func (p *Pipeline) Provision(ctx context.Context, observe func(aws.ClusterState)) (*aws.ClusterState, error) {
	p.say("Creating IAM role")
	if err := p.controller.CreateRole(ctx); err != nil {
		return nil, err
	}

	p.say("Attaching policy to IAM role")
	if err := p.controller.AttachPolicy(ctx); err != nil {
		return nil, err
	}

	p.say("Creating Redshift cluster. This might take a few minutes...")
	if err := p.controller.CreateCluster(ctx); err != nil {
		var exists *rstypes.ClusterAlreadyExistsFault
		if !errors.As(err, &exists) {
			return nil, err
		}
		p.logger.Info("cluster already exists, waiting for it", "cluster", p.controller.Identifier())
	}

	cluster, err := p.poller.WaitForAvailable(ctx, observe)
	if err != nil {
		return nil, err
	}

	record := &state.ClusterRecord{
		Identifier: cluster.Identifier,
		Endpoint:   cluster.Endpoint,
		Region:     p.controller.Region(),
	}
	if len(cluster.RoleARNs) > 0 {
		record.RoleARN = cluster.RoleARNs[0]
	}
	p.state.Cluster = record
	p.state.Complete(state.PhaseProvisioned)
	p.saveState()

	p.say("Success! Cluster created.")
	p.say("Endpoint: %s", cluster.Endpoint)
	return cluster, nil
}

// ResetSchema drops every table and recreates it.
func (p *Pipeline) ResetSchema(ctx context.Context) error {
	qs, err := p.querySet(queries.CopyParams{})
	if err != nil {
		return err
	}

	conn, err := p.open(ctx)
	if err != nil {
		return err
	}
	defer p.close(conn)

	p.say("Resetting tables.")
	m := warehouse.NewMigrator(conn)
	if err := m.DropAll(ctx, qs.Drop); err != nil {
		return err
	}
	if err := m.CreateAll(ctx, qs.Create); err != nil {
		return err
	}
	p.say("Finished!")

	p.state.Complete(state.PhaseSchemaCreated)
	delete(p.state.Phases, state.PhaseLoaded)
	p.state.RowCounts = nil
	p.saveState()
	return nil
}

// Load copies the S3 sources into the staging tables and then fills the
// star schema from them.
func (p *Pipeline) Load(ctx context.Context) error {
	roleARN, err := p.controller.AttachedRoleARN(ctx)
	if err != nil {
		return err
	}

	qs, err := p.querySet(queries.CopyParams{
		LogData:     p.cfg.S3.LogData,
		LogJSONPath: p.cfg.S3.LogJSONPath,
		SongData:    p.cfg.S3.SongData,
		RoleARN:     roleARN,
		Region:      p.controller.Region(),
	})
	if err != nil {
		return err
	}

	if err := p.preflight(ctx); err != nil {
		return err
	}

	conn, err := p.open(ctx)
	if err != nil {
		return err
	}
	defer p.close(conn)

	loader := warehouse.NewLoader(conn)

	p.say("Loading staging tables. Please wait...")
	if err := loader.LoadStaging(ctx, qs.Copy); err != nil {
		return err
	}
	p.say("Finished!")

	p.say("Loading dimensional tables. Please wait...")
	if err := loader.Transform(ctx, qs.Transform); err != nil {
		return err
	}
	p.say("Finished!")

	counts, err := conn.RowCounts(ctx, queries.TableNames())
	if err != nil {
		p.logger.Warn("could not count rows", "error", err)
	} else {
		p.state.RowCounts = counts
	}
	p.state.Complete(state.PhaseLoaded)
	p.saveState()
	return nil
}

// Teardown removes the role and the cluster, then forgets the state record.
func (p *Pipeline) Teardown(ctx context.Context) (*teardown.Result, error) {
	result, err := teardown.New(p.controller, p.logger).Run(ctx, func(step string) {
		switch step {
		case teardown.StepDetachPolicy:
			p.say("Deleting IAM role & attached policy.")
		case teardown.StepDeleteCluster:
			p.say("Deleting cluster. This may take a few minutes to reflect in your account.")
		}
	})
	if err != nil {
		return result, err
	}

	p.state.Reset()
	p.saveState()
	p.say("Teardown complete.")
	return result, nil
}

func (p *Pipeline) preflight(ctx context.Context) error {
	if p.sources == nil || p.cfg.Pipeline.SkipPreflight {
		return nil
	}
	for _, uri := range []string{p.cfg.S3.LogData, p.cfg.S3.LogJSONPath, p.cfg.S3.SongData} {
		if err := p.sources.CheckPrefix(ctx, uri); err != nil {
			return fmt.Errorf("source preflight: %w", err)
		}
	}
	return nil
}

func (p *Pipeline) querySet(params queries.CopyParams) (*queries.QuerySet, error) {
	if p.cfg.Pipeline.QueryFile != "" {
		return queries.LoadFile(config.ExpandHome(p.cfg.Pipeline.QueryFile), params)
	}
	return queries.Default(params)
}

func (p *Pipeline) open(ctx context.Context) (*warehouse.Conn, error) {
	host, err := p.controller.Endpoint(ctx)
	if err != nil {
		return nil, err
	}
	return p.connect(ctx, p.connConfig(host))
}

func (p *Pipeline) connConfig(host string) warehouse.ConnConfig {
	return warehouse.ConnConfig{
		Driver:   p.cfg.Pipeline.DBDriver,
		Host:     host,
		Port:     p.cfg.Cluster.Port,
		Database: p.cfg.Cluster.DBName,
		User:     p.cfg.Cluster.MasterUser,
		Password: p.cfg.Cluster.MasterPassword,
		SSLMode:  p.cfg.Pipeline.SSLMode,
	}
}

func (p *Pipeline) close(conn *warehouse.Conn) {
	if err := conn.Close(); err != nil {
		p.logger.Warn("closing warehouse connection", "error", err)
	}
}

func (p *Pipeline) saveState() {
	if err := p.state.Save(p.statePath); err != nil {
		p.logger.Warn("could not save state", "path", p.statePath, "error", err)
	}
}
