package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sparkify/dwh/internal/aws"
	"github.com/sparkify/dwh/internal/config"
	"github.com/sparkify/dwh/internal/lock"
	"github.com/sparkify/dwh/internal/logging"
	"github.com/sparkify/dwh/internal/pipeline"
	"github.com/sparkify/dwh/internal/state"
)

// runtime is everything an action command needs.
type runtime struct {
	cfg      *config.Config
	logger   *slog.Logger
	pipeline *pipeline.Pipeline
	lockPath string
}

// loadConfig reads and validates the config file named by --config.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath())
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newRuntime loads the config, sets up logging and the AWS clients, and
// builds the pipeline. With exclusive set it also takes the run lock.
func newRuntime(ctx context.Context, exclusive bool) (*runtime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	level := cfg.Pipeline.LogLevel
	if l := v.GetString("log-level"); l != "" {
		level = l
	}
	logger, err := logging.Setup(level, cfg.Pipeline.LogDir)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	rt := &runtime{cfg: cfg, logger: logger}
	if exclusive {
		path := lock.PathFor(cfg.Pipeline.StateFile)
		if err := lock.Acquire(path); err != nil {
			return nil, err
		}
		rt.lockPath = path
	}

	clients, err := aws.NewClients(ctx, cfg)
	if err != nil {
		rt.close()
		return nil, err
	}

	st, err := state.Load(cfg.Pipeline.StateFile)
	if err != nil {
		rt.close()
		return nil, err
	}

	controller := aws.NewController(clients, cfg, logger)
	deps := pipeline.Deps{
		Controller: controller,
		Poller: aws.NewPoller(controller, aws.PollerConfig{
			Interval: cfg.Pipeline.PollInterval,
			Timeout:  cfg.Pipeline.PollTimeout,
			Logger:   logger,
		}),
		State:     st,
		StatePath: cfg.Pipeline.StateFile,
		Out:       os.Stdout,
		Logger:    logger,
	}
	if !cfg.Pipeline.SkipPreflight {
		deps.Sources = aws.NewSourceChecker(clients.S3, logger)
	}
	rt.pipeline = pipeline.New(cfg, deps)
	return rt, nil
}

func (rt *runtime) close() {
	if rt.lockPath == "" {
		return
	}
	if err := lock.Release(rt.lockPath); err != nil {
		rt.logger.Warn("releasing lock", "error", err)
	}
	rt.lockPath = ""
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
