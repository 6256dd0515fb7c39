package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cuemby/pulsewave/pkg/api"
	"github.com/cuemby/pulsewave/pkg/cluster"
	"github.com/cuemby/pulsewave/pkg/config"
	"github.com/cuemby/pulsewave/pkg/engine"
	"github.com/cuemby/pulsewave/pkg/log"
	"github.com/cuemby/pulsewave/pkg/telemetry"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a load test against the configured target",
	Long: `Run loads a YAML scenario document, starts the worker pool it
describes, and serves the control-plane HTTP API for the lifetime of
the process.

In cluster mode (CLUSTER_ENABLED=true) every node in the Raft group
runs this same command; only the elected leader accepts new config and
replicates it to followers, which apply it locally.`,
	RunE: runLoadTest,
}

func init() {
	runCmd.Flags().StringP("config", "c", "", "path to the YAML scenario config (required unless cluster mode fetches one externally)")
	runCmd.Flags().String("addr", "", "control-plane HTTP listen address (default: CLUSTER_HEALTH_ADDR or 0.0.0.0:8080)")
	runCmd.Flags().String("data-dir", "./pulsewave-data", "directory for this node's Raft log/snapshots (cluster mode only)")
	runCmd.Flags().String("join-addr", "", "control-plane HTTP address of an existing cluster member to join through (cluster mode only; derived from discovery if unset)")
}

func runLoadTest(cmd *cobra.Command, args []string) error {
	runID := uuid.New().String()
	logger := log.WithRun(runID)

	configPath, _ := cmd.Flags().GetString("config")
	clusterCfg := cluster.LoadConfig()

	rawYAML, err := loadConfigBytes(configPath, clusterCfg)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cfg, err := config.Parse(rawYAML)
	if err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	config.ApplyEnvOverrides(cfg)
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	envCfg := telemetry.LoadEnvConfig()
	hub := telemetry.NewHub(envCfg.MaxHistogramLabels, envCfg.MemGuard, telemetry.DefaultPoolConfig())
	hub.Percentiles.SetEnabled(envCfg.PercentileTrackingEnabled)
	rotationStop := make(chan struct{})
	hub.Percentiles.StartRotation(envCfg.RotationInterval, rotationStop)
	defer close(rotationStop)
	defer hub.Stop()

	pool := engine.NewPool(cfg, hub)
	pool.SetRawYAML(string(rawYAML))

	var node *cluster.Node
	if clusterCfg.Enabled {
		dataDir, _ := cmd.Flags().GetString("data-dir")
		node, err = cluster.New(clusterCfg, dataDir, clusterApplyFunc(pool))
		if err != nil {
			return fmt.Errorf("constructing cluster node: %w", err)
		}
		defer node.Shutdown()

		joinAddr, _ := cmd.Flags().GetString("join-addr")
		if err := joinCluster(node, clusterCfg, joinAddr); err != nil {
			return fmt.Errorf("joining cluster: %w", err)
		}

		if clusterCfg.ConfigSource != "" {
			go watchLeaderConfigFetch(node, clusterCfg)
		}
	}

	pool.Start()
	defer pool.Stop()
	logger.Info().Str("base_url", cfg.Run.BaseURL).Int("workers", cfg.Run.Workers).Msg("load test started")

	if configPath != "" {
		watcher := config.NewWatcher(configPath, 0)
		if err := watcher.Start(); err != nil {
			logger.Warn().Err(err).Msg("hot-reload watcher failed to start")
		} else {
			defer watcher.Stop()
			go watchConfigFile(watcher, configPath, pool, node)
		}
	}

	nodeID := clusterCfg.NodeID
	if nodeID == "" {
		nodeID, _ = os.Hostname()
	}
	server := api.NewServer(pool, node, nodeID, clusterCfg.Region)

	addr := clusterCfg.HealthAddr
	if v, _ := cmd.Flags().GetString("addr"); v != "" {
		addr = v
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		logger.Error().Err(err).Msg("control-plane API server error")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("control-plane API shutdown error")
	}

	logger.Info().Msg("shutdown complete")
	return nil
}

// loadConfigBytes resolves the YAML document this process starts its
// pool with: a local file, or, in cluster mode with CLUSTER_CONFIG_SOURCE
// set, one local call to the external fetcher (§4.18) so the node has
// something to run before the cluster settles on a leader. This seed is
// provisional — once this node (or any other member) is elected leader,
// watchLeaderConfigFetch re-fetches and proposes the result through
// consensus, and every member's pool converges on that committed copy
// via clusterApplyFunc.
func loadConfigBytes(configPath string, clusterCfg cluster.Config) ([]byte, error) {
	if configPath != "" {
		return os.ReadFile(configPath)
	}
	if clusterCfg.Enabled && clusterCfg.ConfigSource != "" {
		ctx, cancel := context.WithTimeout(context.Background(), clusterCfg.ConfigTimeout)
		defer cancel()
		yaml, err := cluster.FetchConfig(ctx, clusterCfg)
		if err != nil {
			return nil, err
		}
		return []byte(yaml), nil
	}
	return nil, fmt.Errorf("--config is required (no CLUSTER_CONFIG_SOURCE fetch configured)")
}

// clusterApplyFunc builds the callback invoked once per committed
// ConfigCommand, on every cluster member, reusing the same parse/
// override/validate path as a local config load.
func clusterApplyFunc(pool *engine.Pool) cluster.ApplyFunc {
	return func(epoch uint64, yaml string) error {
		cfg, err := config.Parse([]byte(yaml))
		if err != nil {
			return err
		}
		config.ApplyEnvOverrides(cfg)
		if err := config.Validate(cfg); err != nil {
			return err
		}
		pool.ApplyConfig(cfg, yaml)
		return nil
	}
}
