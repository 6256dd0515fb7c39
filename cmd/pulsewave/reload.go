package main

import (
	"os"

	"github.com/cuemby/pulsewave/pkg/cluster"
	"github.com/cuemby/pulsewave/pkg/config"
	"github.com/cuemby/pulsewave/pkg/engine"
	"github.com/cuemby/pulsewave/pkg/log"
)

// watchConfigFile consumes a Watcher's ReloadEvents for the lifetime of
// the process, per §4.15. Outside cluster mode a valid reload is applied
// directly to the pool. In cluster mode the local file is treated as a
// leader's draft: only the leader proposes it through consensus, and a
// follower's local edits are ignored (every member's committed config
// comes from the replicated log, not its own disk).
func watchConfigFile(w *config.Watcher, path string, pool *engine.Pool, node *cluster.Node) {
	logger := log.WithComponent("config.reload")

	for event := range w.Events() {
		if !event.Valid {
			logger.Warn().Err(event.Err).Msg("config reload: invalid, keeping previous config")
			continue
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			logger.Warn().Err(err).Msg("config reload: re-reading file failed")
			continue
		}

		if node != nil {
			if !node.IsLeader() {
				logger.Info().Msg("config reload: not leader, ignoring local file change")
				continue
			}
			if err := node.ProposeConfig(string(raw)); err != nil {
				logger.Error().Err(err).Msg("config reload: propose failed")
			}
			continue
		}

		pool.ApplyConfig(event.Config, string(raw))
	}
}
