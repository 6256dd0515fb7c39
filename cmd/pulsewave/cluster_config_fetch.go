package main

import (
	"context"

	"github.com/cuemby/pulsewave/pkg/cluster"
	"github.com/cuemby/pulsewave/pkg/log"
)

// watchLeaderConfigFetch re-runs the external config fetch (§4.18) each
// time this node acquires Raft leadership, proposing the result through
// consensus so every member (including a later, different leader after
// failover) converges on the same document. A node that loses
// leadership does nothing until it is elected again.
func watchLeaderConfigFetch(node *cluster.Node, clusterCfg cluster.Config) {
	logger := log.WithComponent("cluster.configfetch")

	for leader := range node.LeaderCh() {
		if !leader {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), clusterCfg.ConfigTimeout)
		yaml, err := cluster.FetchConfig(ctx, clusterCfg)
		cancel()
		if err != nil {
			logger.Error().Err(err).Msg("external config fetch failed on leadership acquisition")
			continue
		}

		if err := node.ProposeConfig(yaml); err != nil {
			logger.Error().Err(err).Msg("proposing externally fetched config failed")
		}
	}
}
