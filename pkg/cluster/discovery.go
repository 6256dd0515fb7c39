package cluster

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/pulsewave/pkg/log"
)

// backoffSchedule is the retry/backoff ladder used while polling a
// directory service for peers, grounded on the teacher's node
// heartbeat/registration polling idiom in pkg/worker/worker.go.
var backoffSchedule = []time.Duration{
	250 * time.Millisecond,
	500 * time.Millisecond,
	time.Second,
	2 * time.Second,
	5 * time.Second,
}

// DiscoverPeers resolves the cluster's peer list per §4.17. Static mode
// returns CLUSTER_NODES verbatim. Directory mode polls a service
// catalog endpoint with backoff until at least cfg.MinPeers addresses
// are seen, or ctx is cancelled. Every address the catalog returns
// counts, including this node's own.
func DiscoverPeers(ctx context.Context, cfg Config) ([]string, error) {
	switch cfg.DiscoveryMode {
	case DiscoveryDirectory:
		return pollDirectory(ctx, cfg, log.WithComponent("cluster.discovery"))
	default:
		return cfg.Nodes, nil
	}
}

type directoryEntry struct {
	Address string `json:"address"`
}

// pollDirectory repeatedly GETs {DirectoryAddr}/v1/catalog/service/{name}
// until CLUSTER_MIN_PEERS addresses are returned, backing off between
// attempts per backoffSchedule (holding at the last interval once
// exhausted).
func pollDirectory(ctx context.Context, cfg Config, logger zerolog.Logger) ([]string, error) {
	if cfg.DirectoryAddr == "" || cfg.DirectoryService == "" {
		return nil, fmt.Errorf("cluster: directory discovery requires an address and service name")
	}

	url := fmt.Sprintf("%s/v1/catalog/service/%s", cfg.DirectoryAddr, cfg.DirectoryService)
	client := &http.Client{Timeout: 5 * time.Second}

	attempt := 0
	for {
		peers, err := fetchDirectoryPeers(ctx, client, url)
		if err == nil && len(peers) >= cfg.MinPeers {
			return peers, nil
		}
		if err != nil {
			logger.Warn().Err(err).Str("url", url).Msg("directory discovery poll failed")
		} else {
			logger.Debug().Int("found", len(peers)).Int("want", cfg.MinPeers).Msg("directory discovery: not enough peers yet")
		}

		wait := backoffSchedule[len(backoffSchedule)-1]
		if attempt < len(backoffSchedule) {
			wait = backoffSchedule[attempt]
		}
		attempt++

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
}

func fetchDirectoryPeers(ctx context.Context, client *http.Client, url string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directory service returned status %d", resp.StatusCode)
	}

	var entries []directoryEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decoding directory response: %w", err)
	}

	peers := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Address != "" {
			peers = append(peers, e.Address)
		}
	}
	return peers, nil
}
