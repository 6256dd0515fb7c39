package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cuemby/pulsewave/pkg/api"
	"github.com/cuemby/pulsewave/pkg/cluster"
	"github.com/cuemby/pulsewave/pkg/log"
)

const joinRequestTimeout = 5 * time.Second

// joinCluster decides, per §4.16/§4.17, whether this node founds a new
// cluster or joins an existing one. With no peers discovered at all it
// bootstraps a cluster of one; otherwise it starts Raft locally (so the
// leader can reach it once added) and asks a peer's control plane to
// add it as a voter, following a 421 leader hint until it finds the
// leader.
func joinCluster(node *cluster.Node, cfg cluster.Config, joinAddrFlag string) error {
	logger := log.WithComponent("cluster.join")

	if joinAddrFlag == "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		peers, err := cluster.DiscoverPeers(ctx, cfg)
		if err != nil {
			return fmt.Errorf("discovering peers: %w", err)
		}

		others := excludeSelf(peers, cfg.SelfAddr)
		if len(others) == 0 {
			logger.Info().Msg("no peers discovered, bootstrapping new cluster")
			return node.Bootstrap()
		}

		if err := node.JoinExisting(); err != nil {
			return err
		}
		return requestJoin(healthAddrFor(others[0], cfg.HealthAddr), cfg)
	}

	if err := node.JoinExisting(); err != nil {
		return err
	}
	return requestJoin(joinAddrFlag, cfg)
}

func excludeSelf(peers []string, self string) []string {
	out := make([]string, 0, len(peers))
	for _, p := range peers {
		if p != self {
			out = append(out, p)
		}
	}
	return out
}

// healthAddrFor derives a peer's control-plane address from its Raft
// transport address, assuming every cluster member exposes its HTTP
// API on the same port (healthAddr's port), on the same host as its
// Raft bind address — the common "same box, sidecar port" deployment
// this spec's discovery model otherwise leaves unstated.
func healthAddrFor(raftAddr, healthAddr string) string {
	host, _, err := net.SplitHostPort(raftAddr)
	if err != nil {
		return healthAddr
	}
	_, port, err := net.SplitHostPort(healthAddr)
	if err != nil {
		port = "8080"
	}
	return net.JoinHostPort(host, port)
}

// requestJoin POSTs a join request to target's /cluster/join, following
// at most 4 leader-hint redirects before giving up.
func requestJoin(target string, cfg cluster.Config) error {
	client := &http.Client{Timeout: joinRequestTimeout}

	body, err := json.Marshal(api.JoinRequest{NodeID: cfg.NodeID, Address: cfg.SelfAddr})
	if err != nil {
		return err
	}

	for attempt := 0; attempt < 5; attempt++ {
		url := "http://" + strings.TrimPrefix(target, "http://") + "/cluster/join"
		resp, err := client.Post(url, "application/json", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("join request to %s: %w", target, err)
		}

		switch resp.StatusCode {
		case http.StatusAccepted:
			resp.Body.Close()
			return nil
		case http.StatusMisdirectedRequest:
			var hint struct {
				LeaderHint string `json:"leader_hint"`
			}
			_ = json.NewDecoder(resp.Body).Decode(&hint)
			resp.Body.Close()
			if hint.LeaderHint == "" {
				return fmt.Errorf("join request to %s: follower reported no leader hint", target)
			}
			target = healthAddrFor(hint.LeaderHint, cfg.HealthAddr)
			continue
		default:
			var errBody struct {
				Error string `json:"error"`
			}
			_ = json.NewDecoder(resp.Body).Decode(&errBody)
			resp.Body.Close()
			return fmt.Errorf("join request to %s: %s: %s", target, resp.Status, errBody.Error)
		}
	}

	return fmt.Errorf("join request: exhausted leader-hint redirects starting from %s", target)
}
