package cluster

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb"
	"github.com/rs/zerolog"

	"github.com/cuemby/pulsewave/pkg/log"
	"github.com/cuemby/pulsewave/pkg/metrics"
	"github.com/cuemby/pulsewave/pkg/types"
)

// electionTimeout and friends are tuned the same way as the teacher's
// manager.Bootstrap/Join: fast enough for LAN/edge failover without
// flapping on ordinary GC pauses.
const (
	heartbeatTimeout   = 500 * time.Millisecond
	electionTimeout    = 500 * time.Millisecond
	commitTimeout      = 50 * time.Millisecond
	leaderLeaseTimeout = 250 * time.Millisecond
)

// Node owns one member's view of the replicated ConfigCommand log
// described in §4.16. Grounded on the teacher's Manager/WarrenFSM
// bootstrap-or-join lifecycle, narrowed to a single config slot.
type Node struct {
	cfg    Config
	dataDir string

	raft *raft.Raft
	fsm  *FSM

	logger zerolog.Logger
}

// New constructs a cluster Node. apply is invoked once per committed
// ConfigCommand, on every member, in log order — this is how a
// committed config reaches the local worker pool.
func New(cfg Config, dataDir string, apply ApplyFunc) (*Node, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("cluster: create data dir: %w", err)
	}

	return &Node{
		cfg:     cfg,
		dataDir: dataDir,
		fsm:     NewFSM(apply),
		logger:  log.WithComponent("cluster"),
	}, nil
}

func (n *Node) raftConfig() *raft.Config {
	c := raft.DefaultConfig()
	c.LocalID = raft.ServerID(n.cfg.NodeID)
	c.HeartbeatTimeout = heartbeatTimeout
	c.ElectionTimeout = electionTimeout
	c.CommitTimeout = commitTimeout
	c.LeaderLeaseTimeout = leaderLeaseTimeout
	return c
}

func (n *Node) newRaft() (*raft.Raft, error) {
	addr, err := net.ResolveTCPAddr("tcp", n.cfg.BindAddr)
	if err != nil {
		return nil, fmt.Errorf("cluster: resolve bind address: %w", err)
	}

	transport, err := raft.NewTCPTransport(n.cfg.BindAddr, addr, 3, 10*time.Second, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("cluster: create transport: %w", err)
	}

	snapshotStore, err := raft.NewFileSnapshotStore(n.dataDir, 2, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("cluster: create snapshot store: %w", err)
	}

	logStore, err := raftboltdb.NewBoltStore(filepath.Join(n.dataDir, "raft-log.db"))
	if err != nil {
		return nil, fmt.Errorf("cluster: create log store: %w", err)
	}

	stableStore, err := raftboltdb.NewBoltStore(filepath.Join(n.dataDir, "raft-stable.db"))
	if err != nil {
		return nil, fmt.Errorf("cluster: create stable store: %w", err)
	}

	return raft.NewRaft(n.raftConfig(), n.fsm, logStore, stableStore, snapshotStore, transport)
}

// Bootstrap forms a brand-new cluster with this node as its only
// member. Used when discovery finds no peer other than this node (a
// single-node "cluster of one").
func (n *Node) Bootstrap() error {
	r, err := n.newRaft()
	if err != nil {
		return err
	}
	n.raft = r

	future := r.BootstrapCluster(raft.Configuration{
		Servers: []raft.Server{{ID: raft.ServerID(n.cfg.NodeID), Address: raft.ServerAddress(n.cfg.SelfAddr)}},
	})
	if err := future.Error(); err != nil {
		return fmt.Errorf("cluster: bootstrap: %w", err)
	}

	n.logger.Info().Str("node_id", n.cfg.NodeID).Msg("bootstrapped cluster")
	return nil
}

// JoinExisting starts Raft for this node without bootstrapping. The
// node becomes a voter only once the leader adds it; the caller asks
// for that afterwards with a POST to a peer's /cluster/join.
func (n *Node) JoinExisting() error {
	r, err := n.newRaft()
	if err != nil {
		return err
	}
	n.raft = r
	n.logger.Info().Str("node_id", n.cfg.NodeID).Msg("joined existing cluster")
	return nil
}

// AddVoter adds a peer to the Raft configuration. Only the leader may
// call this successfully.
func (n *Node) AddVoter(nodeID, address string) error {
	if n.raft == nil {
		return fmt.Errorf("cluster: raft not initialized")
	}
	if !n.IsLeader() {
		return fmt.Errorf("cluster: not the leader, current leader: %s", n.LeaderAddr())
	}
	future := n.raft.AddVoter(raft.ServerID(nodeID), raft.ServerAddress(address), 0, 10*time.Second)
	return future.Error()
}

// ProposeConfig appends a new ConfigCommand to the log and blocks until
// it commits (or the 10s apply timeout elapses). Only the leader can
// succeed; followers should return ConsensusError upstream (HTTP 421).
func (n *Node) ProposeConfig(yaml string) error {
	if n.raft == nil {
		return fmt.Errorf("cluster: raft not initialized")
	}
	if !n.IsLeader() {
		return fmt.Errorf("cluster: not the leader, current leader: %s", n.LeaderAddr())
	}

	currentEpoch, _ := n.fsm.Current()
	cmd := ConfigCommand{Epoch: currentEpoch + 1, YAML: yaml}
	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("cluster: marshal config command: %w", err)
	}

	future := n.raft.Apply(data, 10*time.Second)
	if err := future.Error(); err != nil {
		return fmt.Errorf("cluster: propose config: %w", err)
	}
	if applyErr, ok := future.Response().(error); ok && applyErr != nil {
		return fmt.Errorf("cluster: config rejected: %w", applyErr)
	}
	return nil
}

// IsLeader reports whether this node currently holds Raft leadership.
func (n *Node) IsLeader() bool {
	return n.raft != nil && n.raft.State() == raft.Leader
}

// LeaderAddr returns the current leader's address, or "" if unknown.
func (n *Node) LeaderAddr() string {
	if n.raft == nil {
		return ""
	}
	return string(n.raft.Leader())
}

// LeaderCh reports true each time this node becomes leader and false
// each time it steps down, per raft.Raft's own notification channel.
// Nil until Bootstrap or JoinExisting has started Raft.
func (n *Node) LeaderCh() <-chan bool {
	if n.raft == nil {
		return nil
	}
	return n.raft.LeaderCh()
}

// State returns a read-only snapshot of this node's view of the
// cluster, per types.ClusterState.
func (n *Node) State() types.ClusterState {
	epoch, yaml := n.fsm.Current()

	state := types.ClusterForming
	switch {
	case n.raft == nil:
		state = types.ClusterForming
	case n.IsLeader():
		state = types.ClusterLeader
	default:
		state = types.ClusterFollower
	}

	members := []string{n.cfg.SelfAddr}
	if n.raft != nil {
		if cfgFuture := n.raft.GetConfiguration(); cfgFuture.Error() == nil {
			members = members[:0]
			for _, srv := range cfgFuture.Configuration().Servers {
				members = append(members, string(srv.Address))
			}
		}
	}

	metrics.RaftLeader.Set(boolToFloat(n.IsLeader()))

	return types.ClusterState{
		Epoch:           epoch,
		LeaderID:        n.LeaderAddr(),
		CommittedConfig: yaml,
		Members:         members,
		MyState:         state,
	}
}

// Shutdown tears down the Raft instance.
func (n *Node) Shutdown() error {
	if n.raft == nil {
		return nil
	}
	return n.raft.Shutdown().Error()
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
