package cluster

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hashicorp/raft"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSMApplyInvokesCallbackAndAdvancesEpoch(t *testing.T) {
	var gotEpoch uint64
	var gotYAML string
	fsm := NewFSM(func(epoch uint64, yaml string) error {
		gotEpoch, gotYAML = epoch, yaml
		return nil
	})

	data, err := json.Marshal(ConfigCommand{Epoch: 3, YAML: "version: \"1.0\""})
	require.NoError(t, err)

	result := fsm.Apply(&raft.Log{Data: data})
	assert.Nil(t, result)
	assert.Equal(t, uint64(3), gotEpoch)
	assert.Equal(t, "version: \"1.0\"", gotYAML)

	epoch, yaml := fsm.Current()
	assert.Equal(t, uint64(3), epoch)
	assert.Equal(t, "version: \"1.0\"", yaml)
}

func TestFSMApplyPropagatesCallbackError(t *testing.T) {
	fsm := NewFSM(func(epoch uint64, yaml string) error {
		return assert.AnError
	})
	data, _ := json.Marshal(ConfigCommand{Epoch: 1, YAML: "bogus"})

	result := fsm.Apply(&raft.Log{Data: data})
	require.Error(t, result.(error))
}

func TestFSMSnapshotAndRestoreRoundTrip(t *testing.T) {
	var restored string
	fsm := NewFSM(func(epoch uint64, yaml string) error {
		restored = yaml
		return nil
	})

	data, _ := json.Marshal(ConfigCommand{Epoch: 5, YAML: "version: \"1.0\""})
	fsm.Apply(&raft.Log{Data: data})

	snap, err := fsm.Snapshot()
	require.NoError(t, err)

	sink := &memorySink{}
	require.NoError(t, snap.Persist(sink))

	fresh := NewFSM(func(epoch uint64, yaml string) error {
		restored = yaml
		return nil
	})
	require.NoError(t, fresh.Restore(sink.reader()))

	epoch, yaml := fresh.Current()
	assert.Equal(t, uint64(5), epoch)
	assert.Equal(t, "version: \"1.0\"", yaml)
	assert.Equal(t, "version: \"1.0\"", restored)
}

func TestDiscoverPeersStaticMode(t *testing.T) {
	cfg := Config{DiscoveryMode: DiscoveryStatic, Nodes: []string{"10.0.0.1:7946", "10.0.0.2:7946"}}
	peers, err := DiscoverPeers(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.1:7946", "10.0.0.2:7946"}, peers)
}

func TestDiscoverPeersDirectoryModePolls(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		if calls < 2 {
			_ = json.NewEncoder(w).Encode([]directoryEntry{{Address: "10.0.0.1:7946"}})
			return
		}
		_ = json.NewEncoder(w).Encode([]directoryEntry{
			{Address: "10.0.0.1:7946"},
			{Address: "10.0.0.2:7946"},
		})
	}))
	defer srv.Close()

	cfg := Config{
		DiscoveryMode:    DiscoveryDirectory,
		DirectoryAddr:    srv.URL,
		DirectoryService: "pulsewave",
		MinPeers:         2,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	peers, err := DiscoverPeers(ctx, cfg)
	require.NoError(t, err)
	assert.Len(t, peers, 2)
	assert.GreaterOrEqual(t, calls, 2)
}

func TestFetchConfigFromKV(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("version: \"1.0\"\n"))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]kvEntry{{Value: encoded}})
	}))
	defer srv.Close()

	cfg := Config{
		ConfigSource:  ConfigSourceKV,
		KVAddr:        srv.URL,
		KVKey:         "pulsewave/config",
		ConfigTimeout: 2 * time.Second,
	}

	yaml, err := FetchConfig(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "version: \"1.0\"\n", yaml)
}

func TestFetchConfigRequiresSource(t *testing.T) {
	_, err := FetchConfig(context.Background(), Config{ConfigTimeout: time.Second})
	assert.Error(t, err)
}

// memorySink is a minimal raft.SnapshotSink backed by an in-memory
// buffer, used to exercise FSM.Snapshot/Restore without a real
// raft.FileSnapshotStore.
type memorySink struct {
	buf []byte
}

func (s *memorySink) Write(p []byte) (int, error) {
	s.buf = append(s.buf, p...)
	return len(p), nil
}
func (s *memorySink) Close() error             { return nil }
func (s *memorySink) ID() string               { return "test" }
func (s *memorySink) Cancel() error            { return nil }
func (s *memorySink) reader() *memoryReadCloser { return &memoryReadCloser{data: s.buf} }

type memoryReadCloser struct {
	data []byte
	pos  int
}

func (r *memoryReadCloser) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}
func (r *memoryReadCloser) Close() error { return nil }
