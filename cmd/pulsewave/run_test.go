package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/pulsewave/pkg/cluster"
	"github.com/cuemby/pulsewave/pkg/engine"
	"github.com/cuemby/pulsewave/pkg/loadmodel"
	"github.com/cuemby/pulsewave/pkg/telemetry"
	"github.com/cuemby/pulsewave/pkg/types"
)

func TestLoadConfigBytesReadsLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: \"1.0\"\n"), 0o644))

	got, err := loadConfigBytes(path, cluster.Config{})
	require.NoError(t, err)
	assert.Equal(t, "version: \"1.0\"\n", string(got))
}

func TestLoadConfigBytesRequiresConfigOutsideClusterFetch(t *testing.T) {
	_, err := loadConfigBytes("", cluster.Config{})
	assert.Error(t, err)
}

func TestClusterApplyFuncAppliesValidConfig(t *testing.T) {
	hub := telemetry.NewHub(16, telemetry.MemGuardConfig{}, telemetry.DefaultPoolConfig())
	t.Cleanup(hub.Stop)

	pool := engine.NewPool(&types.Config{
		Version: "1.0",
		Run:     types.RunConfig{BaseURL: "https://example.com", Workers: 1, Timeout: time.Second},
		Load:    loadmodel.Model{Kind: loadmodel.KindConcurrent, Workers: 1},
		Scenarios: []types.Scenario{
			{Name: "ping", Weight: 1, Steps: []types.Step{
				{Name: "get", Request: types.Request{Method: "GET", Path: "/"}},
			}},
		},
	}, hub)

	yaml := `
version: "1.0"
config:
  baseUrl: https://example.com
  workers: 5
  timeout: 2s
load:
  model: rps
  target: 10
scenarios:
  - name: checkout
    weight: 1
    steps:
      - name: get
        request:
          method: GET
          path: /items
`
	apply := clusterApplyFunc(pool)
	require.NoError(t, apply(1, yaml))
	assert.Equal(t, 5, pool.Config().Run.Workers)
	assert.Equal(t, yaml, pool.RawYAML())
}

func TestClusterApplyFuncRejectsInvalidYAML(t *testing.T) {
	hub := telemetry.NewHub(16, telemetry.MemGuardConfig{}, telemetry.DefaultPoolConfig())
	t.Cleanup(hub.Stop)

	pool := engine.NewPool(&types.Config{
		Version: "1.0",
		Run:     types.RunConfig{BaseURL: "https://example.com", Workers: 1, Timeout: time.Second},
		Load:    loadmodel.Model{Kind: loadmodel.KindConcurrent, Workers: 1},
		Scenarios: []types.Scenario{
			{Name: "ping", Weight: 1, Steps: []types.Step{
				{Name: "get", Request: types.Request{Method: "GET", Path: "/"}},
			}},
		},
	}, hub)

	apply := clusterApplyFunc(pool)
	assert.Error(t, apply(1, "not: [valid"))
}
