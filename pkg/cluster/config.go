package cluster

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// DiscoveryMode selects how peers are found, per §4.17.
type DiscoveryMode string

const (
	DiscoveryStatic    DiscoveryMode = "static"
	DiscoveryDirectory DiscoveryMode = "directory"
)

// ConfigSource selects the external-fetch backend, per §4.18.
type ConfigSource string

const (
	ConfigSourceNone    ConfigSource = ""
	ConfigSourceKV      ConfigSource = "kv"
	ConfigSourceObject  ConfigSource = "object"
)

// Config is the env-derived subset from §6 that governs cluster mode.
// It is read once at process start; none of it lives in the YAML
// document parsed by pkg/config.
type Config struct {
	Enabled bool

	SelfAddr   string
	BindAddr   string
	HealthAddr string
	NodeID     string
	Region     string

	MinPeers int
	Nodes    []string

	DiscoveryMode      DiscoveryMode
	DirectoryAddr      string
	DirectoryService   string

	ConfigSource    ConfigSource
	KVAddr          string
	KVKey           string
	ObjectBucket    string
	ObjectKey       string
	ConfigTimeout   time.Duration
}

// LoadConfig reads the CLUSTER_*/DISCOVERY_MODE environment subset.
// Invalid or empty values fall back to the documented defaults rather
// than erroring, consistent with the rest of the env-override layer.
func LoadConfig() Config {
	cfg := Config{
		Enabled:       envBool("CLUSTER_ENABLED"),
		SelfAddr:      os.Getenv("CLUSTER_SELF_ADDR"),
		BindAddr:      orDefault(os.Getenv("CLUSTER_BIND_ADDR"), "0.0.0.0:7946"),
		HealthAddr:    orDefault(os.Getenv("CLUSTER_HEALTH_ADDR"), "0.0.0.0:8080"),
		NodeID:        os.Getenv("CLUSTER_NODE_ID"),
		Region:        os.Getenv("CLUSTER_REGION"),
		MinPeers:      envInt("CLUSTER_MIN_PEERS", 0),
		DiscoveryMode: DiscoveryMode(orDefault(os.Getenv("DISCOVERY_MODE"), string(DiscoveryStatic))),
		DirectoryAddr:    os.Getenv("DISCOVERY_DIRECTORY_ADDR"),
		DirectoryService: os.Getenv("DISCOVERY_SERVICE_NAME"),
		ConfigSource:  ConfigSource(os.Getenv("CLUSTER_CONFIG_SOURCE")),
		KVAddr:        os.Getenv("CLUSTER_CONFIG_KV_ADDR"),
		KVKey:         os.Getenv("CLUSTER_CONFIG_KV_KEY"),
		ObjectBucket:  os.Getenv("CLUSTER_CONFIG_OBJECT_BUCKET"),
		ObjectKey:     os.Getenv("CLUSTER_CONFIG_OBJECT_KEY"),
		ConfigTimeout: time.Duration(envInt("CLUSTER_CONFIG_TIMEOUT_SECS", 30)) * time.Second,
	}

	if v := os.Getenv("CLUSTER_NODES"); v != "" {
		for _, addr := range strings.Split(v, ",") {
			addr = strings.TrimSpace(addr)
			if addr != "" {
				cfg.Nodes = append(cfg.Nodes, addr)
			}
		}
	}

	return cfg
}

func envBool(name string) bool {
	v, err := strconv.ParseBool(os.Getenv(name))
	if err != nil {
		return false
	}
	return v
}

func envInt(name string, def int) int {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
