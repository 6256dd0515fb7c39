package cluster

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// kvEntry mirrors the single-field shape the KV backend's GET returns;
// only Value is consumed, per §4.18.
type kvEntry struct {
	Value string `json:"Value"`
}

// metadataTokenPath is where the instance-metadata endpoint serves a
// short-lived bearer token for the object-storage backend.
const metadataTokenPath = "/latest/meta-data/iam/security-credentials/token"

// FetchConfig runs the external-config fetch described in §4.18. The
// leader re-runs this once per leadership acquisition (see
// watchLeaderConfigFetch in cmd/pulsewave) and proposes the result
// through consensus so every member converges on the same document; a
// process with no local --config also calls this once at startup to
// have something to run before the cluster settles on a leader.
// FetchConfig itself returns the fetched YAML document or an error. On
// leadership acquisition the caller logs the error and the cluster keeps
// running its current config; the startup caller returns the error, so
// the process does not start.
func FetchConfig(ctx context.Context, cfg Config) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConfigTimeout)
	defer cancel()

	switch cfg.ConfigSource {
	case ConfigSourceKV:
		return fetchFromKV(ctx, cfg)
	case ConfigSourceObject:
		return fetchFromObjectStorage(ctx, cfg)
	default:
		return "", fmt.Errorf("cluster: no external config source configured")
	}
}

func fetchFromKV(ctx context.Context, cfg Config) (string, error) {
	if cfg.KVAddr == "" || cfg.KVKey == "" {
		return "", fmt.Errorf("cluster: kv config source requires an address and key")
	}

	url := fmt.Sprintf("%s/v1/kv/%s", cfg.KVAddr, cfg.KVKey)
	body, err := httpGet(ctx, url, "")
	if err != nil {
		return "", err
	}

	var entries []kvEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return "", fmt.Errorf("cluster: decoding kv response: %w", err)
	}
	if len(entries) == 0 {
		return "", fmt.Errorf("cluster: kv key %q has no entries", cfg.KVKey)
	}

	yaml, err := base64.StdEncoding.DecodeString(entries[0].Value)
	if err != nil {
		return "", fmt.Errorf("cluster: decoding kv value: %w", err)
	}
	return string(yaml), nil
}

func fetchFromObjectStorage(ctx context.Context, cfg Config) (string, error) {
	if cfg.ObjectBucket == "" || cfg.ObjectKey == "" {
		return "", fmt.Errorf("cluster: object config source requires a bucket and key")
	}

	token, err := fetchMetadataToken(ctx)
	if err != nil {
		return "", fmt.Errorf("cluster: fetching instance metadata token: %w", err)
	}

	url := fmt.Sprintf("https://%s.s3.amazonaws.com/%s", cfg.ObjectBucket, cfg.ObjectKey)
	body, err := httpGet(ctx, url, token)
	if err != nil {
		return "", fmt.Errorf("cluster: fetching object: %w", err)
	}
	return string(body), nil
}

func fetchMetadataToken(ctx context.Context) (string, error) {
	body, err := httpGet(ctx, "http://169.254.169.254"+metadataTokenPath, "")
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func httpGet(ctx context.Context, url, bearer string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request to %s returned status %d", url, resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
