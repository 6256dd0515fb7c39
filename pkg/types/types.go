package types

import (
	"time"

	"github.com/cuemby/pulsewave/pkg/loadmodel"
)

// Config is the fully parsed top-level configuration document.
type Config struct {
	Version   string
	Metadata  map[string]string
	Run       RunConfig
	Load      loadmodel.Model
	Scenarios []Scenario
	Standby   *StandbyConfig
}

// RunConfig holds the required top-level "config" block.
type RunConfig struct {
	BaseURL       string
	Workers       int
	Timeout       time.Duration
	Duration      time.Duration
	SkipTLSVerify bool
	CustomHeaders map[string]string

	// ClientCertPath/ClientKeyPath name an mTLS client certificate
	// presented to the target, set only via CLIENT_CERT_PATH/
	// CLIENT_KEY_PATH (no file-config equivalent).
	ClientCertPath string
	ClientKeyPath  string

	// ResolveHost/ResolveAddr implement RESOLVE_TARGET_ADDR: requests
	// to ResolveHost dial ResolveAddr instead, bypassing DNS.
	ResolveHost string
	ResolveAddr string

	Defaults RequestDefaults
}

// RequestDefaults holds the REQUEST_TYPE/SEND_JSON/JSON_PAYLOAD
// fallbacks a step's request falls back to when it leaves its own
// method or body unset.
type RequestDefaults struct {
	Method      string
	JSONPayload string
}

// StandbyConfig overrides the post-test keep-warm worker count and rate.
type StandbyConfig struct {
	Workers int
	Rps     float64
}

// Scenario models one user journey: an ordered list of steps picked by
// the selector with probability proportional to Weight.
type Scenario struct {
	Name      string
	Weight    float64
	Steps     []Step
	DataFile  *DataFileConfig
	Retry     *RetryPolicy
	Overrides map[string]string
}

// DataFileConfig describes an optional CSV/JSON row source merged into
// the VU context before the scenario runs.
type DataFileConfig struct {
	Path     string
	Format   string // "csv" | "json"
	Strategy string // "sequential" | "random" | "cycle"
}

// RetryPolicy governs per-step retry on failure, referenced by §7.
type RetryPolicy struct {
	Count int
	Delay time.Duration
}

// Step is one request plus its extraction/assertion/think-time.
type Step struct {
	Name       string
	Request    Request
	Extractors []Extractor
	Assertions []Assertion
	ThinkTime  *ThinkTime
}

// Request is a substitution-bearing HTTP request template.
type Request struct {
	Method  string
	Path    string
	Headers map[string]string
	Query   map[string]string
	Body    string
}

// ExtractorKind discriminates the four extraction variants.
type ExtractorKind string

const (
	ExtractorJSONPath ExtractorKind = "jsonpath"
	ExtractorRegex    ExtractorKind = "regex"
	ExtractorHeader   ExtractorKind = "header"
	ExtractorCookie   ExtractorKind = "cookie"
)

// Extractor binds Name in the VU context from one part of the response.
type Extractor struct {
	Kind    ExtractorKind
	Name    string // context key to bind
	Path    string // JsonPath expression
	Pattern string // Regex pattern
	Header  string // Header name
	Cookie  string // Cookie name
}

// AssertionKind discriminates the six assertion variants.
type AssertionKind string

const (
	AssertionStatusCode   AssertionKind = "status_code"
	AssertionResponseTime AssertionKind = "response_time"
	AssertionJSONPath     AssertionKind = "jsonpath"
	AssertionBodyContains AssertionKind = "body_contains"
	AssertionBodyMatches  AssertionKind = "body_matches"
	AssertionHeaderExists AssertionKind = "header_exists"
)

// Assertion evaluates one condition against a step's response.
type Assertion struct {
	Kind AssertionKind

	StatusCode int
	MaxLatency time.Duration
	Path       string  // JsonPath expression
	Expected   *string // nil means "resolves to any value"
	Contains   string
	Pattern    string
	Header     string
}

// ThinkTimeKind discriminates Fixed vs Random think time.
type ThinkTimeKind string

const (
	ThinkTimeFixed  ThinkTimeKind = "fixed"
	ThinkTimeRandom ThinkTimeKind = "random"
)

// ThinkTime is the pause after a step before the next one runs.
type ThinkTime struct {
	Kind  ThinkTimeKind
	Fixed time.Duration
	Min   time.Duration
	Max   time.Duration
}

// StepResult is the outcome of running one Step.
type StepResult struct {
	Index            int
	Name             string
	OK               bool
	Status           int
	Latency          time.Duration
	AssertionsPassed int
	AssertionsFailed int
	Error            string
}

// ScenarioResult aggregates one full scenario execution.
type ScenarioResult struct {
	Name         string
	OK           bool
	FailedAtStep *int
	Steps        []StepResult
	TotalLatency time.Duration
}

// ClusterNodeState is one of the four states a cluster member can be in.
type ClusterNodeState string

const (
	ClusterForming  ClusterNodeState = "forming"
	ClusterFollower ClusterNodeState = "follower"
	ClusterLeader   ClusterNodeState = "leader"
	ClusterStandby  ClusterNodeState = "standby"
)

// ClusterState is a read-only snapshot of the consensus module's view
// of the cluster, taken by every other component.
type ClusterState struct {
	Epoch           uint64
	LeaderID        string
	CommittedConfig string // raw YAML of the last applied config
	Members         []string
	MyState         ClusterNodeState
}

// RunResult is the process-lifetime aggregate returned at shutdown.
type RunResult struct {
	StartedAt      time.Time
	EndedAt        time.Time
	TotalRequests  int64
	TotalErrors    int64
	ByCategory     map[string]int64
	ScenarioTotals map[string]int64
}
