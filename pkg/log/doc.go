/*
Package log provides structured logging for pulsewave using zerolog.

The log package wraps the zerolog library to provide JSON-structured logging with
component-specific loggers, configurable log levels, and helper functions for
common logging patterns. All logs include timestamps and support filtering by
severity level for production debugging.

# Core Components

Global Logger:
  - Package-level zerolog.Logger instance
  - Initialized once via log.Init()
  - Accessible from all pulsewave packages
  - Thread-safe concurrent writes

Log Levels:
  - Debug: Detailed debugging information
  - Info: General informational messages
  - Warn: Warning messages (potential issues)
  - Error: Error messages (operation failed)
  - Fatal: Critical errors (process exits)

Configuration:
  - Level: Filter messages below threshold
  - JSONOutput: JSON vs human-readable console
  - Output: io.Writer for log destination (stdout, file)

Context Loggers:
  - WithComponent: Add component name to all logs
  - WithNode: Add cluster node ID context
  - WithRun: Add load-test run ID context

# Usage

Initializing the Logger:

	import "github.com/cuemby/pulsewave/pkg/log"

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

Simple Logging:

	log.Info("engine started")
	log.Warn("memory guard disabled percentile tracking")
	log.Error("request failed")

Component Loggers:

	schedulerLog := log.WithComponent("engine")
	schedulerLog.Info().Msg("rate changed")
	schedulerLog.Debug().Str("scenario", "checkout").Msg("selected scenario")

Context Logger Helpers:

	nodeLog := log.WithNode("node-abc123")
	nodeLog.Info().Msg("joined cluster")

	runLog := log.WithRun("run-20260730-01")
	runLog.Info().Msg("entered standby")

# Design Patterns

Global Logger Pattern:
  - Single package-level Logger instance
  - Initialized once at application start
  - Accessible from all packages without passing
  - Simplifies logging in deeply nested calls

Context Logger Pattern:
  - Create child loggers with context fields
  - Pass context loggers to functions
  - Automatically includes context in all logs
  - Avoids repetitive field specification

# Integration Points

This package integrates with:

  - pkg/engine: logs worker pool and scheduler transitions
  - pkg/cluster: logs Raft events and config commits
  - pkg/config: logs hot-reload events
  - pkg/api: logs control-plane requests
  - pkg/telemetry: logs memory-guard actions and the percentile tracker's capacity warning
*/
package log
