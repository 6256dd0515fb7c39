// Package scenario selects and executes a user-journey scenario: the
// weighted/round-robin selector (J) and the step-by-step executor (I)
// that substitutes variables, sends requests, runs extractors and
// assertions, records telemetry, and applies think-time and retry.
package scenario
