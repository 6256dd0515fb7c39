// Package engine drives the worker pool and scheduler (K) through its
// Initializing -> Running -> Standby -> Terminated states, reconciling
// running workers against the current load model's desired rate and
// adopting newly committed configs atomically between iterations.
package engine
