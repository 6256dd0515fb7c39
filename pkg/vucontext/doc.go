// Package vucontext implements the per-virtual-user, per-scenario-run
// key→value context and its ${name}/$name template substitution.
package vucontext
