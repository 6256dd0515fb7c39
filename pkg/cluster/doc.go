// Package cluster implements the optional multi-node coordination layer
// (O, P, Q): a replicated ConfigCommand log over hashicorp/raft, peer
// discovery by static list or directory service, and a one-shot external
// config fetch on leader acquisition. Every other package in this module
// runs standalone without it; cluster only ever calls back into the
// engine through the ApplyFunc a caller supplies to New.
package cluster
