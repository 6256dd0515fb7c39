// Package assert evaluates the six assertion kinds against a step's
// response, each returning pass/fail and a human-readable expected and
// actual value for reporting.
package assert
