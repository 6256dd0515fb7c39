// Package loadmodel parses duration strings and evaluates the rate(t)
// curve for each load model variant against elapsed test time.
package loadmodel
