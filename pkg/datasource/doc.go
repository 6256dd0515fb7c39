// Package datasource loads an immutable CSV/JSON row table and hands
// rows out to callers by a fixed strategy: sequential, random, or
// cycling.
package datasource
