/*
Package types defines pulsewave's core domain data structures: the
parsed configuration document, scenario/step/request shapes, the
per-VU context, result records, and cluster state. These types are
plain structs shared by every other package; no package-specific
logic lives here.
*/
package types
