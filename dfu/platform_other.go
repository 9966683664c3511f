//go:build !(tinygo && cortexm)

package dfu

// No way to reset or jump on this target.
var platform Platform
