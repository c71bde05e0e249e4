//go:build !debug

// Package debug provides assertions for driver invariants. They panic when
// built with the debug tag and compile to nothing otherwise, so they must
// never guard a condition the hardware can actually produce; those are
// returned as errors.
package debug

// Guard assertions that are expensive to evaluate with `if debug.Enabled`,
// otherwise the arguments are still computed in release builds.
const Enabled = false

// Assertf panics with the formatted message if b is false.
func Assertf(b bool, format string, args ...any) {}
