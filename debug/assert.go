//go:build debug

package debug

import "fmt"

// Guard assertions that are expensive to evaluate with `if debug.Enabled`,
// otherwise the arguments are still computed in release builds.
const Enabled = true

func Assertf(b bool, format string, args ...any) {
	if !b {
		panic("assertion failed: " + fmt.Sprintf(format, args...))
	}
}
