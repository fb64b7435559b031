// Package obs carries the logging capability handed to pipeline components.
// Components take a Logf instead of owning a logger, so batch runs and tests
// decide where stage output goes.
package obs

import "log"

// Logf is a printf-style logging capability.
type Logf func(format string, v ...any)

// Default logs through the standard logger.
func Default() Logf { return log.Printf }

// Discard drops all output. Used in tests.
func Discard() Logf { return func(string, ...any) {} }

// Or returns f, or the default logger when f is nil, so components can
// accept a nil Logf.
func Or(f Logf) Logf {
	if f == nil {
		return Default()
	}
	return f
}
