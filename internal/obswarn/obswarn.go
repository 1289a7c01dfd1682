// Package obswarn is the narrow seam the query engine uses to emit
// non-fatal warnings (insufficient points in range under overretrieval
// is a warning, not a failure) without the internal index packages
// importing the full pkg/obs logger and creating an import cycle.
// pkg/obs.Init installs the real sink; the default prints to stderr so
// standalone package tests still surface warnings.
package obswarn

import (
	"fmt"
	"os"
	"sync"
)

var (
	mu   sync.Mutex
	sink = func(msg string) { fmt.Fprintln(os.Stderr, "warning:", msg) }
)

// SetSink installs fn as the destination for future warnings.
func SetSink(fn func(msg string)) {
	mu.Lock()
	defer mu.Unlock()
	sink = fn
}

// Warnf formats and emits a warning through the installed sink.
func Warnf(format string, args ...interface{}) {
	mu.Lock()
	fn := sink
	mu.Unlock()
	fn(fmt.Sprintf(format, args...))
}
