// Package debug implements the SIGUSR1 state dump spec.md §9 calls for in
// place of the original's debug-build memory dumps: a snapshot of engine
// state written to stderr via go-spew, the same "dump everything, read it
// once" tool the teacher repo keeps around for manual debugging.
package debug

import (
	"fmt"
	"os"

	"github.com/davecgh/go-spew/spew"
	"go.uber.org/zap"
)

// Dumper is whatever can produce a dumpable snapshot — satisfied by
// *engine.Engine, whose DebugState folds in counters, queue depths and pool
// availability — avoiding a dependency on internal/service/engine from this
// package.
type Dumper interface {
	DebugState() any
}

// DumpState writes a verbose dump of d's current state to stderr.
func DumpState(log *zap.Logger, d Dumper) {
	state := d.DebugState()
	fmt.Fprintln(os.Stderr, "=== airportsim state dump ===")
	spew.Fdump(os.Stderr, state)
	log.Info("state dump written to stderr")
}
