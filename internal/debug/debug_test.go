package debug

import (
	"testing"

	"go.uber.org/zap"
)

type fakeDumper struct {
	state any
}

func (f fakeDumper) DebugState() any { return f.state }

func TestDumpStateDoesNotPanic(t *testing.T) {
	d := fakeDumper{state: map[string]any{"sim_time": int64(123), "active_flights": 3}}
	DumpState(zap.NewNop(), d)
}

func TestDumpStateHandlesNilState(t *testing.T) {
	d := fakeDumper{state: nil}
	DumpState(zap.NewNop(), d)
}
