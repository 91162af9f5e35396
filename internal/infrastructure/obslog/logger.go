// Package obslog implements the five-channel logger surface of spec.md §6.5
// (scheduling, memory, events, performance, resources). Each channel writes
// to logs/<channel>.log via a zap.Logger core, and also keeps the last 500
// lines in a ring buffer so a live tail can be served over HTTP without
// re-reading the file — the same circular-buffer idiom as
// processmgr.LogManager, keyed by channel name instead of PID.
//
// The core never reads these logs back (spec.md §6.5: "the core never reads
// logs") — obslog is a push-only sink threaded through constructors, never a
// package-level singleton (spec.md §9's "Global singletons" design note).
package obslog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Channel names the five logger channels (spec.md §6.5).
type Channel string

const (
	Scheduling Channel = "scheduling"
	Memory     Channel = "memory"
	Events     Channel = "events"
	Performance Channel = "performance"
	Resources  Channel = "resources"
)

// AllChannels lists every known channel, for iteration at startup.
var AllChannels = []Channel{Scheduling, Memory, Events, Performance, Resources}

// Manager owns one *zap.Logger and one ring buffer per channel.
type Manager struct {
	mu      sync.RWMutex
	loggers map[Channel]*zap.Logger
	bufs    map[Channel]*ringBuffer
	files   []*os.File
}

// New creates a Manager writing logs/<channel>.log for each known channel,
// prefixed with a timestamp by zap's encoder (spec.md §6.5: "Each log line
// is a free-form string with a timestamp prepended by the logger").
// base is the parent *zap.Logger whose options are kept while its core is
// replaced, per channel, by a JSON-encoded file core at info level; each
// channel logger is named after its channel — mirrors the teacher's
// log.Named("process-manager2") idiom in processmgr.NewProcessManager2.
func New(base *zap.Logger, logDir string) (*Manager, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("obslog: create log dir: %w", err)
	}

	m := &Manager{
		loggers: make(map[Channel]*zap.Logger, len(AllChannels)),
		bufs:    make(map[Channel]*ringBuffer, len(AllChannels)),
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	for _, ch := range AllChannels {
		f, err := os.OpenFile(filepath.Join(logDir, string(ch)+".log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			m.closeFiles()
			return nil, fmt.Errorf("obslog: open %s.log: %w", ch, err)
		}
		m.files = append(m.files, f)

		core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(f), zap.NewAtomicLevel())
		m.loggers[ch] = base.WithOptions(zap.WrapCore(func(zapcore.Core) zapcore.Core { return core })).Named(string(ch))
		m.bufs[ch] = &ringBuffer{}
	}

	return m, nil
}

func (m *Manager) closeFiles() {
	for _, f := range m.files {
		_ = f.Close()
	}
}

// Close flushes and closes every channel's log file.
func (m *Manager) Close() error {
	var firstErr error
	for ch, l := range m.loggers {
		if err := l.Sync(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("obslog: sync %s: %w", ch, err)
		}
	}
	for _, f := range m.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Log writes a line to the named channel's file logger and ring buffer.
func (m *Manager) Log(ch Channel, msg string, fields ...zap.Field) {
	m.mu.RLock()
	l, okL := m.loggers[ch]
	b, okB := m.bufs[ch]
	m.mu.RUnlock()
	if !okL || !okB {
		return
	}
	l.Info(msg, fields...)
	b.append(msg)
}

// Tail returns the last n lines written to a channel (newest first),
// serving the live-snapshot half of spec.md §6.6's logging surface without
// touching disk.
func (m *Manager) Tail(ch Channel, n int) []string {
	m.mu.RLock()
	b, ok := m.bufs[ch]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	return b.read(n)
}
