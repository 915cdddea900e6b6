package trace

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Tracer receives events. Implementations are safe for concurrent use:
// files are fixed in parallel and all of them emit into one tracer.
type Tracer interface {
	Emit(ev *Event)
	Flush() error
	// Close flushes and releases the output.
	Close() error
	Level() Level
	Enabled() bool
}

// StorageMode selects where events go: written out as they happen, kept in
// memory for a dump of the files whose fix went wrong, or both.
type StorageMode uint8

const (
	ModeStream StorageMode = iota + 1
	ModeRing
	ModeBoth
)

var modeNames = [...]string{ModeStream: "stream", ModeRing: "ring", ModeBoth: "both"}

func (m StorageMode) String() string {
	if int(m) < len(modeNames) && modeNames[m] != "" {
		return modeNames[m]
	}
	return "unknown"
}

// ParseMode reads a --trace-mode value.
func ParseMode(s string) (StorageMode, error) {
	for m, name := range modeNames {
		if name != "" && strings.EqualFold(s, name) {
			return StorageMode(m), nil
		}
	}
	return ModeStream, fmt.Errorf("invalid trace mode %q (expected stream|ring|both)", s)
}

// Focus limits a tracer to events about some source files. A path matches
// an event file equal to it or ending in it at a separator, so the relative
// paths given on the command line match the absolute ones diagnostics carry.
// Events without a file always pass; an empty Focus passes everything.
type Focus []string

func (f Focus) admits(s Subject) bool {
	if len(f) == 0 || s.File == "" {
		return true
	}
	file := filepath.ToSlash(filepath.Clean(s.File))
	for _, want := range f {
		want = filepath.ToSlash(filepath.Clean(want))
		if file == want || strings.HasSuffix(file, "/"+want) {
			return true
		}
	}
	return false
}

// keeps is the check every sink applies before storing ev. Heartbeats have
// no scope of their own and pass at any level.
func keeps(level Level, focus Focus, ev *Event) bool {
	if ev.Kind != KindHeartbeat && !level.ShouldEmit(ev.Scope) {
		return false
	}
	return focus.admits(ev.Subject)
}

const defaultRingSize = 4096

// Config describes the tracer built by New.
type Config struct {
	Level Level
	Mode  StorageMode
	// Format FormatAuto picks NDJSON for .ndjson and .jsonl outputs.
	Format Format
	// Output wins over OutputPath. An empty OutputPath or "-" is stderr.
	Output     io.Writer
	OutputPath string
	RingSize   int
	Focus      Focus
}

// New builds the tracer cfg describes. LevelOff yields Nop.
func New(cfg Config) (Tracer, error) {
	if cfg.Level == LevelOff {
		return Nop, nil
	}
	var sinks []Tracer
	if cfg.Mode == ModeStream || cfg.Mode == ModeBoth {
		w, err := openOutput(cfg)
		if err != nil {
			return nil, err
		}
		s := NewStreamTracer(w, cfg.Level, outputFormat(cfg))
		s.focus = cfg.Focus
		sinks = append(sinks, s)
	}
	if cfg.Mode == ModeRing || cfg.Mode == ModeBoth {
		r := NewRingTracer(cfg.RingSize, cfg.Level)
		r.focus = cfg.Focus
		sinks = append(sinks, r)
	}
	switch len(sinks) {
	case 0:
		return nil, fmt.Errorf("unknown trace mode: %v", cfg.Mode)
	case 1:
		return sinks[0], nil
	}
	return NewMultiTracer(cfg.Level, sinks...), nil
}

func outputFormat(cfg Config) Format {
	if cfg.Format != FormatAuto {
		return cfg.Format
	}
	switch filepath.Ext(cfg.OutputPath) {
	case ".ndjson", ".jsonl":
		return FormatNDJSON
	}
	return FormatText
}

func openOutput(cfg Config) (io.Writer, error) {
	switch {
	case cfg.Output != nil:
		return cfg.Output, nil
	case cfg.OutputPath == "" || cfg.OutputPath == "-":
		return stderr{}, nil
	}
	// #nosec G304 -- trace path is supplied by the user on the command line
	f, err := os.Create(cfg.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("trace: open output: %w", err)
	}
	return f, nil
}

// stderr has no Close, so closing the tracer leaves os.Stderr open.
type stderr struct{}

func (stderr) Write(p []byte) (int, error) { return os.Stderr.Write(p) }
