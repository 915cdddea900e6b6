package diagnoser

import (
	"context"
	"sync"
	"time"

	"rectify/internal/diag"
)

// Script is a deterministic Diagnoser. Scans pop queued results per path;
// the last result of a queue is returned again once the rest are used up.
type Script struct {
	// Delay is waited before every call, honouring cancellation.
	Delay time.Duration

	mu      sync.Mutex
	scans   map[string][]diag.FileDiagnostics
	project []bool
	diags   [][]diag.Diagnostic
	calls   map[string]int
}

// NewScript returns an empty Script.
func NewScript() *Script {
	return &Script{
		scans: make(map[string][]diag.FileDiagnostics),
		calls: make(map[string]int),
	}
}

// Push queues scan results for path. An empty path matches any file
// without a queue of its own.
func (s *Script) Push(path string, fds ...diag.FileDiagnostics) *Script {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scans[path] = append(s.scans[path], fds...)
	return s
}

// PushProject queues ScanProject results.
func (s *Script) PushProject(ok ...bool) *Script {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.project = append(s.project, ok...)
	return s
}

// PushDiagnostics queues one Diagnostics result.
func (s *Script) PushDiagnostics(ds ...diag.Diagnostic) *Script {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.diags = append(s.diags, ds)
	return s
}

// Calls returns how many times path was scanned.
func (s *Script) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

func (s *Script) wait(ctx context.Context) error {
	if s.Delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.Delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Scan implements Diagnoser.
func (s *Script) Scan(ctx context.Context, path string) (diag.FileDiagnostics, error) {
	if err := s.wait(ctx); err != nil {
		return diag.FileDiagnostics{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[path]++
	key := path
	if _, ok := s.scans[key]; !ok {
		key = ""
	}
	q := s.scans[key]
	if len(q) == 0 {
		return diag.FileDiagnostics{}, ErrExhausted
	}
	fd := q[0]
	if len(q) > 1 {
		s.scans[key] = q[1:]
	}
	fd.Path = path
	if fd.ScanTimestamp.IsZero() {
		fd.ScanTimestamp = time.Now().UTC()
	}
	return fd, nil
}

// ScanProject implements Diagnoser.
func (s *Script) ScanProject(ctx context.Context) (bool, error) {
	if err := s.wait(ctx); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.project) == 0 {
		return false, ErrExhausted
	}
	ok := s.project[0]
	if len(s.project) > 1 {
		s.project = s.project[1:]
	}
	return ok, nil
}

// Diagnostics implements Diagnoser.
func (s *Script) Diagnostics(ctx context.Context) ([]diag.Diagnostic, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.diags) == 0 {
		return nil, ErrExhausted
	}
	ds := s.diags[0]
	if len(s.diags) > 1 {
		s.diags = s.diags[1:]
	}
	return ds, nil
}

// Counts is a FileDiagnostics with the given counts and error messages.
func Counts(errors, warnings int, messages ...string) diag.FileDiagnostics {
	fd := diag.FileDiagnostics{ErrorCount: errors, WarningCount: warnings}
	for _, m := range messages {
		fd.Messages = append(fd.Messages, diag.Message{Level: diag.SevError, Text: m})
	}
	return fd
}
