package observ

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestTimer(t *testing.T) {
	tm := NewTimer()
	i := tm.Begin("scan")
	tm.End(i, "3 files")
	tm.End(42, "ignored")
	tm.End(tm.Begin("apply"), "")

	r := tm.Report()
	if len(r.Phases) != 2 || r.Phases[0].Note != "3 files" {
		t.Fatalf("report = %+v", r)
	}
	if s := tm.Summary(); !strings.Contains(s, "scan") || !strings.Contains(s, "total") {
		t.Errorf("summary:\n%s", s)
	}
	if (&Timer{}).Report().Phases != nil {
		t.Error("empty timer report has phases")
	}
}

func TestRegistryCounters(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				r.RecordCommit("method-name")
				r.RecordValidation(true)
			}
		}()
	}
	wg.Wait()
	r.RecordRecovery(true)
	r.RecordRecovery(false)
	r.RecordScan(true)

	s := r.Snapshot()
	if s.Committed != 800 || s.CommitsBy["method-name"] != 800 || s.Validated != 800 {
		t.Errorf("counters = %+v", s)
	}
	if s.Recovered != 1 || s.RecoveryFailed != 1 || s.ScanTimeouts != 1 || s.Scans != 1 {
		t.Errorf("recovery/scan counters = %+v", s)
	}
	if r.Commits() != 800 || r.Recoveries() != 1 {
		t.Error("accessors disagree with snapshot")
	}
}

func TestRegistryTrimsDurations(t *testing.T) {
	r := NewRegistry()
	for i := range maxDurations + 1 {
		r.RecordGeneration(1, time.Duration(i)*time.Millisecond)
	}
	s := r.Snapshot()
	if s.Generation.Count != trimTo {
		t.Fatalf("expected %d durations after trim, got %d", trimTo, s.Generation.Count)
	}
	if s.Generation.MaxMS != float64(maxDurations) {
		t.Errorf("newest duration lost: max = %v", s.Generation.MaxMS)
	}
	if s.Generated != maxDurations+1 {
		t.Errorf("generated = %d", s.Generated)
	}
	if Default() != Default() {
		t.Error("Default is not a singleton")
	}
}
