package observ

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// maxDurations bounds the recent generation durations kept by a Registry.
	maxDurations = 1000
	// trimTo is how many of the newest durations survive a trim.
	trimTo = 500
)

// Registry collects process-wide pipeline counters. Counters are relaxed
// atomics; the duration window is guarded by a mutex and written rarely.
type Registry struct {
	generated  atomic.Uint64
	validated  atomic.Uint64
	rejected   atomic.Uint64
	committed  atomic.Uint64
	recovered  atomic.Uint64
	recoveryKO atomic.Uint64
	strategyKO atomic.Uint64
	scans      atomic.Uint64
	timeouts   atomic.Uint64

	mu        sync.Mutex
	durations []time.Duration
	byStrat   map[string]uint64
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the process-wide registry, created on first use.
func Default() *Registry {
	defaultOnce.Do(func() { defaultReg = NewRegistry() })
	return defaultReg
}

// NewRegistry returns an empty registry; tests use private ones.
func NewRegistry() *Registry {
	return &Registry{byStrat: make(map[string]uint64)}
}

// RecordGeneration counts n proposals produced in d.
func (r *Registry) RecordGeneration(n int, d time.Duration) {
	if n > 0 {
		r.generated.Add(uint64(n))
	}
	r.mu.Lock()
	r.durations = append(r.durations, d)
	if len(r.durations) > maxDurations {
		r.durations = append(r.durations[:0], r.durations[len(r.durations)-trimTo:]...)
	}
	r.mu.Unlock()
}

// RecordValidation counts one validated or rejected proposal.
func (r *Registry) RecordValidation(ok bool) {
	if ok {
		r.validated.Add(1)
		return
	}
	r.rejected.Add(1)
}

// RecordCommit counts a committed proposal of the given strategy.
func (r *Registry) RecordCommit(strategy string) {
	r.committed.Add(1)
	r.mu.Lock()
	r.byStrat[strategy]++
	r.mu.Unlock()
}

// RecordRecovery counts a restore triggered by a regression.
func (r *Registry) RecordRecovery(ok bool) {
	if ok {
		r.recovered.Add(1)
		return
	}
	r.recoveryKO.Add(1)
}

// RecordStrategyFailure counts a swallowed per-strategy error.
func (r *Registry) RecordStrategyFailure() { r.strategyKO.Add(1) }

// RecordScan counts a diagnostic scan; timedOut marks inconclusive ones.
func (r *Registry) RecordScan(timedOut bool) {
	r.scans.Add(1)
	if timedOut {
		r.timeouts.Add(1)
	}
}

// Commits returns the number of committed proposals.
func (r *Registry) Commits() uint64 { return r.committed.Load() }

// Recoveries returns the number of successful restores.
func (r *Registry) Recoveries() uint64 { return r.recovered.Load() }

// Snapshot is a point-in-time copy of a Registry.
type Snapshot struct {
	Generated        uint64            `json:"generated"`
	Validated        uint64            `json:"validated"`
	Rejected         uint64            `json:"rejected"`
	Committed        uint64            `json:"committed"`
	Recovered        uint64            `json:"recovered"`
	RecoveryFailed   uint64            `json:"recovery_failed"`
	StrategyFailures uint64            `json:"strategy_failures"`
	Scans            uint64            `json:"scans"`
	ScanTimeouts     uint64            `json:"scan_timeouts"`
	CommitsBy        map[string]uint64 `json:"commits_by_strategy,omitempty"`
	Generation       DurationStats     `json:"generation"`
}

// DurationStats summarises the recent generation durations.
type DurationStats struct {
	Count  int     `json:"count"`
	MeanMS float64 `json:"mean_ms"`
	P50MS  float64 `json:"p50_ms"`
	P95MS  float64 `json:"p95_ms"`
	MaxMS  float64 `json:"max_ms"`
}

// Snapshot copies the current counters.
func (r *Registry) Snapshot() Snapshot {
	s := Snapshot{
		Generated:        r.generated.Load(),
		Validated:        r.validated.Load(),
		Rejected:         r.rejected.Load(),
		Committed:        r.committed.Load(),
		Recovered:        r.recovered.Load(),
		RecoveryFailed:   r.recoveryKO.Load(),
		StrategyFailures: r.strategyKO.Load(),
		Scans:            r.scans.Load(),
		ScanTimeouts:     r.timeouts.Load(),
	}
	r.mu.Lock()
	durs := append([]time.Duration(nil), r.durations...)
	if len(r.byStrat) > 0 {
		s.CommitsBy = make(map[string]uint64, len(r.byStrat))
		for k, v := range r.byStrat {
			s.CommitsBy[k] = v
		}
	}
	r.mu.Unlock()
	s.Generation = stats(durs)
	return s
}

func stats(durs []time.Duration) DurationStats {
	if len(durs) == 0 {
		return DurationStats{}
	}
	sort.Slice(durs, func(i, j int) bool { return durs[i] < durs[j] })
	var total time.Duration
	for _, d := range durs {
		total += d
	}
	pick := func(q float64) float64 {
		i := int(q * float64(len(durs)-1))
		return durationToMillis(durs[i])
	}
	return DurationStats{
		Count:  len(durs),
		MeanMS: durationToMillis(total / time.Duration(len(durs))),
		P50MS:  pick(0.5),
		P95MS:  pick(0.95),
		MaxMS:  durationToMillis(durs[len(durs)-1]),
	}
}
