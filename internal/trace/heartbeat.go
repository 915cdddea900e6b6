package trace

import (
	"fmt"
	"sync"
	"time"
)

// Heartbeat periodically emits heartbeat events while a long diagnostic scan
// runs. Heartbeats without a matching span end point at a stuck compiler.
type Heartbeat struct {
	tracer   Tracer
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

// StartHeartbeat creates and starts a new heartbeat goroutine.
func StartHeartbeat(tracer Tracer, interval time.Duration) *Heartbeat {
	if tracer == nil || !tracer.Enabled() || interval <= 0 {
		return nil
	}
	h := &Heartbeat{
		tracer:   tracer,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
	h.wg.Add(1)
	go h.run()
	return h
}

func (h *Heartbeat) run() {
	defer h.wg.Done()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	gid := goroutineID()
	started := time.Now()
	for n := 1; ; n++ {
		select {
		case now := <-ticker.C:
			h.tracer.Emit(stamp(&Event{
				Kind:   KindHeartbeat,
				Scope:  ScopeRun,
				GID:    gid,
				Name:   "heartbeat",
				Detail: fmt.Sprintf("#%d", n),
				Extra:  map[string]string{"uptime": now.Sub(started).Round(time.Millisecond).String()},
			}))
		case <-h.stopCh:
			return
		}
	}
}

// Stop stops the heartbeat goroutine and waits for it to finish. Safe to call
// on a nil Heartbeat and more than once.
func (h *Heartbeat) Stop() {
	if h == nil {
		return
	}
	h.once.Do(func() { close(h.stopCh) })
	h.wg.Wait()
}
