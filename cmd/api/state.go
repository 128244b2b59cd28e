package main

import (
	"sync"
	"time"

	"supercritical/internal/orchestrator"
)

// runRetention is how long a finished run stays watchable so late
// subscribers can still read the terminal event.
const runRetention = 30 * time.Second

// runRegistry tracks generation runs by id for the watch endpoints.
type runRegistry struct {
	mu   sync.RWMutex
	runs map[string]*orchestrator.Run
}

func newRunRegistry() *runRegistry {
	return &runRegistry{runs: make(map[string]*orchestrator.Run)}
}

func (r *runRegistry) add(run *orchestrator.Run) {
	r.mu.Lock()
	r.runs[run.ID] = run
	r.mu.Unlock()

	go func() {
		<-run.Done()
		time.Sleep(runRetention)
		r.mu.Lock()
		delete(r.runs, run.ID)
		r.mu.Unlock()
	}()
}

func (r *runRegistry) get(id string) (*orchestrator.Run, bool) {
	r.mu.RLock()
	run, ok := r.runs[id]
	r.mu.RUnlock()
	return run, ok
}
