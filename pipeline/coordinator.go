package pipeline

import (
	"context"
	"errors"
	"log"
	"sync"

	"medscribe/types"
)

// ErrBusy is returned when a start is requested while a run is in flight.
var ErrBusy = errors.New("a pipeline run is already in progress")

// RunHook fires after each run with its result. Used for persistence,
// publishing and queue status updates.
type RunHook func(keyword types.Keyword, result *types.RunResult)

// Coordinator serializes pipeline runs: at most one keyword is in flight
// at a time. Deps are rebuilt per run so each run sees a fresh catalog.
type Coordinator struct {
	mu      sync.Mutex
	running bool
	current *Orchestrator
	last    *types.RunResult

	newDeps func() Deps
	hook    RunHook
}

// NewCoordinator creates a coordinator. newDeps is called once per run;
// hook may be nil.
func NewCoordinator(newDeps func() Deps, hook RunHook) *Coordinator {
	return &Coordinator{newDeps: newDeps, hook: hook}
}

// Busy reports whether a run is in flight.
func (c *Coordinator) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Start launches a run in the background. Returns ErrBusy when one is
// already in flight.
func (c *Coordinator) Start(kw types.Keyword) (string, error) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return "", ErrBusy
	}
	o := New(kw, c.newDeps())
	c.running = true
	c.current = o
	c.mu.Unlock()

	go func() {
		result := o.Run(context.Background(), kw)
		c.finish(kw, result)
	}()
	return o.runID, nil
}

// RunSync executes a run on the calling goroutine. Returns ErrBusy when one
// is already in flight.
func (c *Coordinator) RunSync(ctx context.Context, kw types.Keyword) (*types.RunResult, error) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	o := New(kw, c.newDeps())
	c.running = true
	c.current = o
	c.mu.Unlock()

	result := o.Run(ctx, kw)
	c.finish(kw, result)
	return result, nil
}

func (c *Coordinator) finish(kw types.Keyword, result *types.RunResult) {
	if c.hook != nil {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("run hook panicked: %v", r)
				}
			}()
			c.hook(kw, result)
		}()
	}

	c.mu.Lock()
	c.running = false
	c.last = result
	c.mu.Unlock()
}

// Status reports the in-flight run's state, or the last finished run, or
// an idle snapshot when nothing has run yet.
func (c *Coordinator) Status() types.StatusResponse {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		return c.current.Status()
	}
	return types.StatusResponse{Phase: types.PhaseIdle, Logs: []types.LogEntry{}}
}
