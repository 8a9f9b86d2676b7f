// Package storage provides the on-disk storage engine that binds to a
// logmgr.LogManager.
package storage

import (
	"context"
	"sync"
	"time"

	"github.com/ariesdb/logmgr/internal/logmgr"
)

// CheckpointScheduler periodically takes a fuzzy checkpoint: it flushes
// dirty pages through the bound Engine, then calls LogManager.Checkpoint
// to snapshot the transaction and dirty-page tables and advance the
// master record. Either step alone still leaves recovery correct;
// flushing first just shortens the next Redo pass.
type CheckpointScheduler struct {
	lm     *logmgr.LogManager
	engine *Engine

	mu       sync.Mutex
	interval time.Duration
	lastRun  time.Time

	stop chan struct{}
	done chan struct{}
}

// NewCheckpointScheduler creates a scheduler bound to lm and engine.
func NewCheckpointScheduler(lm *logmgr.LogManager, engine *Engine, interval time.Duration) *CheckpointScheduler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &CheckpointScheduler{
		lm:       lm,
		engine:   engine,
		interval: interval,
	}
}

// SetInterval changes the interval between automatic checkpoints.
func (cs *CheckpointScheduler) SetInterval(interval time.Duration) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.interval = interval
}

// RunOnce takes a single checkpoint immediately, regardless of how much
// time has passed since the last one.
func (cs *CheckpointScheduler) RunOnce(ctx context.Context) error {
	if err := cs.engine.FlushDirtyPages(ctx); err != nil {
		return err
	}
	if err := cs.lm.Checkpoint(); err != nil {
		return err
	}
	cs.mu.Lock()
	cs.lastRun = time.Now()
	cs.mu.Unlock()
	return nil
}

// Start launches a goroutine that calls RunOnce on every tick of the
// configured interval until Stop is called. Start must not be called
// more than once without an intervening Stop.
func (cs *CheckpointScheduler) Start(ctx context.Context) {
	cs.mu.Lock()
	cs.stop = make(chan struct{})
	cs.done = make(chan struct{})
	interval := cs.interval
	cs.mu.Unlock()

	go func() {
		defer close(cs.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-cs.stop:
				return
			case <-ticker.C:
				_ = cs.RunOnce(ctx)
			}
		}
	}()
}

// Stop halts the background checkpoint loop started by Start and waits
// for it to exit.
func (cs *CheckpointScheduler) Stop() {
	cs.mu.Lock()
	stop := cs.stop
	done := cs.done
	cs.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// LastRun returns the time of the most recently completed checkpoint.
func (cs *CheckpointScheduler) LastRun() time.Time {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.lastRun
}
