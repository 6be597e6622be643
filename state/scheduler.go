package state

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
)

// Handle is a pending callback that can be cancelled before it fires.
type Handle interface {
	Cancel()
}

// Scheduler is the only clock the routing core sees.
type Scheduler interface {
	// Now returns the time elapsed since the scheduler started
	Now() time.Duration
	ScheduleOnce(delay time.Duration, fn func()) Handle
}

// Dispatch Dispatches the function to run on the main thread without waiting for it to complete
func (e *Env) Dispatch(fun func(*State) error) {
	defer func() {
		if r := recover(); r != nil {
			e.Cancel(fmt.Errorf("panic: %v", r))
		}
	}()
	select {
	case e.DispatchChannel <- fun:
	case <-e.Context.Done():
	}
}

// WallClock implements Scheduler on a real (or mocked) clock. Callbacks run on the dispatch loop.
type WallClock struct {
	env   *Env
	clk   clock.Clock
	start time.Time
}

func NewWallClock(e *Env, clk clock.Clock) *WallClock {
	return &WallClock{env: e, clk: clk, start: clk.Now()}
}

func (w *WallClock) Now() time.Duration {
	return w.clk.Since(w.start)
}

type wallHandle struct {
	timer     *clock.Timer
	cancelled atomic.Bool
}

func (h *wallHandle) Cancel() {
	h.cancelled.Store(true)
	h.timer.Stop()
}

func (w *WallClock) ScheduleOnce(delay time.Duration, fn func()) Handle {
	h := &wallHandle{}
	h.timer = w.clk.AfterFunc(delay, func() {
		w.env.Dispatch(func(s *State) error {
			// the timer may have fired before Cancel was called
			if h.cancelled.Load() {
				return nil
			}
			fn()
			return nil
		})
	})
	return h
}
