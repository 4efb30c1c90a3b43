package sync

// threadgroup.go implements a ThreadGroup, which is a one-shot primitive
// that tracks in-flight goroutines and provides a broadcast signal for
// telling them to stop. A module that spawns background goroutines embeds a
// ThreadGroup, calls Add before spawning one and Done when it exits, and
// calls Stop during shutdown to wait for every tracked goroutine to return
// and to run any registered cleanup.

import (
	"errors"
	"sync"
)

// ErrStopped is returned by Add and Stop when the ThreadGroup has already
// been stopped.
var ErrStopped = errors.New("thread group already stopped")

// ThreadGroup is a one-shot mechanism for waiting on a set of goroutines and
// running shutdown code exactly once. The zero value is a valid, unstopped
// ThreadGroup.
type ThreadGroup struct {
	stopChan     chan struct{}
	onStopFns    []func()
	afterStopFns []func()

	mu      sync.Mutex
	wg      sync.WaitGroup
	stopped bool
	once    sync.Once
}

// init lazily creates the stop channel so that the zero value of ThreadGroup
// is immediately usable.
func (tg *ThreadGroup) init() {
	tg.once.Do(func() {
		tg.stopChan = make(chan struct{})
	})
}

// StopChan returns a channel that is closed when Stop is called.
func (tg *ThreadGroup) StopChan() <-chan struct{} {
	tg.init()
	return tg.stopChan
}

// isStopped returns true if Stop has been called.
func (tg *ThreadGroup) isStopped() bool {
	tg.init()
	tg.mu.Lock()
	defer tg.mu.Unlock()
	return tg.stopped
}

// Add increments the ThreadGroup counter, indicating that a new goroutine
// has started and has not yet called Done. Add returns ErrStopped if the
// ThreadGroup has already been stopped, in which case the goroutine should
// not start.
func (tg *ThreadGroup) Add() error {
	tg.init()
	tg.mu.Lock()
	defer tg.mu.Unlock()
	if tg.stopped {
		return ErrStopped
	}
	tg.wg.Add(1)
	return nil
}

// Done marks a tracked goroutine as having completed.
func (tg *ThreadGroup) Done() {
	tg.wg.Done()
}

// OnStop registers a function to be called when Stop is invoked, before Stop
// waits for outstanding Add calls to finish. Registered functions are called
// in last-in-first-out order. If the ThreadGroup has already stopped, fn is
// called immediately.
func (tg *ThreadGroup) OnStop(fn func()) {
	tg.init()
	tg.mu.Lock()
	if tg.stopped {
		tg.mu.Unlock()
		fn()
		return
	}
	tg.onStopFns = append(tg.onStopFns, fn)
	tg.mu.Unlock()
}

// AfterStop registers a function to be called after Stop has waited for all
// outstanding Add calls to finish. Registered functions are called in
// last-in-first-out order. If the ThreadGroup has already stopped, fn is
// called immediately.
func (tg *ThreadGroup) AfterStop(fn func()) {
	tg.init()
	tg.mu.Lock()
	if tg.stopped {
		tg.mu.Unlock()
		fn()
		return
	}
	tg.afterStopFns = append(tg.afterStopFns, fn)
	tg.mu.Unlock()
}

// Flush waits for every goroutine tracked via Add/Done to finish, without
// closing the stop channel or running the OnStop/AfterStop callbacks. A
// module can call Flush to wait out a batch of work without shutting down.
func (tg *ThreadGroup) Flush() {
	tg.wg.Wait()
}

// Stop closes the stop channel, runs the OnStop callbacks (which are
// expected to unblock any tracked goroutines), waits for every tracked
// goroutine to call Done, and then runs the AfterStop callbacks. Stop
// returns ErrStopped if it has already been called.
func (tg *ThreadGroup) Stop() error {
	tg.init()

	tg.mu.Lock()
	if tg.stopped {
		tg.mu.Unlock()
		return ErrStopped
	}
	tg.stopped = true
	onStopFns := tg.onStopFns
	tg.onStopFns = nil
	close(tg.stopChan)
	tg.mu.Unlock()

	for i := len(onStopFns) - 1; i >= 0; i-- {
		onStopFns[i]()
	}

	tg.wg.Wait()

	tg.mu.Lock()
	afterStopFns := tg.afterStopFns
	tg.afterStopFns = nil
	tg.mu.Unlock()

	for i := len(afterStopFns) - 1; i >= 0; i-- {
		afterStopFns[i]()
	}
	return nil
}
