package sync

import "sync"

// Limiter restricts the total number of units of some resource (e.g. bytes
// of in-flight disk I/O) that may be held concurrently. Unlike a plain
// semaphore, a single request for more than the configured limit is allowed
// to proceed as long as nothing else is currently held, so that the limit
// acts as a soft target rather than a hard cap on batch size.
type Limiter struct {
	mu      sync.Mutex
	cond    *sync.Cond
	current int
	limit   int
}

// NewLimiter returns a Limiter with the given limit.
func NewLimiter(limit int) *Limiter {
	l := &Limiter{limit: limit}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// satisfied reports whether a request for n units may proceed given the
// current state. Must be called with mu held.
func (l *Limiter) satisfied(n int) bool {
	return l.current == 0 || l.current+n <= l.limit
}

// Request reserves n units, blocking until they are available or cancel
// fires. It returns true if cancel fired before the units could be reserved,
// and false if the units were reserved. A nil cancel never fires.
func (l *Limiter) Request(n int, cancel <-chan struct{}) bool {
	l.mu.Lock()
	if l.satisfied(n) {
		l.current += n
		l.mu.Unlock()
		return false
	}
	l.mu.Unlock()

	done := make(chan struct{})
	var cancelled bool
	if cancel != nil {
		go func() {
			select {
			case <-cancel:
				l.mu.Lock()
				cancelled = true
				l.mu.Unlock()
				l.cond.Broadcast()
			case <-done:
			}
		}()
	}

	l.mu.Lock()
	for !l.satisfied(n) && !cancelled {
		l.cond.Wait()
	}
	if !cancelled {
		l.current += n
	}
	result := cancelled
	l.mu.Unlock()
	close(done)
	return result
}

// Release returns n units to the pool, waking any blocked Request calls that
// may now be satisfiable.
func (l *Limiter) Release(n int) {
	l.mu.Lock()
	l.current -= n
	l.mu.Unlock()
	l.cond.Broadcast()
}

// SetLimit changes the limit, waking any blocked Request calls that may now
// be satisfiable.
func (l *Limiter) SetLimit(n int) {
	l.mu.Lock()
	l.limit = n
	l.mu.Unlock()
	l.cond.Broadcast()
}
