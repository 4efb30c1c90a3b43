package sync

import (
	"sync"
	"time"
)

// TryMutex behaves like a sync.Mutex, but additionally supports a
// non-blocking TryLock and a bounded-wait TryLockTimed.
type TryMutex struct {
	once sync.Once
	c    chan struct{}
}

func (tm *TryMutex) init() {
	tm.once.Do(func() {
		tm.c = make(chan struct{}, 1)
	})
}

// Lock blocks until the lock is acquired.
func (tm *TryMutex) Lock() {
	tm.init()
	tm.c <- struct{}{}
}

// Unlock releases the lock.
func (tm *TryMutex) Unlock() {
	<-tm.c
}

// TryLock attempts to acquire the lock without blocking, returning whether
// it succeeded.
func (tm *TryMutex) TryLock() bool {
	tm.init()
	select {
	case tm.c <- struct{}{}:
		return true
	default:
		return false
	}
}

// TryLockTimed attempts to acquire the lock, giving up after d has elapsed.
func (tm *TryMutex) TryLockTimed(d time.Duration) bool {
	tm.init()
	select {
	case tm.c <- struct{}{}:
		return true
	case <-time.After(d):
		return false
	}
}
