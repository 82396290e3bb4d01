package main

import "sync"

type locker interface {
	RLock()
	RUnlock()
	Lock()
	Unlock()
}

func newLocker(impl string) locker {
	if impl == implCond {
		return newCondRWLock()
	}

	return &sync.RWMutex{}
}

// condRWLock is a writer-preferring read-write lock: new readers wait
// while a writer holds the lock or is queued for it.
type condRWLock struct {
	mu      sync.Mutex
	readers *sync.Cond
	writers *sync.Cond

	active         int
	writing        bool
	waitingWriters int
}

func newCondRWLock() *condRWLock {
	l := &condRWLock{}
	l.readers = sync.NewCond(&l.mu)
	l.writers = sync.NewCond(&l.mu)

	return l
}

func (l *condRWLock) RLock() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for l.writing || l.waitingWriters > 0 {
		l.readers.Wait()
	}

	l.active++
}

func (l *condRWLock) RUnlock() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.active--
	if l.active == 0 && l.waitingWriters > 0 {
		l.writers.Signal()
	}
}

func (l *condRWLock) Lock() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.waitingWriters++
	for l.writing || l.active > 0 {
		l.writers.Wait()
	}

	l.waitingWriters--
	l.writing = true
}

func (l *condRWLock) Unlock() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.writing = false
	if l.waitingWriters > 0 {
		l.writers.Signal()
	} else {
		l.readers.Broadcast()
	}
}
