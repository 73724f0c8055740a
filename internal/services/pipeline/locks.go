package pipeline

import "sync"

// episodeLocks serializes pipeline runs per episode. Two concurrent runs
// for the same episode would race on the local audio path and on artifact
// creation; runs for different episodes never contend.
type episodeLocks struct {
	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func newEpisodeLocks() *episodeLocks {
	return &episodeLocks{locks: make(map[uint]*sync.Mutex)}
}

// Lock acquires the mutex for an episode, creating it on first use.
// Returns the unlock function.
func (e *episodeLocks) Lock(episodeID uint) func() {
	e.mu.Lock()
	lock, ok := e.locks[episodeID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[episodeID] = lock
	}
	e.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
