package coordinate

import (
	"sync"

	"golang.org/x/sync/semaphore"
)

// groupSemaphores is the process-global registry of named counting
// semaphores backing Serial (weight 1), Parallel (weight n) and NoOverlap
// (weight 1, keyed by job id instead of an explicit group name).
//
// golang.org/x/sync/semaphore.Weighted.TryAcquire never blocks, which is
// exactly the "must never block inside SetSignal" constraint; this is why
// it was chosen over a hand-rolled counter+mutex, per SPEC_FULL.md's
// domain-stack wiring.
var groupSemaphores = struct {
	mu sync.Mutex
	m  map[string]*semaphore.Weighted
}{m: make(map[string]*semaphore.Weighted)}

func acquireGroupSlot(key string, weight int64) bool {
	groupSemaphores.mu.Lock()
	sem, ok := groupSemaphores.m[key]
	if !ok {
		sem = semaphore.NewWeighted(weight)
		groupSemaphores.m[key] = sem
	}
	groupSemaphores.mu.Unlock()
	return sem.TryAcquire(1)
}

func releaseGroupSlot(key string, weight int64) {
	groupSemaphores.mu.Lock()
	sem, ok := groupSemaphores.m[key]
	groupSemaphores.mu.Unlock()
	if ok {
		sem.Release(1)
	}
	_ = weight
}
