package task

import "go.uber.org/atomic"

// Stats are debug counters over task allocation and teardown, used by
// tests to check that every spawned task's reference count reaches zero
// exactly once (spec.md §8 invariant 2). go.uber.org/atomic is used here,
// rather than the sync/atomic word in state.go, because these counters
// are incidental bookkeeping rather than the hot-path state machine the
// executor drives every turn.
var (
	allocated atomic.Uint64
	freed     atomic.Uint64
)

// Allocated returns the number of tasks spawned so far.
func Allocated() uint64 { return allocated.Load() }

// Freed returns the number of tasks whose reference count has reached
// zero so far.
func Freed() uint64 { return freed.Load() }
