// Package metrics provides solo runtime monitoring counters, useful for
// observing executor and reactor behavior without attaching a debugger.
package metrics

import (
	"fmt"
	"time"

	"go.uber.org/atomic"
)

// All metrics definitions.
const (
	// EpollWait counts calls to epoll_wait that actually blocked.
	EpollWait = iota
	// EpollNoWait counts calls to epoll_wait with a zero timeout.
	EpollNoWait
	// EpollEvents counts the total number of events returned by epoll_wait.
	EpollEvents
	// TasksScheduled counts tasks pushed onto the ready-queue.
	TasksScheduled
	// TasksPolled counts Future.Poll invocations across all tasks.
	TasksPolled
	// TasksCompleted counts tasks that reached the Complete state.
	TasksCompleted
	// TasksPanicked counts tasks whose Poll call panicked.
	TasksPanicked
	// WakerClones counts Waker.Clone calls.
	WakerClones
	// WakerWakes counts Waker.Wake/WakeByRef calls.
	WakerWakes
	// Max is one past the largest defined metric; used to size the table.
	Max
)

var counters [Max]atomic.Uint64

// Add adds delta to the named counter. Out-of-range names are ignored.
func Add(name int, delta uint64) {
	if name < 0 || name >= Max {
		return
	}
	counters[name].Add(delta)
}

// Get returns the current value of the named counter.
func Get(name int) uint64 {
	if name < 0 || name >= Max {
		return 0
	}
	return counters[name].Load()
}

// GetAll returns a snapshot of every counter.
func GetAll() [Max]uint64 {
	var m [Max]uint64
	for i := range counters {
		m[i] = counters[i].Load()
	}
	return m
}

// Show prints all counters to stdout, primarily for interactive
// debugging.
func Show() {
	m := GetAll()
	fmt.Println("######### solo metrics (", time.Now().Format("2006-01-02 15:04:05"), ") ###########")
	fmt.Printf("%-40s: %d\n", "# epoll_wait calls (blocking)", m[EpollWait])
	fmt.Printf("%-40s: %d\n", "# epoll_wait calls (non-blocking)", m[EpollNoWait])
	fmt.Printf("%-40s: %d\n", "# epoll events observed", m[EpollEvents])
	fmt.Printf("%-40s: %d\n", "# tasks scheduled", m[TasksScheduled])
	fmt.Printf("%-40s: %d\n", "# tasks polled", m[TasksPolled])
	fmt.Printf("%-40s: %d\n", "# tasks completed", m[TasksCompleted])
	fmt.Printf("%-40s: %d\n", "# tasks panicked", m[TasksPanicked])
	fmt.Printf("%-40s: %d\n", "# waker clones", m[WakerClones])
	fmt.Printf("%-40s: %d\n", "# waker wakes", m[WakerWakes])
}
