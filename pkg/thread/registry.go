package thread

import (
	"runtime"
	"sync"
)

// Source hands out the id of the calling thread.
type Source interface {
	CurrentID() int64
}

// Registry maps OS threads to small monotonic ids. The same OS thread always
// gets the same id; ids start at 1 so that 0 can mean "no thread".
type Registry struct {
	mu   sync.Mutex
	ids  map[int64]int64
	next int64
}

// NewRegistry creates an empty Registry
func NewRegistry() *Registry {
	return &Registry{ids: make(map[int64]int64)}
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// CurrentID returns the id of the OS thread running the caller.
func (r *Registry) CurrentID() int64 {
	return r.lookup(osThreadID())
}

// Len returns how many threads have been assigned an id.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.ids)
}

func (r *Registry) lookup(osID int64) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.ids[osID]; ok {
		return id
	}

	r.next++
	r.ids[osID] = r.next
	return r.next
}

// CurrentID returns the calling thread's id from the process-wide registry.
func CurrentID() int64 {
	return defaultRegistry.CurrentID()
}

// Pin wires the calling goroutine to its OS thread so that CurrentID stays
// stable, and returns the function that undoes it.
func Pin() (unpin func()) {
	runtime.LockOSThread()
	return runtime.UnlockOSThread
}
