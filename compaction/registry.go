package compaction

import (
	"maps"
	"slices"
	"strings"
	"sync"
)

// ExecutorRegistry is an ExecutorManager that remembers the internal pools
// planners asked for so the execution layer can create them afterwards.
type ExecutorRegistry struct {
	service ServiceID
	mu      sync.Mutex
	threads map[ExecutorID]int
}

func NewExecutorRegistry(service ServiceID) *ExecutorRegistry {
	return &ExecutorRegistry{
		service: service,
		threads: make(map[ExecutorID]int),
	}
}

func (r *ExecutorRegistry) CreateExecutor(name string, threads int) ExecutorID {
	id := InternalExecutor(r.service, name)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.threads[id] = threads
	return id
}

func (r *ExecutorRegistry) ExternalExecutor(queue string) ExecutorID {
	return ExternalExecutor(queue)
}

// Threads returns the thread count requested for an internal executor.
func (r *ExecutorRegistry) Threads(id ExecutorID) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.threads[id]
	return n, ok
}

// Internal lists the internal executors that were created, ordered by name.
func (r *ExecutorRegistry) Internal() []ExecutorID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.SortedFunc(maps.Keys(r.threads), func(a, b ExecutorID) int {
		return strings.Compare(a.Name, b.Name)
	})
}

var _ ExecutorManager = (*ExecutorRegistry)(nil)
