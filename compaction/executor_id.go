package compaction

import "fmt"

// ServiceID names a compaction service. Each service owns one planner.
type ServiceID string

// ExecutorType distinguishes pools run by the tablet server from queues
// consumed by external compactors.
type ExecutorType int

const (
	Internal ExecutorType = iota
	External
)

func (t ExecutorType) String() string {
	if t == External {
		return "external"
	}
	return "internal"
}

// ExecutorID identifies where a job will run. Internal executors are scoped to
// their service while external queues are global.
type ExecutorID struct {
	Type    ExecutorType
	Service ServiceID
	Name    string
}

func InternalExecutor(service ServiceID, name string) ExecutorID {
	return ExecutorID{Type: Internal, Service: service, Name: name}
}

func ExternalExecutor(queue string) ExecutorID {
	return ExecutorID{Type: External, Name: queue}
}

func (id ExecutorID) String() string {
	if id.Type == External {
		return "e." + id.Name
	}
	return fmt.Sprintf("i.%s.%s", id.Service, id.Name)
}
