package compaction

// ConfigurationSource reads resolved configuration values by key.
type ConfigurationSource interface {
	Get(key string) (string, bool)
}

// ExecutorManager provides executor ids while a planner is initialized.
// Creating internal executors is the execution layer's concern; planners only
// hold on to the returned ids.
type ExecutorManager interface {
	CreateExecutor(name string, threads int) ExecutorID
	ExternalExecutor(queue string) ExecutorID
}

// InitParameters are handed to a planner once, when its service is created.
type InitParameters struct {
	Service   ServiceID
	Options   map[string]string
	Env       ConfigurationSource
	Executors ExecutorManager
}

// PlanningParameters describe one tablet at one moment. Candidates never
// include files that are part of a running compaction.
type PlanningParameters struct {
	TableID    string
	Env        ConfigurationSource
	Candidates []CompactableFile
	All        []CompactableFile
	Running    []RunningCompaction
	Ratio      float64
	Kind       Kind
	Hints      map[string]string
}

// Planner decides what a tablet should compact next. Implementations must not
// block and must return the same plan for the same parameters.
type Planner interface {
	MakePlan(params PlanningParameters) Plan
}
