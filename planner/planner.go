package planner

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/segmentio/ksuid"
	"tablet.dev/compaction/compaction"
	"tablet.dev/compaction/telemetry"
)

// DefaultPlanner plans at most one compaction job per call. Small files are
// grouped with the ratio rule and each group is routed to the smallest
// executor that accepts its total size.
type DefaultPlanner struct {
	service   compaction.ServiceID
	executors *executorTable
	maxOpen   int
	logger    *slog.Logger
}

type Option func(*DefaultPlanner)

// WithLogger sets the logger the planner tags with its service and instance
// id. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *DefaultPlanner) {
		p.logger = logger
	}
}

// New validates the planner options and asks the executor manager for every
// configured executor. No executor is requested when validation fails.
func New(params compaction.InitParameters, opts ...Option) (*DefaultPlanner, error) {
	defs, defsErr := parseExecutors(params.Options)
	maxOpen, maxOpenErr := resolveMaxOpen(params)
	if err := errors.Join(defsErr, maxOpenErr); err != nil {
		return nil, err
	}

	manager := params.Executors
	if manager == nil {
		manager = compaction.NewExecutorRegistry(params.Service)
	}
	for i, d := range defs {
		switch d.Type {
		case compaction.External:
			defs[i].ID = manager.ExternalExecutor(d.Queue)
		default:
			defs[i].ID = manager.CreateExecutor(d.Name, d.Threads)
		}
	}

	p := &DefaultPlanner{
		service:   params.Service,
		executors: newExecutorTable(defs),
		maxOpen:   maxOpen,
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(p)
	}
	p.logger = p.logger.With("service", string(params.Service), "planner", ksuid.New().String())
	p.logger.Info("initialized compaction planner", "executors", p.executors.String(), "maxOpen", maxOpen)

	return p, nil
}

// Executors returns the validated executors ordered by maxSize, unbounded last.
func (p *DefaultPlanner) Executors() []ExecutorDefinition {
	return p.executors.all()
}

func (p *DefaultPlanner) MaxOpen() int {
	return p.maxOpen
}

func (p *DefaultPlanner) MakePlan(params compaction.PlanningParameters) compaction.Plan {
	start := time.Now()
	plan := p.makePlan(params)

	plansTotal.Inc()
	if plan.IsEmpty() {
		plansEmpty.Inc()
	}
	observed := make([]telemetry.PlannedJob, len(plan.Jobs))
	for i, job := range plan.Jobs {
		observed[i] = telemetry.PlannedJob{
			Kind:     job.Kind.String(),
			Executor: job.Executor.String(),
			Bytes:    job.TotalSize(),
		}
	}
	telemetry.ObservePlan(string(p.service), time.Since(start), observed...)

	return plan
}

func (p *DefaultPlanner) makePlan(params compaction.PlanningParameters) compaction.Plan {
	if len(params.Candidates) == 0 {
		return compaction.EmptyPlan()
	}
	params.Candidates = compaction.Unique(params.Candidates)

	maxSize := p.maxSizeToCompact(params.Kind)

	var group []compaction.CompactableFile
	switch {
	case len(params.Running) == 0:
		group = FindFilesToCompact(params.Candidates, params.Ratio, p.maxOpen, maxSize)
		if len(group) > 0 && len(group) < len(params.Candidates) &&
			len(params.Candidates) <= p.maxOpen && params.Kind.LooksAhead() {
			group = p.lookAhead(params, group, maxSize)
		}
	case params.Kind == compaction.System:
		expected := expectedFiles(params.Running)
		group = FindFilesToCompact(append(slices.Clone(params.Candidates), expected...), params.Ratio, p.maxOpen, maxSize)
		if slices.ContainsFunc(group, compaction.NewFileSet(expected...).Has) {
			p.logger.Debug("deferring until running compactions finish",
				"table", params.TableID, "running", len(params.Running))
			plansDeferred.Inc()
			group = nil
		}
	}

	if len(group) == 0 && params.Kind.MustCompactAll() {
		if slices.ContainsFunc(params.Running, func(rc compaction.RunningCompaction) bool {
			return rc.Kind == params.Kind
		}) {
			p.logger.Debug("waiting for running compaction of the same kind",
				"table", params.TableID, "kind", params.Kind)
			userSerialized.Inc()
		} else {
			group = maximalRequiredSet(params.Candidates, p.maxOpen)
		}
	}

	if len(group) == 0 {
		return compaction.EmptyPlan()
	}

	total := compaction.SumSizes(group)
	executor := p.executors.executorFor(total)
	job := compaction.NewJob(
		params.Kind,
		executor.ID,
		CreatePriority(params.Kind, len(params.All), len(group)),
		group,
	)
	plan, err := compaction.NewPlan(params, job)
	if err != nil {
		panic(err)
	}

	p.logger.Debug("planned compaction",
		"table", params.TableID,
		"kind", params.Kind,
		"files", len(group),
		"bytes", total,
		"executor", executor.ID)
	return plan
}

// maxSizeToCompact caps system compactions at the largest executor when every
// executor is bounded. Other kinds must be able to compact everything.
func (p *DefaultPlanner) maxSizeToCompact(kind compaction.Kind) int64 {
	if kind == compaction.System {
		return p.executors.maxJobSize()
	}
	return math.MaxInt64
}

// lookAhead checks whether the output of group would itself be compacted with
// the remaining candidates. If not, compacting all candidates now avoids
// rewriting the same data again on the next call.
func (p *DefaultPlanner) lookAhead(params compaction.PlanningParameters, group []compaction.CompactableFile, maxSize int64) []compaction.CompactableFile {
	remaining := compaction.NewFileSet(group...).Without(params.Candidates)
	next := append(remaining, hypotheticalFile(0, compaction.SumSizes(group)))
	if len(FindFilesToCompact(next, params.Ratio, p.maxOpen, maxSize)) == 0 {
		return slices.Clone(params.Candidates)
	}
	return group
}

// maximalRequiredSet picks the files a user compaction should start with.
// Between maxOpen and twice maxOpen files, only enough small files are taken
// so that the next round fits in maxOpen, which keeps the largest files from
// being rewritten twice.
func maximalRequiredSet(candidates []compaction.CompactableFile, maxOpen int) []compaction.CompactableFile {
	if len(candidates) <= maxOpen {
		return slices.Clone(candidates)
	}

	sorted := compaction.SortBySize(candidates)
	n := maxOpen
	if len(candidates) < 2*maxOpen {
		n = len(candidates) - maxOpen + 1
	}
	return sorted[:n]
}

// expectedFiles stands one file in for the output of each running compaction.
func expectedFiles(running []compaction.RunningCompaction) []compaction.CompactableFile {
	files := make([]compaction.CompactableFile, len(running))
	for i, rc := range running {
		files[i] = hypotheticalFile(i, compaction.SumSizes(rc.Files))
	}
	return files
}

func hypotheticalFile(n int, byteSize int64) compaction.CompactableFile {
	return compaction.NewFile(fmt.Sprintf("hypothetical://planner/expected-%05d.rf", n), byteSize, 0)
}

var _ compaction.Planner = (*DefaultPlanner)(nil)
