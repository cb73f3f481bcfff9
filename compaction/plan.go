package compaction

import (
	"errors"
	"fmt"
)

// Plan is the result of one planning call. An empty plan means there is
// nothing productive to do right now.
type Plan struct {
	Jobs []Job
}

func EmptyPlan() Plan {
	return Plan{}
}

func (p Plan) IsEmpty() bool {
	return len(p.Jobs) == 0
}

var ErrInvalidPlan = errors.New("invalid compaction plan")

// NewPlan checks that every job only compacts candidate files and that no file
// is claimed by two jobs.
func NewPlan(params PlanningParameters, jobs ...Job) (Plan, error) {
	candidates := NewFileSet(params.Candidates...)
	claimed := make(FileSet)
	for _, job := range jobs {
		if len(job.Files) == 0 {
			return Plan{}, fmt.Errorf("%w: job for %s has no files", ErrInvalidPlan, job.Executor)
		}
		for _, f := range job.Files {
			if !candidates.Has(f) {
				return Plan{}, fmt.Errorf("%w: %s is not a candidate", ErrInvalidPlan, f.URI)
			}
			if claimed.Has(f) {
				return Plan{}, fmt.Errorf("%w: %s is in more than one job", ErrInvalidPlan, f.URI)
			}
			claimed[f] = struct{}{}
		}
	}
	return Plan{Jobs: jobs}, nil
}
