package compaction

import (
	"fmt"
	"strings"
)

// Job is a single planned compaction. Files are kept sorted by URI.
type Job struct {
	Kind     Kind
	Files    []CompactableFile
	Executor ExecutorID
	Priority int16
}

func NewJob(kind Kind, executor ExecutorID, priority int16, files []CompactableFile) Job {
	return Job{
		Kind:     kind,
		Files:    SortByURI(files),
		Executor: executor,
		Priority: priority,
	}
}

// TotalSize is the summed estimated size of the job's files.
func (j Job) TotalSize() int64 {
	return SumSizes(j.Files)
}

func (j Job) String() string {
	names := make([]string, len(j.Files))
	for i, f := range j.Files {
		names[i] = f.Name()
	}
	return fmt.Sprintf("%s job on %s prio=%d files=[%s]", j.Kind, j.Executor, j.Priority, strings.Join(names, " "))
}

// RunningCompaction is a snapshot of a job that is already executing for the
// tablet. All holds the tablet's files when the job started.
type RunningCompaction struct {
	Kind  Kind
	All   []CompactableFile
	Files []CompactableFile
}
