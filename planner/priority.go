package planner

import (
	"math"

	"tablet.dev/compaction/compaction"
)

// CreatePriority ranks a job by how many files its tablet has. User and chop
// jobs are always positive so they run ahead of every system job.
func CreatePriority(kind compaction.Kind, totalFiles, compactingFiles int) int16 {
	prio := totalFiles + compactingFiles
	switch kind {
	case compaction.User, compaction.Chop:
		return int16(min(prio, math.MaxInt16))
	default:
		if prio > math.MaxInt16 {
			return -1
		}
		return int16(math.MinInt16 + prio)
	}
}
