package planner

import (
	"slices"

	"tablet.dev/compaction/compaction"
)

// FindFilesToCompact finds the largest set of small files that can be merged
// under the given ratio. A group qualifies when the largest file in it times
// the ratio is less than the group's total size. The result is empty when no
// group of at least two files qualifies within maxFiles files and maxSize
// bytes.
func FindFilesToCompact(files []compaction.CompactableFile, ratio float64, maxFiles int, maxSize int64) []compaction.CompactableFile {
	if len(files) <= 1 || maxFiles < 2 {
		return nil
	}

	sorted := compaction.SortBySize(files)

	var total int64
	for i, f := range sorted {
		total = compaction.AddSize(total, f.Size)
		if total > maxSize {
			sorted = sorted[:i]
			break
		}
	}
	if len(sorted) <= 1 {
		return nil
	}

	// Slide a window over the files so that small files are not ignored
	// forever when there are more than maxFiles of them.
	window := min(len(sorted), maxFiles)
	for start := 0; start+window <= len(sorted); start++ {
		if group := largestSmallSet(sorted[start:start+window], ratio); len(group) > 0 {
			return slices.Clone(group)
		}
	}
	return nil
}

// largestSmallSet expects files sorted by size and returns a prefix of them.
// A larger prefix replaces a smaller one only while the smaller one's total
// still exceeds the largest file it would have been merged into.
func largestSmallSet(sorted []compaction.CompactableFile, ratio float64) []compaction.CompactableFile {
	best := -1
	var bestSum int64
	good := -1

	sum := sorted[0].Size
	for c := 1; c < len(sorted); c++ {
		curr := sorted[c].Size
		sum = compaction.AddSize(sum, curr)

		if float64(curr)*ratio < float64(sum) {
			good = c
		} else if c-1 == good {
			if best != -1 && bestSum <= sorted[good].Size {
				break
			}
			best = good
			bestSum = sum - curr
		}
	}

	if good == len(sorted)-1 && (best == -1 || bestSum > sorted[good].Size) {
		best = good
	}
	if best == -1 {
		return nil
	}
	return sorted[:best+1]
}
