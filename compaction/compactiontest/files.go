// Package compactiontest builds compaction inputs for tests.
package compactiontest

import (
	"fmt"
	"slices"
	"strings"

	"tablet.dev/compaction/compaction"
	"tablet.dev/compaction/util/size"
)

const tabletDir = "hdfs://fake/tables/1/t-0000000z/"

// Files builds files from name and size pairs, e.g. Files("F1", "100M", "F2", "1M").
func Files(nameSizePairs ...string) []compaction.CompactableFile {
	if len(nameSizePairs)%2 != 0 {
		panic(fmt.Sprintf("Files needs name and size pairs, got %d values", len(nameSizePairs)))
	}
	files := make([]compaction.CompactableFile, 0, len(nameSizePairs)/2)
	for i := 0; i < len(nameSizePairs); i += 2 {
		files = append(files, File(nameSizePairs[i], nameSizePairs[i+1]))
	}
	return files
}

// File builds one file in the fake tablet directory.
func File(name, byteSize string) compaction.CompactableFile {
	return compaction.NewFile(tabletDir+name+".rf", size.MustParse(byteSize), 0)
}

// Names returns the sorted base names of files without their extension.
func Names(files []compaction.CompactableFile) []string {
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = strings.TrimSuffix(f.Name(), ".rf")
	}
	slices.Sort(names)
	return names
}

// Running describes a compaction of files that started when all was the
// tablet's file set.
func Running(kind compaction.Kind, all, files []compaction.CompactableFile) compaction.RunningCompaction {
	return compaction.RunningCompaction{Kind: kind, All: all, Files: files}
}

// Params builds planning parameters for table "42" with no hints.
func Params(all, candidates []compaction.CompactableFile, running []compaction.RunningCompaction, ratio float64, kind compaction.Kind) compaction.PlanningParameters {
	return compaction.PlanningParameters{
		TableID:    "42",
		Candidates: candidates,
		All:        all,
		Running:    running,
		Ratio:      ratio,
		Kind:       kind,
		Hints:      map[string]string{},
	}
}
