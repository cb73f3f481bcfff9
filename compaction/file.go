package compaction

import (
	"cmp"
	"math"
	"path"
	"slices"
	"strings"

	"tablet.dev/compaction/util/size"
)

// CompactableFile is a tablet data file as seen by a planner. Size is an
// estimate supplied by the storage layer and Seq orders files by creation.
type CompactableFile struct {
	URI  string
	Size int64
	Seq  uint64
}

func NewFile(uri string, byteSize int64, seq uint64) CompactableFile {
	return CompactableFile{URI: uri, Size: byteSize, Seq: seq}
}

// Name returns the last path element of the file's URI.
func (f CompactableFile) Name() string {
	return path.Base(strings.TrimSuffix(f.URI, "/"))
}

func (f CompactableFile) String() string {
	return f.Name() + "(" + size.Format(f.Size) + ")"
}

// SumSizes returns the total estimated size of files, saturating at
// math.MaxInt64.
func SumSizes(files []CompactableFile) int64 {
	var total int64
	for _, f := range files {
		total = AddSize(total, f.Size)
	}
	return total
}

// Unique drops repeated files, keeping the first of each.
func Unique(files []CompactableFile) []CompactableFile {
	seen := make(FileSet, len(files))
	unique := make([]CompactableFile, 0, len(files))
	for _, f := range files {
		if !seen.Has(f) {
			seen[f] = struct{}{}
			unique = append(unique, f)
		}
	}
	return unique
}

// AddSize adds two non-negative sizes without wrapping past math.MaxInt64.
func AddSize(a, b int64) int64 {
	if a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}

// SortBySize returns a copy of files ordered smallest first. Files of equal
// size are ordered by URI so that planning is deterministic.
func SortBySize(files []CompactableFile) []CompactableFile {
	sorted := slices.Clone(files)
	slices.SortFunc(sorted, func(a, b CompactableFile) int {
		return cmp.Or(cmp.Compare(a.Size, b.Size), strings.Compare(a.URI, b.URI))
	})
	return sorted
}

// SortByURI returns a copy of files ordered by URI.
func SortByURI(files []CompactableFile) []CompactableFile {
	sorted := slices.Clone(files)
	slices.SortFunc(sorted, func(a, b CompactableFile) int {
		return strings.Compare(a.URI, b.URI)
	})
	return sorted
}

// FileSet indexes files by value for membership checks.
type FileSet map[CompactableFile]struct{}

func NewFileSet(files ...CompactableFile) FileSet {
	s := make(FileSet, len(files))
	for _, f := range files {
		s[f] = struct{}{}
	}
	return s
}

func (s FileSet) Has(f CompactableFile) bool {
	_, ok := s[f]
	return ok
}

// ContainsAll reports whether every file is in the set.
func (s FileSet) ContainsAll(files []CompactableFile) bool {
	for _, f := range files {
		if !s.Has(f) {
			return false
		}
	}
	return true
}

// Without returns the files not in the set, keeping their order.
func (s FileSet) Without(files []CompactableFile) []CompactableFile {
	out := make([]CompactableFile, 0, len(files))
	for _, f := range files {
		if !s.Has(f) {
			out = append(out, f)
		}
	}
	return out
}
