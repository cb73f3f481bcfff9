package planner

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/btree"
	"tablet.dev/compaction/compaction"
	"tablet.dev/compaction/util/size"
)

// ExecutorDefinition is a validated executor or queue. MaxSize is zero for the
// single pool that accepts jobs of any size.
type ExecutorDefinition struct {
	ID      compaction.ExecutorID
	Name    string
	Type    compaction.ExecutorType
	Threads int
	Queue   string
	MaxSize int64
}

func (d ExecutorDefinition) Bounded() bool {
	return d.MaxSize > 0
}

// ceiling orders executors with the unbounded pool last.
func (d ExecutorDefinition) ceiling() int64 {
	if !d.Bounded() {
		return math.MaxInt64
	}
	return d.MaxSize
}

func (d ExecutorDefinition) String() string {
	limit := "unbounded"
	if d.Bounded() {
		limit = "<" + size.Format(d.MaxSize)
	}
	switch d.Type {
	case compaction.External:
		return fmt.Sprintf("%s queue=%s %s", d.Name, d.Queue, limit)
	default:
		return fmt.Sprintf("%s threads=%d %s", d.Name, d.Threads, limit)
	}
}

// executorTable finds the smallest executor that can take a job of a given
// size. Validation guarantees ceilings are unique.
type executorTable struct {
	tree *btree.BTreeG[ExecutorDefinition]
}

func newExecutorTable(defs []ExecutorDefinition) *executorTable {
	tree := btree.NewG(2, func(a, b ExecutorDefinition) bool {
		if a.ceiling() == b.ceiling() {
			return a.Bounded() && !b.Bounded()
		}
		return a.ceiling() < b.ceiling()
	})
	for _, d := range defs {
		tree.ReplaceOrInsert(d)
	}
	return &executorTable{tree: tree}
}

// executorFor returns the first executor whose limit is strictly greater than
// total, falling back to the largest executor. The limit is exclusive: a job of
// exactly maxSize bytes goes to the next larger executor.
func (t *executorTable) executorFor(total int64) ExecutorDefinition {
	pivot := total
	if pivot < math.MaxInt64 {
		pivot++
	}

	var found ExecutorDefinition
	var ok bool
	t.tree.AscendGreaterOrEqual(ExecutorDefinition{MaxSize: pivot}, func(d ExecutorDefinition) bool {
		found, ok = d, true
		return false
	})
	if ok {
		return found
	}

	largest, _ := t.tree.Max()
	return largest
}

// maxJobSize is the largest bounded limit, or MaxInt64 if an unbounded
// executor exists.
func (t *executorTable) maxJobSize() int64 {
	largest, _ := t.tree.Max()
	return largest.ceiling()
}

func (t *executorTable) all() []ExecutorDefinition {
	defs := make([]ExecutorDefinition, 0, t.tree.Len())
	t.tree.Ascend(func(d ExecutorDefinition) bool {
		defs = append(defs, d)
		return true
	})
	return defs
}

func (t *executorTable) String() string {
	var sb strings.Builder
	for i, d := range t.all() {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(d.String())
	}
	return sb.String()
}
