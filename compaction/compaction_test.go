package compaction_test

import (
	"math"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tablet.dev/compaction/compaction"
	"tablet.dev/compaction/compaction/compactiontest"
)

func TestCompactableFile(t *testing.T) {
	f := compaction.NewFile("hdfs://fake/tables/1/t-0001/F1.rf", 1024, 7)
	assert.Equal(t, "F1.rf", f.Name())
	assert.Equal(t, "F1.rf(1.0 KiB)", f.String())
}

func TestSortBySize(t *testing.T) {
	files := compactiontest.Files("B", "2M", "A", "2M", "C", "1M")
	sorted := compaction.SortBySize(files)

	var names []string
	for _, f := range sorted {
		names = append(names, f.Name())
	}
	assert.Equal(t, []string{"C.rf", "A.rf", "B.rf"}, names)
	assert.Equal(t, "B.rf", files[0].Name(), "input is not modified")
	assert.Equal(t, int64(5<<20), compaction.SumSizes(files))
}

func TestSumSizes_Saturates(t *testing.T) {
	half := int64(math.MaxInt64/2 + 10)
	files := []compaction.CompactableFile{
		compaction.NewFile("file:///t/A.rf", half, 1),
		compaction.NewFile("file:///t/B.rf", half, 2),
		compaction.NewFile("file:///t/C.rf", half, 3),
	}
	assert.Equal(t, int64(math.MaxInt64), compaction.SumSizes(files))
	assert.Equal(t, int64(7), compaction.AddSize(3, 4))
}

func TestFileSet(t *testing.T) {
	files := compactiontest.Files("A", "1M", "B", "1M", "C", "1M")
	set := compaction.NewFileSet(files[:2]...)

	assert.True(t, set.Has(files[0]))
	assert.False(t, set.Has(files[2]))
	assert.True(t, set.ContainsAll(files[:2]))
	assert.False(t, set.ContainsAll(files))
	assert.Equal(t, files[2:], set.Without(files))

	repeated := append(slices.Clone(files), files[1], files[0])
	assert.Equal(t, files, compaction.Unique(repeated))
}

func TestKind(t *testing.T) {
	for _, k := range []compaction.Kind{compaction.System, compaction.User, compaction.Selector, compaction.Chop} {
		parsed, err := compaction.ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}

	k, err := compaction.ParseKind("user")
	require.NoError(t, err)
	assert.Equal(t, compaction.User, k)
	assert.True(t, k.MustCompactAll())
	assert.True(t, compaction.Selector.MustCompactAll())
	assert.False(t, compaction.System.MustCompactAll())
	assert.True(t, compaction.Chop.MustCompactAll())

	assert.True(t, compaction.User.LooksAhead())
	assert.True(t, compaction.Selector.LooksAhead())
	assert.False(t, compaction.Chop.LooksAhead())
	assert.False(t, compaction.System.LooksAhead())

	_, err = compaction.ParseKind("major")
	assert.Error(t, err)
}

func TestExecutorID(t *testing.T) {
	assert.Equal(t, "i.cs1.small", compaction.InternalExecutor("cs1", "small").String())
	assert.Equal(t, "e.q1", compaction.ExternalExecutor("q1").String())
	assert.NotEqual(t, compaction.InternalExecutor("cs1", "q1"), compaction.ExternalExecutor("q1"))
}

func TestNewJob_SortsFiles(t *testing.T) {
	files := compactiontest.Files("B", "1M", "A", "3M")
	job := compaction.NewJob(compaction.System, compaction.ExternalExecutor("q1"), -5, files)

	assert.Equal(t, "A.rf", job.Files[0].Name())
	assert.Equal(t, int64(4<<20), job.TotalSize())
	assert.Equal(t, int16(-5), job.Priority)
}

func TestNewPlan(t *testing.T) {
	all := compactiontest.Files("A", "1M", "B", "1M", "C", "1M")
	params := compactiontest.Params(all, all[:2], nil, 3, compaction.System)
	executor := compaction.InternalExecutor("cs1", "small")

	plan, err := compaction.NewPlan(params, compaction.NewJob(compaction.System, executor, 1, all[:2]))
	require.NoError(t, err)
	assert.Len(t, plan.Jobs, 1)
	assert.False(t, plan.IsEmpty())
	assert.True(t, compaction.EmptyPlan().IsEmpty())

	_, err = compaction.NewPlan(params, compaction.NewJob(compaction.System, executor, 1, all))
	assert.ErrorIs(t, err, compaction.ErrInvalidPlan, "C is not a candidate")

	_, err = compaction.NewPlan(params,
		compaction.NewJob(compaction.System, executor, 1, all[:1]),
		compaction.NewJob(compaction.System, executor, 1, all[:2]),
	)
	assert.ErrorIs(t, err, compaction.ErrInvalidPlan, "A is in two jobs")

	_, err = compaction.NewPlan(params, compaction.NewJob(compaction.System, executor, 1, nil))
	assert.ErrorIs(t, err, compaction.ErrInvalidPlan)
}

func TestExecutorRegistry(t *testing.T) {
	r := compaction.NewExecutorRegistry("cs1")
	small := r.CreateExecutor("small", 2)
	r.CreateExecutor("big", 4)

	assert.Equal(t, compaction.InternalExecutor("cs1", "small"), small)
	assert.Equal(t, compaction.ExternalExecutor("q"), r.ExternalExecutor("q"))
	assert.Equal(t, []compaction.ExecutorID{
		compaction.InternalExecutor("cs1", "big"), small,
	}, r.Internal())

	threads, ok := r.Threads(small)
	assert.True(t, ok)
	assert.Equal(t, 2, threads)
}
