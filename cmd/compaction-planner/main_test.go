package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tablet.dev/compaction/compaction"
	"tablet.dev/compaction/logging"
)

const servicesDoc = `
services:
  cs1:
    ratio: 2
    planner:
      executors:
        - {name: small, type: internal, maxSize: 32M, numThreads: 1}
        - {name: huge, type: internal, numThreads: 2}
  cs2:
    planner:
      queues: [{name: q1}]
`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	err := app.Run(append([]string{"compaction-planner"}, args...))
	return out.String(), err
}

func writeServices(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "services.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func writeTablet(t *testing.T, sizes map[string]int) string {
	t.Helper()
	dir := t.TempDir()
	for name, n := range sizes {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), make([]byte, n), 0o644))
	}
	return dir
}

func TestValidate(t *testing.T) {
	out, err := run(t, "validate", writeServices(t, servicesDoc))
	require.NoError(t, err)
	assert.Contains(t, out, "cs1 (maxOpen 100)")
	assert.Contains(t, out, "i.cs1.small")
	assert.Contains(t, out, "e.q1")
}

func TestValidate_InvalidPlanner(t *testing.T) {
	_, err := run(t, "validate", writeServices(t, `
services:
  cs1:
    planner:
      executors: [{name: small, numThreads: 1, color: red}]
`))
	assert.ErrorContains(t, err, "Invalid fields: [color]")
}

func TestPlan(t *testing.T) {
	config := writeServices(t, servicesDoc)
	tablet := writeTablet(t, map[string]int{
		"F1.rf":     1024,
		"F2.rf":     1024,
		"F3.rf":     1024,
		"notes.txt": 1 << 20,
	})

	out, err := run(t, "plan", "--config", config, "--service", "cs1", tablet)
	require.NoError(t, err)
	assert.Contains(t, out, "3 files")
	assert.Contains(t, out, "SYSTEM compaction on i.cs1.small")
	assert.Contains(t, out, filepath.Join(tablet, "F1.rf"))
	assert.NotContains(t, out, "notes.txt")

	out, err = run(t, "plan", "--config", config, "--service", "cs1", "--running", "F1.rf", "--running", "F2.rf", tablet)
	require.NoError(t, err)
	assert.Contains(t, out, "nothing to compact")

	_, err = run(t, "plan", "--config", config, "--service", "cs9", tablet)
	assert.Error(t, err)
}

func TestSelect(t *testing.T) {
	out, err := run(t, "select", "--ratio", "2", "100M", "1M", "1M", "1M")
	require.NoError(t, err)
	assert.Contains(t, out, "selected 3 of 4 files, 3.0 MiB")
	assert.Contains(t, out, "F2(1.0 MiB)")

	out, err = run(t, "select", "1M", "10M", "100M")
	require.NoError(t, err)
	assert.Contains(t, out, "no files selected")

	_, err = run(t, "select", "lots")
	assert.Error(t, err)
}

func TestWatch(t *testing.T) {
	logging.SetLevel(slog.LevelInfo)
	var logs bytes.Buffer
	previous := slog.Default()
	slog.SetDefault(slog.New(logging.NewTextHandlerTo(&logs)))
	t.Cleanup(func() { slog.SetDefault(previous) })

	tablet := writeTablet(t, map[string]int{
		"F1.rf": 1024,
		"F2.rf": 1024,
		"F3.rf": 1024,
	})
	opts := planOptions{
		configPath: writeServices(t, servicesDoc),
		service:    "cs1",
		kind:       compaction.System,
		suffix:     ".rf",
		tablets:    []string{tablet},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	require.NoError(t, watch(ctx, opts, 20*time.Millisecond, "127.0.0.1:0"))

	out := logs.String()
	assert.Contains(t, out, "serving metrics addr=127.0.0.1:0")
	assert.Contains(t, out, "planned compaction tablet="+tablet)
	assert.Contains(t, out, "files=3")
}

func TestWatch_MissingService(t *testing.T) {
	opts := planOptions{
		configPath: writeServices(t, servicesDoc),
		service:    "cs9",
		tablets:    []string{t.TempDir()},
	}
	assert.Error(t, watch(context.Background(), opts, time.Second, "127.0.0.1:0"))
}
