package planner

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"tablet.dev/compaction/compaction"
	"tablet.dev/compaction/util/size"
)

const (
	OptionExecutors = "executors"
	OptionQueues    = "queues"
	OptionMaxOpen   = "maxOpen"

	// DefaultMaxOpen bounds the number of files a single job may open.
	DefaultMaxOpen = 100
)

var (
	executorFields = []string{"name", "type", "maxSize", "numThreads", "queue"}
	queueFields    = []string{"name", "maxSize"}
)

// MaxOpenKey is the configuration source key consulted when the maxOpen option
// is absent.
func MaxOpenKey(service compaction.ServiceID) string {
	return fmt.Sprintf("compaction.service.%s.planner.opts.maxOpen", service)
}

// parseExecutors validates the executors or queues option and returns the
// definitions ordered by maxSize with the unbounded one last. Ids are not
// assigned here.
func parseExecutors(options map[string]string) ([]ExecutorDefinition, error) {
	executors, hasExecutors := option(options, OptionExecutors)
	queues, hasQueues := option(options, OptionQueues)

	var (
		defs []ExecutorDefinition
		err  error
		noun string
	)
	switch {
	case hasExecutors && hasQueues:
		return nil, newConfigError("only one of '%s' or '%s' may be specified", OptionExecutors, OptionQueues)
	case hasExecutors:
		noun = "executor"
		defs, err = decodeElements(OptionExecutors, executors, executorFields, parseExecutor)
	case hasQueues:
		noun = "queue"
		defs, err = decodeElements(OptionQueues, queues, queueFields, parseQueue)
	}
	if err != nil {
		return nil, err
	}
	if len(defs) == 0 {
		return nil, ErrNoExecutors
	}

	slices.SortStableFunc(defs, func(a, b ExecutorDefinition) int {
		return cmp.Compare(a.ceiling(), b.ceiling())
	})

	var errs []error
	names := make(map[string]bool, len(defs))
	unbounded := 0
	for i, d := range defs {
		if names[d.Name] {
			errs = append(errs, newConfigError("duplicate %s name '%s'", noun, d.Name))
		}
		names[d.Name] = true

		if !d.Bounded() {
			unbounded++
			continue
		}
		if i > 0 && defs[i-1].MaxSize == d.MaxSize {
			errs = append(errs, newConfigError("duplicate maxSize %s set in %s", size.Format(d.MaxSize), noun+"s"))
		}
	}
	if unbounded > 1 {
		errs = append(errs, newConfigError("can only have one %s without a maxSize", noun))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return defs, nil
}

func decodeElements(
	name, value string,
	known []string,
	parse func(el map[string]json.RawMessage) (ExecutorDefinition, error),
) ([]ExecutorDefinition, error) {
	var elements []map[string]json.RawMessage
	if err := json.Unmarshal([]byte(value), &elements); err != nil {
		return nil, &ConfigError{Msg: fmt.Sprintf("'%s' must be a JSON array of objects", name), Err: err}
	}

	defs := make([]ExecutorDefinition, 0, len(elements))
	var errs []error
	for _, el := range elements {
		if unknown := unknownFields(el, known); len(unknown) > 0 {
			errs = append(errs, &UnknownFieldsError{Option: name, Fields: unknown})
			continue
		}
		def, err := parse(el)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		defs = append(defs, def)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return defs, nil
}

func parseExecutor(el map[string]json.RawMessage) (ExecutorDefinition, error) {
	name, err := requiredName(el)
	if err != nil {
		return ExecutorDefinition{}, err
	}
	typ, hasType, err := stringField(el, "type")
	if err != nil {
		return ExecutorDefinition{}, err
	}
	if !hasType {
		typ = compaction.Internal.String()
	}
	queue, hasQueue, err := stringField(el, "queue")
	if err != nil {
		return ExecutorDefinition{}, err
	}
	threads, hasThreads, err := intField(el, "numThreads")
	if err != nil {
		return ExecutorDefinition{}, err
	}

	def := ExecutorDefinition{Name: name}
	switch typ {
	case compaction.Internal.String():
		if hasQueue {
			return ExecutorDefinition{}, newConfigError("'queue' should not be specified for internal compactions")
		}
		if !hasThreads {
			return ExecutorDefinition{}, newConfigError("'numThreads' must be specified for internal type")
		}
		if threads < 1 {
			return ExecutorDefinition{}, newConfigError("'numThreads' must be at least 1 for executor '%s', got %d", name, threads)
		}
		def.Type = compaction.Internal
		def.Threads = threads
	case compaction.External.String():
		if hasThreads {
			return ExecutorDefinition{}, newConfigError("'numThreads' should not be specified for external compactions")
		}
		if !hasQueue || queue == "" {
			return ExecutorDefinition{}, newConfigError("'queue' must be specified for external type")
		}
		def.Type = compaction.External
		def.Queue = queue
	default:
		return ExecutorDefinition{}, newConfigError("type must be 'internal' or 'external'")
	}

	def.MaxSize, err = maxSizeField(el)
	if err != nil {
		return ExecutorDefinition{}, err
	}
	return def, nil
}

func parseQueue(el map[string]json.RawMessage) (ExecutorDefinition, error) {
	name, err := requiredName(el)
	if err != nil {
		return ExecutorDefinition{}, err
	}
	maxSize, err := maxSizeField(el)
	if err != nil {
		return ExecutorDefinition{}, err
	}
	return ExecutorDefinition{
		Name:    name,
		Type:    compaction.External,
		Queue:   name,
		MaxSize: maxSize,
	}, nil
}

func requiredName(el map[string]json.RawMessage) (string, error) {
	name, ok, err := stringField(el, "name")
	if err != nil {
		return "", err
	}
	if !ok || name == "" {
		return "", newConfigError("'name' must be specified")
	}
	return name, nil
}

func unknownFields(el map[string]json.RawMessage, known []string) []string {
	var unknown []string
	for field := range el {
		if !slices.Contains(known, field) {
			unknown = append(unknown, field)
		}
	}
	slices.Sort(unknown)
	return unknown
}

func stringField(el map[string]json.RawMessage, key string) (string, bool, error) {
	raw, ok := el[key]
	if !ok || string(raw) == "null" {
		return "", false, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", true, &ConfigError{Msg: fmt.Sprintf("'%s' must be a string", key), Err: err}
	}
	return strings.TrimSpace(s), true, nil
}

// intField accepts a JSON number or a string holding one.
func intField(el map[string]json.RawMessage, key string) (int, bool, error) {
	raw, ok := el[key]
	if !ok || string(raw) == "null" {
		return 0, false, nil
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return n, true, nil
		}
	}
	return 0, true, newConfigError("'%s' must be an integer, got %s", key, raw)
}

// maxSizeField returns zero when maxSize is absent. It accepts a size string
// such as "128M" or a plain number of bytes.
func maxSizeField(el map[string]json.RawMessage) (int64, error) {
	raw, ok := el["maxSize"]
	if !ok || string(raw) == "null" {
		return 0, nil
	}

	var maxSize int64
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		parsed, err := size.Parse(s)
		if err != nil {
			return 0, &ConfigError{Msg: fmt.Sprintf("invalid maxSize %q", s), Err: err}
		}
		maxSize = parsed
	} else if err := json.Unmarshal(raw, &maxSize); err != nil {
		return 0, &ConfigError{Msg: fmt.Sprintf("invalid maxSize %s", raw), Err: err}
	}

	if maxSize <= 0 {
		return 0, newConfigError("maxSize must be greater than zero, got %s", raw)
	}
	return maxSize, nil
}

func resolveMaxOpen(params compaction.InitParameters) (int, error) {
	value, ok := option(params.Options, OptionMaxOpen)
	if !ok && params.Env != nil {
		value, ok = params.Env.Get(MaxOpenKey(params.Service))
		value = strings.TrimSpace(value)
		ok = ok && value != ""
	}
	if !ok {
		return DefaultMaxOpen, nil
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, &ConfigError{Msg: fmt.Sprintf("'%s' must be an integer, got %q", OptionMaxOpen, value), Err: err}
	}
	if n < 2 {
		return 0, newConfigError("'%s' must be at least 2, got %d", OptionMaxOpen, n)
	}
	return n, nil
}

// option treats blank values as absent.
func option(options map[string]string, key string) (string, bool) {
	v, ok := options[key]
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}
