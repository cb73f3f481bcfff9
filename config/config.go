package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"

	"tablet.dev/compaction/compaction"
	"tablet.dev/compaction/planner"
)

// Config is a document describing compaction services.
type Config struct {
	Services map[string]Service `yaml:"services"`
	// Properties are extra configuration keys offered to planners, such as
	// compaction.service.<id>.planner.opts.maxOpen.
	Properties map[string]string `yaml:"properties"`
}

type Service struct {
	Planner PlannerOptions `yaml:"planner"`
	// Ratio is the default compaction ratio for the service's tablets.
	Ratio float64 `yaml:"ratio"`
}

type PlannerOptions struct {
	Executors []map[string]any `yaml:"executors"`
	Queues    []map[string]any `yaml:"queues"`
	MaxOpen   int              `yaml:"maxOpen"`
}

// DefaultRatio is used for services without a ratio.
const DefaultRatio = 3.0

func (c *Config) Validate() error {
	var errs []error
	if len(c.Services) == 0 {
		errs = append(errs, errors.New("at least one service is required"))
	}
	for _, id := range c.ServiceIDs() {
		for _, err := range c.Services[string(id)].problems() {
			errs = append(errs, fmt.Errorf("service %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// ServiceIDs returns the configured services in name order.
func (c *Config) ServiceIDs() []compaction.ServiceID {
	ids := make([]compaction.ServiceID, 0, len(c.Services))
	for _, name := range slices.Sorted(maps.Keys(c.Services)) {
		ids = append(ids, compaction.ServiceID(name))
	}
	return ids
}

// Service returns the named service.
func (c *Config) Service(id compaction.ServiceID) (Service, error) {
	s, ok := c.Services[string(id)]
	if !ok {
		return Service{}, fmt.Errorf("no service named %q", id)
	}
	return s, nil
}

// Source offers the document's properties with an environment fallback.
func (c *Config) Source() *EnvSource {
	source := NewEnvSource()
	for k, v := range c.Properties {
		source.Set(k, v)
	}
	return source
}

// InitParameters builds the parameters for the named service's planner.
func (c *Config) InitParameters(id compaction.ServiceID, executors compaction.ExecutorManager) (compaction.InitParameters, error) {
	s, err := c.Service(id)
	if err != nil {
		return compaction.InitParameters{}, err
	}
	options, err := s.Options()
	if err != nil {
		return compaction.InitParameters{}, fmt.Errorf("service %s: %w", id, err)
	}
	return compaction.InitParameters{
		Service:   id,
		Options:   options,
		Env:       c.Source(),
		Executors: executors,
	}, nil
}

func (s Service) Validate() error {
	return errors.Join(s.problems()...)
}

func (s Service) problems() []error {
	var errs []error
	if s.Ratio != 0 && s.Ratio <= 1 {
		errs = append(errs, fmt.Errorf("ratio must be greater than 1, got %v", s.Ratio))
	}
	hasExecutors := len(s.Planner.Executors) > 0
	hasQueues := len(s.Planner.Queues) > 0
	if !hasExecutors && !hasQueues {
		errs = append(errs, errors.New("planner needs executors or queues"))
	}
	if hasExecutors && hasQueues {
		errs = append(errs, errors.New("planner may have executors or queues but not both"))
	}
	if s.Planner.MaxOpen < 0 {
		errs = append(errs, fmt.Errorf("maxOpen must not be negative, got %d", s.Planner.MaxOpen))
	}
	return errs
}

// RatioOrDefault returns the service's ratio or DefaultRatio when unset.
func (s Service) RatioOrDefault() float64 {
	if s.Ratio == 0 {
		return DefaultRatio
	}
	return s.Ratio
}

// Options encodes the planner block as planner options. Executor and queue
// lists are passed through as JSON so the planner validates their fields.
func (s Service) Options() (map[string]string, error) {
	options := make(map[string]string)
	if len(s.Planner.Executors) > 0 {
		data, err := json.Marshal(s.Planner.Executors)
		if err != nil {
			return nil, fmt.Errorf("encoding executors: %w", err)
		}
		options[planner.OptionExecutors] = string(data)
	}
	if len(s.Planner.Queues) > 0 {
		data, err := json.Marshal(s.Planner.Queues)
		if err != nil {
			return nil, fmt.Errorf("encoding queues: %w", err)
		}
		options[planner.OptionQueues] = string(data)
	}
	if s.Planner.MaxOpen != 0 {
		options[planner.OptionMaxOpen] = strconv.Itoa(s.Planner.MaxOpen)
	}
	return options, nil
}
