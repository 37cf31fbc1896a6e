// Package connector holds the connector model: the sources, computes,
// translation tables and mappings that describe how to monitor one kind of
// system.
package connector

import (
	"fmt"
	"strings"

	"github.com/sentrysoftware/metricshub-sub023/internal/compute"
	"github.com/sentrysoftware/metricshub-sub023/internal/source"
	"github.com/sentrysoftware/metricshub-sub023/internal/telemetry"
)

// Task names, used as the second segment of source keys
const (
	TaskDiscovery = "discovery"
	TaskCollect   = "collect"
	TaskSimple    = "simple"
	scopePre      = "pre"
)

// CollectType selects how collect sources are run
type CollectType string

const (
	// MultiInstance runs collect sources once for all monitors of the type
	MultiInstance CollectType = "multiInstance"
	// MonoInstance runs collect sources once per monitor
	MonoInstance CollectType = "monoInstance"
)

// IsValid reports whether c is a known collect type; empty means multiInstance
func (c CollectType) IsValid() bool {
	switch c {
	case "", MultiInstance, MonoInstance:
		return true
	default:
		return false
	}
}

// Connector describes how to discover and collect one family of systems
type Connector struct {
	ID                string                               `yaml:"id"`
	DisplayName       string                               `yaml:"displayName"`
	TranslationTables map[string]*compute.TranslationTable `yaml:"translations"`
	Metrics           map[string]telemetry.Definition      `yaml:"metrics"`
	Pre               source.List                          `yaml:"pre"`
	Monitors          Jobs                                 `yaml:"monitors"`

	index map[string]source.Source
}

// Jobs are monitor jobs in declaration order
type Jobs []*MonitorJob

// Job returns the job of a monitor type
func (j Jobs) Job(monitorType string) (*MonitorJob, bool) {
	for _, job := range j {
		if job.Type == monitorType {
			return job, true
		}
	}

	return nil, false
}

// MonitorJob holds the tasks of one monitor type
type MonitorJob struct {
	Type      string       `yaml:"-"`
	Discovery *Task        `yaml:"discovery"`
	Collect   *CollectTask `yaml:"collect"`
	Simple    *Task        `yaml:"simple"`
}

// Task is a set of sources and the mapping of its result to monitors
type Task struct {
	Sources source.List `yaml:"sources"`
	Mapping *Mapping    `yaml:"mapping"`
}

// CollectTask is a Task with a collect type
type CollectTask struct {
	Task `yaml:",inline"`
	Type CollectType `yaml:"type"`
}

// Mapping turns rows of a source into monitor attributes and metrics. Values
// are templates, see telemetry.Interpret.
type Mapping struct {
	Source string `yaml:"source"`
	// Key is the resolved key of Source
	Key        string            `yaml:"-"`
	Attributes map[string]string `yaml:"attributes"`
	Metrics    map[string]string `yaml:"metrics"`
}

// Source implements source.Catalog
func (c *Connector) Source(key string) (source.Source, bool) {
	src, ok := c.index[key]
	return src, ok
}

// TranslationTable implements source.Catalog
func (c *Connector) TranslationTable(name string) (*compute.TranslationTable, bool) {
	if tt, ok := c.TranslationTables[name]; ok {
		return tt, true
	}
	// connector authors are inconsistent with table name casing
	for n, tt := range c.TranslationTables {
		if strings.EqualFold(n, name) {
			return tt, true
		}
	}

	return nil, false
}

// Sources returns every source key in declaration order
func (c *Connector) Sources() []string {
	var keys []string
	c.walk(func(key string, _ source.Source) {
		keys = append(keys, key)
	})

	return keys
}

// Metric returns the definition of a metric, or a gauge definition when the
// connector does not declare it
func (c *Connector) Metric(name string) telemetry.Definition {
	if def, ok := c.Metrics[name]; ok {
		return def
	}

	return telemetry.Definition{Type: telemetry.Gauge}
}

// sourceName is the name of the i-th source of a list when it has none
func sourceName(i int) string {
	return fmt.Sprintf("source(%d)", i+1)
}

// TaskKey is the key prefix of a task's sources
func TaskKey(monitorType, task string) string {
	return monitorType + "." + task
}

// walk visits every source with its key, pre sources first
func (c *Connector) walk(fn func(key string, src source.Source)) {
	visit := func(scope string, list source.List) {
		for i, src := range list {
			name := src.Base().Name
			if name == "" {
				name = sourceName(i)
			}
			fn(scope+"."+name, src)
		}
	}

	visit(scopePre, c.Pre)
	for _, job := range c.Monitors {
		if job.Discovery != nil {
			visit(TaskKey(job.Type, TaskDiscovery), job.Discovery.Sources)
		}
		if job.Collect != nil {
			visit(TaskKey(job.Type, TaskCollect), job.Collect.Sources)
		}
		if job.Simple != nil {
			visit(TaskKey(job.Type, TaskSimple), job.Simple.Sources)
		}
	}
}

// assignKeys stamps every source with its key and builds the lookup index
func (c *Connector) assignKeys() []string {
	c.index = make(map[string]source.Source)

	var duplicates []string
	c.walk(func(key string, src source.Source) {
		if _, ok := c.index[key]; ok {
			duplicates = append(duplicates, key)
			return
		}
		src.Base().Key = key
		c.index[key] = src
	})

	return duplicates
}

// resolveMappingSource accepts "%key%", a bare key, or a name relative to
// the task
func resolveMappingSource(scope, ref string) string {
	key := source.ReferenceKey(ref)
	if key == "" || strings.Contains(key, ".") {
		return key
	}

	return scope + "." + key
}
