package connector

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sentrysoftware/metricshub-sub023/internal/compute"
	"github.com/sentrysoftware/metricshub-sub023/internal/errors"
	"github.com/sentrysoftware/metricshub-sub023/internal/source"
	"github.com/sentrysoftware/metricshub-sub023/internal/telemetry"
	"gopkg.in/yaml.v3"
)

// UnmarshalYAML decodes monitor jobs from a mapping keyed by monitor type,
// keeping declaration order
func (j *Jobs) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return errors.New().Newf(ErrParseModel, "line %d: monitors must be a mapping", node.Line)
	}

	jobs := make(Jobs, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		job := &MonitorJob{}
		if err := node.Content[i+1].Decode(job); err != nil {
			return err
		}
		job.Type = node.Content[i].Value
		jobs = append(jobs, job)
	}
	*j = jobs

	return nil
}

// Load reads a connector model file. The connector id defaults to the file
// name without extension.
func Load(path string) (*Connector, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New().Wrap(ErrReadModel, err).WithMessage(path)
	}

	return Parse(data, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
}

// Parse decodes and validates a connector model. defaultID applies when the
// model does not declare an id.
func Parse(data []byte, defaultID string) (*Connector, error) {
	c := &Connector{}
	if err := yaml.Unmarshal(data, c); err != nil {
		if coded, ok := err.(errors.Error); ok {
			return nil, coded
		}
		return nil, errors.New().Wrap(ErrParseModel, err)
	}
	if c.ID == "" {
		c.ID = defaultID
	}
	if err := c.prepare(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// prepare assigns source keys and resolves mapping sources
func (c *Connector) prepare() error {
	if duplicates := c.assignKeys(); len(duplicates) > 0 {
		return errors.New().WithData(ErrDuplicateSource, duplicates)
	}

	for _, job := range c.Monitors {
		for _, t := range []struct {
			name string
			task *Task
		}{
			{TaskDiscovery, job.Discovery},
			{TaskCollect, collectTask(job)},
			{TaskSimple, job.Simple},
		} {
			if t.task == nil || t.task.Mapping == nil {
				continue
			}
			m := t.task.Mapping
			if m.Source == "" && len(t.task.Sources) > 0 {
				m.Key = t.task.Sources[len(t.task.Sources)-1].Base().Key
				continue
			}
			m.Key = resolveMappingSource(TaskKey(job.Type, t.name), m.Source)
		}
	}

	return nil
}

func collectTask(job *MonitorJob) *Task {
	if job.Collect == nil {
		return nil
	}

	return &job.Collect.Task
}

// Validate checks references, translation tables, mappings and metric
// definitions, and rejects reference cycles
func (c *Connector) Validate() error {
	errFactory := errors.New()

	var err error
	c.walk(func(key string, src source.Source) {
		if err != nil {
			return
		}
		for _, ref := range source.References(src) {
			if _, ok := c.index[ref]; !ok {
				err = errFactory.WithData(ErrUnknownReference, struct {
					Connector string
					Source    string
					Reference string
				}{c.ID, key, ref})
				return
			}
		}
		for _, name := range translationTables(src.Base().Computes) {
			if _, ok := c.TranslationTable(name); !ok {
				err = errFactory.WithData(ErrUnknownTranslation, struct {
					Connector string
					Source    string
					Table     string
				}{c.ID, key, name})
				return
			}
		}
	})
	if err != nil {
		return err
	}

	if cycle := c.findCycle(); cycle != nil {
		return errFactory.WithData(ErrReferenceCycle, strings.Join(cycle, " -> "))
	}

	for _, job := range c.Monitors {
		if job.Collect != nil && !job.Collect.Type.IsValid() {
			return errFactory.WithData(ErrInvalidCollectType, job.Collect.Type)
		}
		for _, task := range []*Task{job.Discovery, collectTask(job), job.Simple} {
			if task == nil || task.Mapping == nil {
				continue
			}
			if _, ok := c.index[task.Mapping.Key]; !ok {
				return errFactory.WithData(ErrInvalidMapping, struct {
					Connector   string
					MonitorType string
					Source      string
				}{c.ID, job.Type, task.Mapping.Source})
			}
		}
	}

	names := make([]string, 0, len(c.Metrics))
	for name := range c.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		def := c.Metrics[name]
		if !def.Type.IsValid() || (def.Type == telemetry.StateSet && len(def.States) == 0) {
			return errFactory.WithData(ErrInvalidMetric, name)
		}
	}

	return nil
}

func translationTables(computes compute.List) []string {
	var names []string
	for _, c := range computes {
		switch op := c.(type) {
		case *compute.Translate:
			names = append(names, op.TranslationTable)
		case *compute.ArrayTranslate:
			names = append(names, op.TranslationTable)
		case *compute.PerBitTranslation:
			names = append(names, op.TranslationTable)
		}
	}

	return names
}

// findCycle returns the first reference cycle found, closed on its start key
func (c *Connector) findCycle() []string {
	const (
		unvisited = iota
		inProgress
		done
	)
	state := make(map[string]int, len(c.index))
	var path []string
	var cycle []string

	var visit func(key string) bool
	visit = func(key string) bool {
		switch state[key] {
		case inProgress:
			for i, k := range path {
				if k == key {
					cycle = append(append([]string{}, path[i:]...), key)
					break
				}
			}
			return true
		case done:
			return false
		}

		state[key] = inProgress
		path = append(path, key)
		for _, ref := range source.References(c.index[key]) {
			if visit(ref) {
				return true
			}
		}
		path = path[:len(path)-1]
		state[key] = done

		return false
	}

	for _, key := range c.Sources() {
		if visit(key) {
			return cycle
		}
	}

	return nil
}
