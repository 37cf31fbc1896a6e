package source

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sentrysoftware/metricshub-sub023/internal/compute"
	"github.com/sentrysoftware/metricshub-sub023/internal/errors"
	"github.com/sentrysoftware/metricshub-sub023/internal/logger"
	"github.com/sentrysoftware/metricshub-sub023/internal/table"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

// Catalog gives the resolver access to the sources and translation tables
// of one connector
type Catalog interface {
	Source(key string) (Source, bool)
	TranslationTable(name string) (*compute.TranslationTable, bool)
}

// Observer is notified of resolution outcomes
type Observer interface {
	SourceResolved(kind Kind, rows int, err error, elapsed time.Duration)
	RowDropped(kind compute.Kind)
}

// Option configures a Resolver
type Option func(*Resolver)

// WithLogger sets the resolver logger
func WithLogger(log logger.Logger) Option {
	return func(r *Resolver) { r.log = log }
}

// WithObserver registers an outcome observer
func WithObserver(o Observer) Option {
	return func(r *Resolver) { r.observer = o }
}

// WithSerializer shares the gate that keeps force-serialized sources of a
// host from running concurrently. It must hold a single slot.
func WithSerializer(sem *semaphore.Weighted) Option {
	return func(r *Resolver) { r.serial = sem }
}

// WithReplacer applies fn to the parameters of every protocol query
func WithReplacer(fn func(string) string) Option {
	return func(r *Resolver) { r.replacer = chain(r.replacer, fn) }
}

type entry struct {
	table table.Table
	err   error
}

// Resolver resolves sources of one connector on one host. Each source is
// resolved at most once over the resolver lifetime, which is one cycle.
type Resolver struct {
	host     Host
	catalog  Catalog
	clients  Clients
	serial   *semaphore.Weighted
	replacer func(string) string
	log      logger.Logger
	observer Observer

	group singleflight.Group
	mu    sync.RWMutex
	cache map[string]entry
}

// NewResolver creates a resolver for one host, connector and cycle
func NewResolver(host Host, catalog Catalog, clients Clients, opts ...Option) *Resolver {
	r := &Resolver{
		host:    host,
		catalog: catalog,
		clients: clients,
		log:     logger.Nop(),
		cache:   make(map[string]entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.serial == nil {
		r.serial = semaphore.NewWeighted(1)
	}

	return r
}

// Resolve returns the table of src after its compute pipeline. On failure
// the returned table is empty and the error says why.
func (r *Resolver) Resolve(ctx context.Context, src Source) (table.Table, error) {
	if key := src.Base().Key; key != "" {
		if _, ok := r.catalog.Source(key); ok {
			return r.resolveKey(ctx, key, nil)
		}
	}

	return r.resolve(ctx, src, nil)
}

// ResolveKey resolves the catalog source at key
func (r *Resolver) ResolveKey(ctx context.Context, key string) (table.Table, error) {
	return r.resolveKey(ctx, ReferenceKey(key), nil)
}

func (r *Resolver) cached(key string) (entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.cache[key]

	return e, ok
}

func (r *Resolver) resolveKey(ctx context.Context, key string, stack []string) (table.Table, error) {
	errFactory := errors.New()

	for _, k := range stack {
		if k == key {
			return table.Empty(), errFactory.WithData(ErrReferenceCycle, strings.Join(append(stack, key), " -> "))
		}
	}
	if e, ok := r.cached(key); ok {
		return e.table, e.err
	}

	v, _, _ := r.group.Do(key, func() (interface{}, error) {
		if e, ok := r.cached(key); ok {
			return e, nil
		}

		var e entry
		if src, ok := r.catalog.Source(key); ok {
			e.table, e.err = r.resolve(ctx, src, append(stack, key))
		} else {
			e.table, e.err = table.Empty(), errFactory.WithData(ErrUnknownReference, key)
		}

		r.mu.Lock()
		r.cache[key] = e
		r.mu.Unlock()

		return e, nil
	})
	e := v.(entry)

	return e.table, e.err
}

// lookup resolves a referenced source. A referenced source that failed on
// its own yields its empty table; only broken references are errors.
func (r *Resolver) lookup(ctx context.Context, ref string, stack []string) (table.Table, error) {
	key := ReferenceKey(ref)
	if _, ok := r.catalog.Source(key); !ok {
		return table.Empty(), errors.New().WithData(ErrUnknownReference, key)
	}

	t, err := r.resolveKey(ctx, key, stack)
	if err != nil && errors.HasCode(err, ErrReferenceCycle) {
		return table.Empty(), err
	}

	return t, nil
}

func (r *Resolver) resolve(ctx context.Context, src Source, stack []string) (table.Table, error) {
	start := time.Now()
	base := src.Base()
	log := r.log.With("source", sourceName(src))

	raw, err := r.raw(ctx, src, stack)
	if err == nil {
		pipeline := &compute.Pipeline{
			Env: &env{resolver: r, stack: stack},
			Log: log,
			OnRowError: func(kind compute.Kind, _ int, _ error) {
				if r.observer != nil {
					r.observer.RowDropped(kind)
				}
			},
		}
		raw, err = pipeline.Apply(ctx, raw, base.Computes)
	}

	if r.observer != nil {
		r.observer.SourceResolved(src.Kind(), raw.Len(), err, time.Since(start))
	}
	if err != nil {
		if coded, ok := err.(errors.Error); ok {
			log.WarnWithCode(coded).Str("kind", string(src.Kind())).Msg("Source resolution failed")
		} else {
			log.Warn().Err(err).Str("kind", string(src.Kind())).Msg("Source resolution failed")
		}
		return table.Empty(), err
	}

	log.Debug().Int("rows", raw.Len()).Dur("elapsed", time.Since(start)).Msg("Source resolved")

	return raw, nil
}

// raw produces the table of src before its own compute pipeline
func (r *Resolver) raw(ctx context.Context, src Source, stack []string) (table.Table, error) {
	switch s := src.(type) {
	case *Reference:
		if key, ok := ParseReference(s.Value); ok {
			return r.lookup(ctx, key, stack)
		}
		return table.FromText(s.Value), nil
	case *TableUnion:
		tables := make([]table.Table, 0, len(s.Tables))
		for _, ref := range s.Tables {
			t, err := r.lookup(ctx, ref, stack)
			if err != nil {
				return table.Empty(), err
			}
			tables = append(tables, t)
		}
		return table.Union(tables...), nil
	case *TableJoin:
		left, err := r.lookup(ctx, s.LeftTable, stack)
		if err != nil {
			return table.Empty(), err
		}
		right, err := r.lookup(ctx, s.RightTable, stack)
		if err != nil {
			return table.Empty(), err
		}
		return table.Join(left, right, table.JoinSpec{
			LeftKeyColumn:    s.LeftKeyColumn,
			RightKeyColumn:   s.RightKeyColumn,
			KeyType:          table.KeyType(s.KeyType),
			DefaultRightLine: compute.ParseLine(s.DefaultRightLine),
		})
	case Query:
		return r.execute(ctx, s, stack)
	default:
		return table.Empty(), errors.New().WithData(ErrUnknownSource, src.Kind())
	}
}

func (r *Resolver) execute(ctx context.Context, q Query, stack []string) (table.Table, error) {
	errFactory := errors.New()

	base := q.Base()
	if r.replacer != nil {
		q = q.Substitute(r.replacer)
	}

	var rows [][]string
	if fe := base.ExecuteForEachEntryOf; fe != nil {
		var err error
		if rows, err = r.driverRows(ctx, fe, stack); err != nil {
			return table.Empty(), err
		}
	}

	if base.ForceSerialization {
		if err := r.serial.Acquire(ctx, 1); err != nil {
			return table.Empty(), errFactory.Wrap(ErrSerialization, err)
		}
		defer r.serial.Release(1)
	}

	if base.ExecuteForEachEntryOf == nil {
		res, err := r.executeOnce(ctx, q)
		if err != nil {
			return table.Empty(), err
		}
		return toTable(q, res)
	}

	return r.executeForEachEntry(ctx, q, base.ExecuteForEachEntryOf, rows)
}

func (r *Resolver) driverRows(ctx context.Context, fe *ExecuteForEachEntry, stack []string) ([][]string, error) {
	driver, err := r.lookup(ctx, fe.Source, stack)
	if err != nil {
		return nil, err
	}

	return driver.Rows(), nil
}

func (r *Resolver) executeForEachEntry(ctx context.Context, q Query, fe *ExecuteForEachEntry, rows [][]string) (table.Table, error) {
	var tables []table.Table
	var texts []string
	for i, row := range rows {
		if i > 0 && fe.SleepMillis > 0 {
			timer := time.NewTimer(time.Duration(fe.SleepMillis) * time.Millisecond)
			select {
			case <-ctx.Done():
				timer.Stop()
				return table.Empty(), errors.New().Wrap(ErrProtocolFailed, ctx.Err())
			case <-timer.C:
			}
		}

		entryQuery := q.Substitute(EntryReplacer(row))
		res, err := r.executeOnce(ctx, entryQuery)
		if err != nil {
			return table.Empty(), err
		}

		switch fe.ConcatMethod {
		case ConcatJSONArray, ConcatCustom:
			texts = append(texts, res.Raw())
		default:
			t, err := toTable(entryQuery, res)
			if err != nil {
				return table.Empty(), err
			}
			tables = append(tables, t)
		}
	}

	switch fe.ConcatMethod {
	case ConcatJSONArray:
		return table.SingleCell("[" + strings.Join(texts, ",") + "]"), nil
	case ConcatCustom:
		var sb strings.Builder
		for i, text := range texts {
			if i > 0 {
				sb.WriteString(fe.Separator)
			}
			sb.WriteString(fe.ConcatStart)
			sb.WriteString(text)
			sb.WriteString(fe.ConcatEnd)
		}
		return table.SingleCell(sb.String()), nil
	default:
		return table.Union(tables...), nil
	}
}

func (r *Resolver) executeOnce(ctx context.Context, q Query) (Result, error) {
	errFactory := errors.New()

	client, ok := r.clients[q.Protocol()]
	if !ok || client == nil {
		return Result{}, errFactory.WithData(ErrProtocolUnavailable, q.Protocol())
	}
	res, err := client.Execute(ctx, r.host, q)
	if err != nil {
		return Result{}, errFactory.Wrap(ErrProtocolFailed, err)
	}

	return res, nil
}

func sourceName(src Source) string {
	if key := src.Base().Key; key != "" {
		return key
	}
	if name := src.Base().Name; name != "" {
		return name
	}

	return string(src.Kind())
}

// env exposes translation tables and sibling sources to compute operators
type env struct {
	resolver *Resolver
	stack    []string
}

func (e *env) TranslationTable(name string) (*compute.TranslationTable, bool) {
	return e.resolver.catalog.TranslationTable(name)
}

func (e *env) SourceTable(ctx context.Context, ref string) (table.Table, error) {
	return e.resolver.lookup(ctx, ref, e.stack)
}
