// SPDX-FileCopyrightText: 2026 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package router

import (
	"context"
	"errors"
	"fmt"
	"time"

	"emperror.dev/emperror"
	"github.com/xmidt-org/tablog/destination"
	"github.com/xmidt-org/tablog/model"
	"github.com/xmidt-org/tablog/record"
	"github.com/xmidt-org/tablog/store"
	"github.com/xmidt-org/tablog/timeid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var errNilDestination = errors.New("store returned no destination")

// Entry pairs an event with the completion its outcome is delivered to.
type Entry struct {
	Event      model.Event
	Completion *Completion
}

// Router turns batches of events into records and writes them to their
// destinations.
type Router struct {
	store    store.S
	builder  *record.Builder
	cache    *destination.Cache
	groupBy  string
	limit    int
	now      func() time.Time
	logger   *zap.Logger
	measures Measures

	generator *timeid.Generator
}

// Option configures a Router.
type Option func(*Router)

func WithLogger(l *zap.Logger) Option {
	return func(r *Router) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithClock sets the clock bucket keys are computed from.
func WithClock(now func() time.Time) Option {
	return func(r *Router) {
		if now != nil {
			r.now = now
		}
	}
}

func WithMeasures(m Measures) Option {
	return func(r *Router) {
		r.measures = m
	}
}

// WithGenerator shares a sequence key generator between routers.
func WithGenerator(g *timeid.Generator) Option {
	return func(r *Router) {
		if g != nil {
			r.generator = g
		}
	}
}

// New validates cfg and creates a Router writing to s.
func New(cfg Config, s store.S, opts ...Option) (*Router, error) {
	if s == nil {
		return nil, errors.New("router requires a store")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid target config: %w", err)
	}
	properties, err := record.NewProperties(cfg.Properties)
	if err != nil {
		return nil, err
	}

	r := &Router{
		store:     s,
		groupBy:   cfg.GroupingKey(),
		limit:     cfg.MaxConcurrentWrites,
		now:       time.Now,
		logger:    zap.NewNop(),
		generator: new(timeid.Generator),
	}
	for _, o := range opts {
		o(r)
	}

	r.builder = record.NewBuilder(cfg.Direction(), properties,
		record.WithLogger(r.logger),
		record.WithGenerator(r.generator),
		record.WithFailureCounter(r.measures.PropertyFailures),
	)
	r.cache = destination.New(cfg.Setting(), destination.OnCreate(r.destinationCreated))
	return r, nil
}

func (r *Router) destinationCreated(key string, s model.Setting) {
	r.logger.Info("new destination", zap.String("key", key), zap.String("destination", s.Name))
	if r.measures.Destinations != nil {
		r.measures.Destinations.Set(float64(r.cache.Len()))
	}
}

type group struct {
	setting     model.Setting
	records     []model.Record
	completions []*Completion
}

// WriteBatch writes every event and fulfills each entry's completion. Events
// sharing a destination are written together and share that write's outcome.
// WriteBatch returns once every completion has been fulfilled.
func (r *Router) WriteBatch(ctx context.Context, entries []Entry) {
	if len(entries) == 0 {
		return
	}

	groups := r.partition(timeid.BucketKey(r.now()), entries)
	r.logger.Debug("routing batch", zap.Int("count", len(entries)), zap.Int("groups", len(groups)))

	var (
		eg     errgroup.Group
		failed = make([]bool, len(groups))
	)
	if r.limit > 0 {
		eg.SetLimit(r.limit)
	}
	for i, g := range groups {
		eg.Go(func() error {
			err := r.writeGroup(ctx, g)
			if err != nil {
				failed[i] = true
				r.logger.Error("failed to write records",
					zap.String("destination", g.setting.Name),
					zap.Int("count", len(g.records)),
					zap.Error(err),
				)
			}
			for _, c := range g.completions {
				if c != nil {
					c.Complete(err)
				}
			}
			addOutcome(r.measures.GroupWrites, err, 1)
			addOutcome(r.measures.Events, err, len(g.records))
			return nil
		})
	}
	_ = eg.Wait()

	var batchErr error
	for _, f := range failed {
		if f {
			batchErr = errors.New("partial failure")
			break
		}
	}
	addOutcome(r.measures.Batches, batchErr, 1)
}

// Write writes a single event to the default destination and returns its key.
func (r *Router) Write(ctx context.Context, e model.Event) (model.Key, error) {
	rec := r.builder.Build(timeid.BucketKey(r.now()), e)
	err := r.write(r.cache.Default(), func(d store.Destination) error {
		return d.Write(ctx, rec, true)
	})
	addOutcome(r.measures.Events, err, 1)
	return rec.Key, err
}

// partition builds the records and splits them by destination, keeping the
// first-seen order of groups and the input order inside each group.
func (r *Router) partition(bucket string, entries []Entry) []*group {
	if r.groupBy == "" {
		g := &group{
			setting:     r.cache.Default(),
			records:     make([]model.Record, 0, len(entries)),
			completions: make([]*Completion, 0, len(entries)),
		}
		for _, e := range entries {
			g.records = append(g.records, r.builder.Build(bucket, e.Event))
			g.completions = append(g.completions, e.Completion)
		}
		return []*group{g}
	}

	var (
		groups []*group
		index  = map[string]*group{}
	)
	for _, e := range entries {
		rec := r.builder.Build(bucket, e.Event)
		key := r.groupingValue(rec, e.Event)
		g, ok := index[key]
		if !ok {
			g = &group{setting: r.cache.Resolve(key)}
			index[key] = g
			groups = append(groups, g)
		}
		g.records = append(g.records, rec)
		g.completions = append(g.completions, e.Completion)
	}
	return groups
}

func (r *Router) groupingValue(rec model.Record, e model.Event) string {
	if v, ok := rec.Fields[r.groupBy]; ok {
		return v
	}
	if v, ok := e.Attribute(r.groupBy); ok {
		if s, err := record.Render(v); err == nil {
			return s
		}
	}
	return ""
}

func (r *Router) writeGroup(ctx context.Context, g *group) error {
	return r.write(g.setting, func(d store.Destination) error {
		return d.BulkWrite(ctx, g.records, true)
	})
}

func (r *Router) write(s model.Setting, f func(store.Destination) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = emperror.Recover(p)
		}
	}()

	d, err := r.store.GetDestination(s.Name, s)
	if err != nil {
		return err
	}
	if d == nil {
		return errNilDestination
	}
	return f(d)
}
