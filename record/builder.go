// SPDX-FileCopyrightText: 2026 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/xmidt-org/tablog/model"
	"github.com/xmidt-org/tablog/timeid"
	"go.uber.org/zap"
)

// PropertyLabel labels extraction failures with the property name.
const PropertyLabel = "property"

// Extractor renders one value out of an event.
type Extractor func(model.Event) (string, error)

// Property is a named extractor. The set of properties a Builder uses is
// fixed at construction.
type Property struct {
	Name    string
	Extract Extractor
}

// Builder turns events into records.
type Builder struct {
	direction  timeid.Direction
	properties []Property
	generator  *timeid.Generator
	logger     *zap.Logger
	failures   *prometheus.CounterVec
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger extraction failures are reported to.
func WithLogger(l *zap.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithGenerator sets the sequence key generator. Builders sharing a store
// should share a generator.
func WithGenerator(g *timeid.Generator) Option {
	return func(b *Builder) {
		if g != nil {
			b.generator = g
		}
	}
}

// WithFailureCounter counts extraction failures, labeled by PropertyLabel.
func WithFailureCounter(c *prometheus.CounterVec) Option {
	return func(b *Builder) {
		b.failures = c
	}
}

// NewBuilder creates a Builder. The properties slice is copied.
func NewBuilder(direction timeid.Direction, properties []Property, opts ...Option) *Builder {
	b := &Builder{
		direction:  direction,
		properties: append([]Property(nil), properties...),
		generator:  new(timeid.Generator),
		logger:     zap.NewNop(),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Direction returns the sort direction of the sequence keys this builder generates.
func (b *Builder) Direction() timeid.Direction {
	return b.direction
}

// Build produces the record for e under the given bucket. The sequence key
// is derived from the event's own timestamp. A property that fails to render
// is left out of the record.
func (b *Builder) Build(bucket string, e model.Event) model.Record {
	r := model.Record{
		Key: model.Key{
			Bucket: bucket,
			ID:     b.generator.SequenceKey(e.Timestamp, b.direction),
		},
		Timestamp: e.Timestamp,
		Fields:    make(map[string]string, len(b.properties)),
	}
	for _, p := range b.properties {
		v, err := b.extract(p, e)
		if err != nil {
			b.logger.Debug("failed to render property", zap.String("property", p.Name), zap.Error(err))
			if b.failures != nil {
				b.failures.With(prometheus.Labels{PropertyLabel: p.Name}).Inc()
			}
			continue
		}
		r.Fields[p.Name] = v
	}
	return r
}

func (b *Builder) extract(p Property, e model.Event) (v string, err error) {
	if p.Extract == nil {
		return "", errNoExtractor
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errExtractorPanic, r)
		}
	}()
	return p.Extract(e)
}
