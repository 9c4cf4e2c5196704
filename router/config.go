// SPDX-FileCopyrightText: 2026 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package router

import (
	"github.com/go-playground/validator/v10"
	"github.com/xmidt-org/tablog/model"
	"github.com/xmidt-org/tablog/record"
	"github.com/xmidt-org/tablog/timeid"
)

// Config describes one configured target.
type Config struct {
	// Name is the base destination name. Grouped destinations append their
	// grouping key to it.
	Name string `validate:"required"`

	// SortAscending orders records oldest first inside a bucket. By default the
	// newest record sorts first.
	SortAscending bool

	// SplitOnLoggerName groups records by the logger attribute. Ignored when
	// GroupBy is set.
	SplitOnLoggerName bool

	// GroupBy names the record field (or event attribute) whose value selects
	// the destination. Empty disables grouping.
	GroupBy string

	Period      model.Period
	RemoveAfter int `validate:"gte=0"`

	// MaxConcurrentWrites bounds the group writes in flight for one batch.
	// Zero or less means unbounded.
	MaxConcurrentWrites int

	Properties []record.PropertyConfig `validate:"dive"`
}

// Validate checks the config struct tags.
func (c Config) Validate() error {
	return validator.New().Struct(c)
}

// Setting returns the base destination setting.
func (c Config) Setting() model.Setting {
	return model.Setting{
		Name:        c.Name,
		Period:      c.Period,
		RemoveAfter: c.RemoveAfter,
	}
}

// Direction returns the direction sequence keys are generated in.
func (c Config) Direction() timeid.Direction {
	return timeid.DirectionOf(c.SortAscending)
}

// GroupingKey returns the field records are grouped by, or "" when grouping
// is disabled.
func (c Config) GroupingKey() string {
	if c.GroupBy != "" {
		return c.GroupBy
	}
	if c.SplitOnLoggerName {
		return model.LoggerAttribute
	}
	return ""
}
