// SPDX-FileCopyrightText: 2026 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package router

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/xmidt-org/tablog/record"
	"github.com/xmidt-org/touchstone"
	"go.uber.org/fx"
)

// Names
const (
	BatchCounter           = "tablog_batches_total"
	GroupWriteCounter      = "tablog_group_writes_total"
	EventCounter           = "tablog_events_total"
	PropertyFailureCounter = "tablog_property_failures_total"
	DestinationGauge       = "tablog_destinations"
)

// Labels
const (
	OutcomeLabel = "outcome"
)

// Label Values
const (
	SuccessOutcome = "success"
	FailureOutcome = "failure"
)

// ProvideMetrics returns the metrics relevant to this package.
func ProvideMetrics() fx.Option {
	return fx.Options(
		touchstone.CounterVec(
			prometheus.CounterOpts{
				Name: BatchCounter,
				Help: "The number of batches routed, by whether every event was written.",
			},
			OutcomeLabel,
		),
		touchstone.CounterVec(
			prometheus.CounterOpts{
				Name: GroupWriteCounter,
				Help: "The number of destination writes issued, by outcome.",
			},
			OutcomeLabel,
		),
		touchstone.CounterVec(
			prometheus.CounterOpts{
				Name: EventCounter,
				Help: "The number of events routed, by outcome.",
			},
			OutcomeLabel,
		),
		touchstone.CounterVec(
			prometheus.CounterOpts{
				Name: PropertyFailureCounter,
				Help: "The number of record properties that could not be rendered.",
			},
			record.PropertyLabel,
		),
		touchstone.Gauge(
			prometheus.GaugeOpts{
				Name: DestinationGauge,
				Help: "The number of destinations known to the router.",
			},
		),
	)
}

type Measures struct {
	fx.In
	Batches          *prometheus.CounterVec `name:"tablog_batches_total"`
	GroupWrites      *prometheus.CounterVec `name:"tablog_group_writes_total"`
	Events           *prometheus.CounterVec `name:"tablog_events_total"`
	PropertyFailures *prometheus.CounterVec `name:"tablog_property_failures_total"`
	Destinations     prometheus.Gauge       `name:"tablog_destinations"`
}

func outcomeOf(err error) string {
	if err != nil {
		return FailureOutcome
	}
	return SuccessOutcome
}

func addOutcome(c *prometheus.CounterVec, err error, n int) {
	if c == nil || n == 0 {
		return
	}
	c.With(prometheus.Labels{OutcomeLabel: outcomeOf(err)}).Add(float64(n))
}
