// SPDX-FileCopyrightText: 2026 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/xmidt-org/touchstone"
	"go.uber.org/fx"
)

// Names
const (
	PollCounter   = "tablog_kafka_polls_total"
	RecordCounter = "tablog_kafka_records_total"
)

// Labels
const (
	OutcomeLabel = "outcome"
)

// Label Values
const (
	SuccessOutcome = "success"
	FailureOutcome = "failure"
	PoisonOutcome  = "poison"
)

// ProvideMetrics returns the metrics relevant to this package.
func ProvideMetrics() fx.Option {
	return fx.Options(
		touchstone.CounterVec(
			prometheus.CounterOpts{
				Name: PollCounter,
				Help: "The number of kafka polls, by whether the fetch reported errors.",
			},
			OutcomeLabel,
		),
		touchstone.CounterVec(
			prometheus.CounterOpts{
				Name: RecordCounter,
				Help: "The number of kafka records consumed, by outcome.",
			},
			OutcomeLabel,
		),
	)
}

type Measures struct {
	fx.In
	Polls   *prometheus.CounterVec `name:"tablog_kafka_polls_total"`
	Records *prometheus.CounterVec `name:"tablog_kafka_records_total"`
}

func add(c *prometheus.CounterVec, outcome string, n int) {
	if c == nil || n == 0 {
		return
	}
	c.With(prometheus.Labels{OutcomeLabel: outcome}).Add(float64(n))
}
