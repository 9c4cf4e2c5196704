/**
 * Copyright 2020 Comcast Cable Communications Management, LLC
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

package metric

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/xmidt-org/tablog/store"
	"github.com/xmidt-org/touchstone"
	"go.uber.org/fx"
)

// Generic Metrics
const (
	PoolInUseConnectionsGauge = "pool_in_use_connections"
	QuerySuccessCounter       = "db_query_success_count"
	QueryFailureCounter       = "db_query_failure_count"
	WrittenRecordsCounter     = "db_written_records_count"
	ReadRecordsCounter        = "db_read_records_count"
)

// DynamoDB metrics
const (
	CapacityUnitConsumedCounter  = "capacity_unit_consumed"
	ReadCapacityConsumedCounter  = "read_capacity_unit_consumed"
	WriteCapacityConsumedCounter = "write_capacity_unit_consumed"
)

// BackendLabel names the storage backend a record count belongs to.
const BackendLabel = "backend"

// Metrics returns the Metrics relevant to this package
func ProvideMetrics() fx.Option {
	return fx.Options(
		touchstone.Gauge(
			prometheus.GaugeOpts{
				Name: PoolInUseConnectionsGauge,
				Help: "The number of connections currently in use",
			},
		),
		touchstone.CounterVec(
			prometheus.CounterOpts{
				Name: QuerySuccessCounter,
				Help: "The total number of successful DB queries",
			},
			store.TypeLabel,
		),
		touchstone.CounterVec(
			prometheus.CounterOpts{
				Name: QueryFailureCounter,
				Help: "The total number of failed DB queries",
			},
			store.TypeLabel,
		),
		touchstone.CounterVec(
			prometheus.CounterOpts{
				Name: WrittenRecordsCounter,
				Help: "The total number of records written",
			},
			BackendLabel,
		),
		touchstone.CounterVec(
			prometheus.CounterOpts{
				Name: ReadRecordsCounter,
				Help: "The total number of records read",
			},
			BackendLabel,
		),
		touchstone.CounterVec(
			prometheus.CounterOpts{
				Name: CapacityUnitConsumedCounter,
				Help: "The number of capacity units consumed by the operation.",
			},
			store.TypeLabel,
		),
		touchstone.CounterVec(
			prometheus.CounterOpts{
				Name: ReadCapacityConsumedCounter,
				Help: "The number of read capacity units consumed by the operation.",
			},
			store.TypeLabel,
		),
		touchstone.CounterVec(
			prometheus.CounterOpts{
				Name: WriteCapacityConsumedCounter,
				Help: "The number of write capacity units consumed by the operation.",
			},
			store.TypeLabel,
		),
	)
}

type Measures struct {
	fx.In
	PoolInUseConnections prometheus.Gauge       `name:"pool_in_use_connections"`
	QuerySuccessCount    *prometheus.CounterVec `name:"db_query_success_count"`
	QueryFailureCount    *prometheus.CounterVec `name:"db_query_failure_count"`
	WrittenRecords       *prometheus.CounterVec `name:"db_written_records_count"`
	ReadRecords          *prometheus.CounterVec `name:"db_read_records_count"`

	// DynamoDB Metrics
	CapacityUnitConsumedCount      *prometheus.CounterVec `name:"capacity_unit_consumed"`
	ReadCapacityUnitConsumedCount  *prometheus.CounterVec `name:"read_capacity_unit_consumed"`
	WriteCapacityUnitConsumedCount *prometheus.CounterVec `name:"write_capacity_unit_consumed"`
}

// NewTestMeasures returns unregistered measures for use in tests.
func NewTestMeasures() Measures {
	counter := func(name, label string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{Name: name}, []string{label})
	}
	return Measures{
		PoolInUseConnections:           prometheus.NewGauge(prometheus.GaugeOpts{Name: PoolInUseConnectionsGauge}),
		QuerySuccessCount:              counter(QuerySuccessCounter, store.TypeLabel),
		QueryFailureCount:              counter(QueryFailureCounter, store.TypeLabel),
		WrittenRecords:                 counter(WrittenRecordsCounter, BackendLabel),
		ReadRecords:                    counter(ReadRecordsCounter, BackendLabel),
		CapacityUnitConsumedCount:      counter(CapacityUnitConsumedCounter, store.TypeLabel),
		ReadCapacityUnitConsumedCount:  counter(ReadCapacityConsumedCounter, store.TypeLabel),
		WriteCapacityUnitConsumedCount: counter(WriteCapacityConsumedCounter, store.TypeLabel),
	}
}

// Query records the outcome of one query of the given type.
func (m Measures) Query(queryType string, err error) {
	c := m.QuerySuccessCount
	if err != nil {
		c = m.QueryFailureCount
	}
	if c != nil {
		c.With(prometheus.Labels{store.TypeLabel: queryType}).Inc()
	}
}

// Records counts records written or read by a backend.
func (m Measures) Records(queryType, backend string, n int) {
	c := m.ReadRecords
	if queryType == store.InsertType {
		c = m.WrittenRecords
	}
	if c != nil && n > 0 {
		c.With(prometheus.Labels{BackendLabel: backend}).Add(float64(n))
	}
}
