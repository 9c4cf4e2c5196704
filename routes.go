// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/justinas/alice"
	"github.com/xmidt-org/httpaux"
	"github.com/xmidt-org/httpaux/recovery"
	"github.com/xmidt-org/tablog/ingest"
	"github.com/xmidt-org/touchstone/touchhttp"

	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type PrimaryRoutesIn struct {
	fx.In
	Servers        Servers
	PrimaryMetrics touchhttp.ServerInstrumenter `name:"servers.primary.metrics"`
	Handlers       PrimaryHandlersIn
	Logger         *zap.Logger
	LC             fx.Lifecycle
}

type PrimaryHandlersIn struct {
	fx.In
	Batch   ingest.Handler `name:"batch_handler"`
	Event   ingest.Handler `name:"event_handler"`
	Records ingest.Handler `name:"records_handler"`
}

// provideServerMetrics builds the request instrumentation of the primary and health servers.
func provideServerMetrics() fx.Option {
	return fx.Provide(
		fx.Annotated{
			Name: "servers.primary.metrics",
			Target: touchhttp.ServerBundle{}.NewInstrumenter(
				touchhttp.ServerLabel, "primary",
			),
		},
		fx.Annotated{
			Name: "servers.health.metrics",
			Target: touchhttp.ServerBundle{}.NewInstrumenter(
				touchhttp.ServerLabel, "health",
			),
		},
	)
}

func newPrimaryHandler(in PrimaryHandlersIn, metrics touchhttp.ServerInstrumenter) http.Handler {
	router := mux.NewRouter()
	router.Handle(fmt.Sprintf("/%s/batches", apiBase), in.Batch).Methods(http.MethodPost)
	router.Handle(fmt.Sprintf("/%s/events", apiBase), in.Event).Methods(http.MethodPost)
	router.Handle(fmt.Sprintf("/%s/records/{destination}/{bucket}", apiBase), in.Records).Methods(http.MethodGet)

	return alice.New(
		metrics.Then,
		alice.Constructor(recovery.Middleware(recovery.WithStatusCode(555))),
		alice.Constructor(otelmux.Middleware("server_primary")),
	).Then(router)
}

func BuildPrimaryRoutes(in PrimaryRoutesIn) {
	bindServer(in.LC, "primary", in.Servers.Primary, newPrimaryHandler(in.Handlers, in.PrimaryMetrics), in.Logger)
}

type MetricsRoutesIn struct {
	fx.In
	Servers Servers
	Handler touchhttp.Handler
	Logger  *zap.Logger
	LC      fx.Lifecycle
}

func BuildMetricsRoutes(in MetricsRoutesIn) {
	router := mux.NewRouter()
	router.Handle(defaultMetricsPath, in.Handler).Methods(http.MethodGet)
	bindServer(in.LC, "metrics", in.Servers.Metrics, router, in.Logger)
}

type HealthRoutesIn struct {
	fx.In
	Servers       Servers
	HealthMetrics touchhttp.ServerInstrumenter `name:"servers.health.metrics"`
	Logger        *zap.Logger
	LC            fx.Lifecycle
}

func newHealthHandler(metrics touchhttp.ServerInstrumenter) http.Handler {
	router := mux.NewRouter()
	router.Handle(defaultHealthPath, httpaux.ConstantHandler{
		StatusCode: http.StatusOK,
	}).Methods(http.MethodGet)
	return metrics.Then(router)
}

func BuildHealthRoutes(in HealthRoutesIn) {
	bindServer(in.LC, "health", in.Servers.Health, newHealthHandler(in.HealthMetrics), in.Logger)
}
