// SPDX-FileCopyrightText: 2026 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package router

import (
	"github.com/xmidt-org/tablog/store"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ProvideIn struct {
	fx.In
	Config   Config
	Store    store.S
	Logger   *zap.Logger
	Measures Measures
}

// Provide builds the Router and its metrics. A Config must be supplied.
func Provide() fx.Option {
	return fx.Options(
		ProvideMetrics(),
		fx.Provide(
			func(in ProvideIn) (*Router, error) {
				return New(in.Config, in.Store,
					WithLogger(in.Logger.Named("router")),
					WithMeasures(in.Measures),
				)
			},
		),
	)
}
