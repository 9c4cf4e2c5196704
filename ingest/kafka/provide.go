// SPDX-FileCopyrightText: 2026 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package kafka

import (
	"context"

	"github.com/xmidt-org/tablog/router"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ProvideIn struct {
	fx.In
	Config    *Config `optional:"true"`
	Router    *router.Router
	Logger    *zap.Logger
	Measures  Measures
	Lifecycle fx.Lifecycle
}

// Provide starts a consumer when a kafka Config has been supplied.
func Provide() fx.Option {
	return fx.Options(
		ProvideMetrics(),
		fx.Invoke(
			func(in ProvideIn) error {
				if in.Config == nil {
					return nil
				}
				c, err := NewConsumer(*in.Config, in.Router, in.Logger.Named("kafka"), in.Measures)
				if err != nil {
					return err
				}
				bind(c, in.Lifecycle)
				return nil
			},
		),
	)
}

func bind(c *Consumer, lc fx.Lifecycle) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				if err := c.Run(ctx); err != nil {
					c.logger.Error("kafka consumer stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			c.Close()
			return nil
		},
	})
}
