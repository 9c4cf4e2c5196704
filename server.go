// SPDX-FileCopyrightText: 2026 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"net"
	"net/http"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func newServer(c ServerConfig, h http.Handler) *http.Server {
	return &http.Server{
		Addr:         c.Address,
		Handler:      h,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
		IdleTimeout:  c.IdleTimeout,
	}
}

// bindServer listens when the application starts and shuts the server down
// gracefully when it stops.
func bindServer(lc fx.Lifecycle, name string, c ServerConfig, h http.Handler, logger *zap.Logger) {
	s := newServer(c, h)
	logger = logger.With(zap.String("server", name), zap.String("address", c.Address))
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			l, err := net.Listen("tcp", s.Addr)
			if err != nil {
				return err
			}
			logger.Info("starting server")
			go func() {
				if err := s.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping server")
			return s.Shutdown(ctx)
		},
	})
}
