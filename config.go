// SPDX-FileCopyrightText: 2026 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"github.com/xmidt-org/tablog/ingest"
	"github.com/xmidt-org/tablog/ingest/kafka"
	"github.com/xmidt-org/tablog/router"
	"github.com/xmidt-org/tablog/store/db"
	"github.com/xmidt-org/touchstone"
	"go.uber.org/fx"
)

// ServerConfig configures one of the HTTP servers.
type ServerConfig struct {
	Address      string `validate:"required"`
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Servers holds the server configurations under the servers key.
type Servers struct {
	Primary ServerConfig
	Metrics ServerConfig
	Health  ServerConfig
}

const (
	defaultPrimaryAddress = ":6600"
	defaultMetricsAddress = ":6601"
	defaultHealthAddress  = ":6602"
	defaultMetricsPath    = "/metrics"
	defaultHealthPath     = "/health"
)

func unmarshalKey(v *viper.Viper, key string, target interface{}) error {
	if err := v.UnmarshalKey(key, target, decodeHooks()); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return nil
}

func provideConfigs() fx.Option {
	return fx.Provide(
		func(v *viper.Viper) (router.Config, error) {
			var c router.Config
			err := unmarshalKey(v, "target", &c)
			return c, err
		},
		func(v *viper.Viper) (db.Configs, error) {
			var c db.Configs
			if err := unmarshalKey(v, "store", &c); err != nil {
				return c, err
			}
			return c, validator.New().Struct(c)
		},
		func(v *viper.Viper) (ingest.Config, error) {
			var c ingest.Config
			if err := unmarshalKey(v, "ingest", &c); err != nil {
				return c, err
			}
			return c, validator.New().Struct(c)
		},
		func(v *viper.Viper) (*kafka.Config, error) {
			if !v.IsSet("kafka") {
				return nil, nil
			}
			c := new(kafka.Config)
			err := unmarshalKey(v, "kafka", c)
			return c, err
		},
		func(v *viper.Viper) (touchstone.Config, error) {
			var c touchstone.Config
			err := unmarshalKey(v, "prometheus", &c)
			return c, err
		},
		func(v *viper.Viper) (Servers, error) {
			s := Servers{
				Primary: ServerConfig{Address: defaultPrimaryAddress},
				Metrics: ServerConfig{Address: defaultMetricsAddress},
				Health:  ServerConfig{Address: defaultHealthAddress},
			}
			if err := unmarshalKey(v, "servers", &s); err != nil {
				return s, err
			}
			return s, validator.New().Struct(s)
		},
	)
}
