// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package db

import (
	"github.com/xmidt-org/tablog/store"
	"github.com/xmidt-org/tablog/store/cassandra"
	"github.com/xmidt-org/tablog/store/db/metric"
	"github.com/xmidt-org/tablog/store/dynamodb"
	"github.com/xmidt-org/tablog/store/inmem"
	"github.com/xmidt-org/tablog/store/redis"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Configs holds the optional backend configurations. The first one set is used;
// with none set records are kept in memory.
type Configs struct {
	Dynamo   *dynamodb.Config
	Yugabyte *cassandra.CassandraConfig
	Redis    *redis.Config
}

type SetupIn struct {
	fx.In
	Configs  Configs
	Measures metric.Measures
	LC       fx.Lifecycle
	Logger   *zap.Logger
}

func Provide() fx.Option {
	return fx.Options(
		metric.ProvideMetrics(),
		fx.Provide(
			SetupStore,
		),
	)
}

func SetupStore(in SetupIn) (store.S, error) {
	logger := in.Logger.Named("store")
	if in.Configs.Dynamo != nil {
		in.Logger.Info("using dynamodb store implementation")
		return dynamodb.NewDynamoDB(*in.Configs.Dynamo, in.Measures, logger)
	}
	if in.Configs.Yugabyte != nil {
		in.Logger.Info("using yugabyte store implementation")
		return cassandra.NewCassandra(*in.Configs.Yugabyte, in.Measures, in.LC, logger)
	}
	if in.Configs.Redis != nil {
		in.Logger.Info("using redis store implementation")
		return redis.NewRedis(*in.Configs.Redis, in.Measures, in.LC, logger)
	}
	in.Logger.Info("using in memory store implementation")
	return inmem.NewInMem(), nil
}
