// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"context"
	"net/http"
	"time"

	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/xmidt-org/sallust"
	"github.com/xmidt-org/tablog/router"
	"github.com/xmidt-org/tablog/store"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Handler http.Handler

// Config configures the HTTP ingestion handlers.
type Config struct {
	// MaxBatchSize is the largest number of events accepted in one batch.
	MaxBatchSize int `validate:"gte=0"`
}

type HandlersIn struct {
	fx.In
	Config Config
	Router *router.Router
	Store  store.S
	Logger *zap.Logger
}

type HandlersOut struct {
	fx.Out
	Batch   Handler `name:"batch_handler"`
	Event   Handler `name:"event_handler"`
	Records Handler `name:"records_handler"`
}

// Provide builds the batch, event and records handlers.
func Provide() fx.Option {
	return fx.Provide(
		func(in HandlersIn) HandlersOut {
			return NewHandlers(in.Config, in.Router, in.Store, in.Logger)
		},
	)
}

// NewHandlers builds the handlers writing through w and reading from s.
func NewHandlers(c Config, w Writer, s store.S, logger *zap.Logger) HandlersOut {
	config := newTransportConfig(c)
	if logger == nil {
		logger = zap.NewNop()
	}
	return HandlersOut{
		Batch:   newBatchHandler(w, config, logger),
		Event:   newEventHandler(w, config, logger),
		Records: newRecordsHandler(s, logger),
	}
}

func newTransportConfig(c Config) *transportConfig {
	config := &transportConfig{
		MaxBatchSize: c.MaxBatchSize,
		now:          time.Now,
	}
	if config.MaxBatchSize <= 0 {
		config.MaxBatchSize = defaultMaxBatchSize
	}
	return config
}

func serverOptions(logger *zap.Logger) []kithttp.ServerOption {
	return []kithttp.ServerOption{
		kithttp.ServerBefore(func(ctx context.Context, r *http.Request) context.Context {
			return sallust.With(ctx, logger.With(zap.String("path", r.URL.Path)))
		}),
		kithttp.ServerErrorEncoder(encodeError),
	}
}

func newBatchHandler(w Writer, config *transportConfig, logger *zap.Logger) Handler {
	return kithttp.NewServer(
		newBatchEndpoint(w),
		batchRequestDecoder(config),
		encodeBatchResponse,
		serverOptions(logger)...,
	)
}

func newEventHandler(w Writer, config *transportConfig, logger *zap.Logger) Handler {
	return kithttp.NewServer(
		newEventEndpoint(w),
		eventRequestDecoder(config),
		encodeEventResponse,
		serverOptions(logger)...,
	)
}

func newRecordsHandler(s store.S, logger *zap.Logger) Handler {
	return kithttp.NewServer(
		newRecordsEndpoint(s),
		decodeRecordsRequest,
		encodeRecordsResponse,
		serverOptions(logger)...,
	)
}
