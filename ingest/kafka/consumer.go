// SPDX-FileCopyrightText: 2026 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package kafka

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/xmidt-org/tablog/model"
	"github.com/xmidt-org/tablog/router"
	"go.uber.org/zap"
)

const (
	defaultMaxPollRecords = 500
	defaultFetchMaxWait   = time.Second
)

var errEmptyRecord = errors.New("kafka record has no value")

// BatchWriter routes a batch of events. *router.Router implements it.
type BatchWriter interface {
	WriteBatch(ctx context.Context, entries []router.Entry)
}

// Config configures the consumer. Each record value is one JSON encoded event.
type Config struct {
	Brokers            []string `validate:"min=1"`
	Topics             []string `validate:"min=1"`
	GroupID            string   `validate:"required"`
	ClientID           string
	MaxPollRecords     int `validate:"gte=0"`
	FetchMaxWait       time.Duration
	TLS                bool
	InsecureSkipVerify bool
}

func (c *Config) withDefaults() {
	if c.MaxPollRecords <= 0 {
		c.MaxPollRecords = defaultMaxPollRecords
	}
	if c.FetchMaxWait <= 0 {
		c.FetchMaxWait = defaultFetchMaxWait
	}
}

// Consumer feeds records of a consumer group to a BatchWriter. Offsets are
// committed per partition up to the last record that was stored; a failed
// record rewinds its partition so it is fetched again.
type Consumer struct {
	config   Config
	writer   BatchWriter
	logger   *zap.Logger
	measures Measures
	now      func() time.Time

	poll           func(context.Context, int) kgo.Fetches
	markCommit     func(...*kgo.Record)
	commitMarked   func(context.Context) error
	rewind         func(map[string]map[int32]kgo.EpochOffset)
	allowRebalance func()
	close          func()
}

// NewConsumer creates a Consumer and its kafka client. Extra client options
// are appended last.
func NewConsumer(config Config, w BatchWriter, logger *zap.Logger, measures Measures, opts ...kgo.Opt) (*Consumer, error) {
	config.withDefaults()
	if err := validator.New().Struct(config); err != nil {
		return nil, err
	}
	if w == nil {
		return nil, errors.New("kafka consumer requires a batch writer")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	kopts := []kgo.Opt{
		kgo.SeedBrokers(config.Brokers...),
		kgo.ConsumerGroup(config.GroupID),
		kgo.ConsumeTopics(config.Topics...),
		kgo.DisableAutoCommit(),
		kgo.BlockRebalanceOnPoll(),
		kgo.FetchMaxWait(config.FetchMaxWait),
	}
	if config.ClientID != "" {
		kopts = append(kopts, kgo.ClientID(config.ClientID))
	}
	if config.TLS {
		kopts = append(kopts, kgo.DialTLSConfig(&tls.Config{InsecureSkipVerify: config.InsecureSkipVerify}))
	}
	kopts = append(kopts, opts...)

	cl, err := kgo.NewClient(kopts...)
	if err != nil {
		return nil, fmt.Errorf("new kafka client: %w", err)
	}

	c := newConsumer(config, w, logger, measures)
	c.poll = cl.PollRecords
	c.markCommit = cl.MarkCommitRecords
	c.commitMarked = cl.CommitMarkedOffsets
	c.rewind = cl.SetOffsets
	c.allowRebalance = cl.AllowRebalance
	c.close = cl.Close
	return c, nil
}

func newConsumer(config Config, w BatchWriter, logger *zap.Logger, measures Measures) *Consumer {
	return &Consumer{
		config:   config,
		writer:   w,
		logger:   logger,
		measures: measures,
		now:      time.Now,
	}
}

// Run polls until ctx is canceled or the client is closed.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		fetches := c.poll(ctx, c.config.MaxPollRecords)
		if fetches.IsClientClosed() {
			return nil
		}

		outcome := SuccessOutcome
		fetches.EachError(func(topic string, partition int32, err error) {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			outcome = FailureOutcome
			c.logger.Error("fetch failed", zap.String("topic", topic), zap.Int32("partition", partition), zap.Error(err))
		})
		add(c.measures.Polls, outcome, 1)

		if records := fetches.Records(); len(records) > 0 {
			c.handle(ctx, records)
		}
		c.allowRebalance()
	}
}

// Close releases the kafka client.
func (c *Consumer) Close() {
	if c.close != nil {
		c.close()
	}
}

type partition struct {
	topic     string
	partition int32
}

type pending struct {
	record     *kgo.Record
	completion *router.Completion
}

// handle writes one poll worth of records and commits what was stored.
func (c *Consumer) handle(ctx context.Context, records []*kgo.Record) {
	var (
		order   []partition
		byPart  = map[partition][]pending{}
		entries = make([]router.Entry, 0, len(records))
		now     = c.now()
		poison  int
	)

	for _, r := range records {
		p := partition{topic: r.Topic, partition: r.Partition}
		if _, ok := byPart[p]; !ok {
			order = append(order, p)
		}
		e, err := decode(r, now)
		if err != nil {
			poison++
			c.logger.Warn("skipping undecodable record",
				zap.String("topic", r.Topic), zap.Int32("partition", r.Partition), zap.Int64("offset", r.Offset), zap.Error(err))
			byPart[p] = append(byPart[p], pending{record: r})
			continue
		}
		completion := router.NewCompletion()
		entries = append(entries, router.Entry{Event: e, Completion: completion})
		byPart[p] = append(byPart[p], pending{record: r, completion: completion})
	}
	add(c.measures.Records, PoisonOutcome, poison)

	if len(entries) > 0 {
		c.writer.WriteBatch(ctx, entries)
	}

	var (
		marked    []*kgo.Record
		rewinds   = map[string]map[int32]kgo.EpochOffset{}
		failed    int
		succeeded int
	)
	for _, p := range order {
		last, failedAt := c.committable(ctx, byPart[p])
		if last != nil {
			marked = append(marked, last)
		}
		if failedAt != nil {
			if rewinds[p.topic] == nil {
				rewinds[p.topic] = map[int32]kgo.EpochOffset{}
			}
			rewinds[p.topic][p.partition] = kgo.EpochOffset{Epoch: -1, Offset: failedAt.Offset}
		}
		for _, pr := range byPart[p] {
			if pr.completion == nil {
				continue
			}
			if pr.completion.Err() != nil {
				failed++
			} else {
				succeeded++
			}
		}
	}
	add(c.measures.Records, SuccessOutcome, succeeded)
	add(c.measures.Records, FailureOutcome, failed)

	if len(marked) > 0 {
		c.markCommit(marked...)
		// stored records are committed even when shutdown has begun
		if err := c.commitMarked(context.WithoutCancel(ctx)); err != nil {
			c.logger.Error("failed to commit offsets", zap.Error(err))
		}
	}
	if len(rewinds) > 0 {
		c.logger.Warn("rewinding partitions after failed writes", zap.Int("failed", failed))
		c.rewind(rewinds)
	}
}

// committable returns the last record of the leading run of stored or
// undecodable records, and the first record that failed to store.
func (c *Consumer) committable(ctx context.Context, records []pending) (last *kgo.Record, failedAt *kgo.Record) {
	for _, pr := range records {
		if pr.completion != nil {
			if err := pr.completion.Wait(ctx); err != nil {
				return last, pr.record
			}
		}
		last = pr.record
	}
	return last, nil
}

func decode(r *kgo.Record, now time.Time) (model.Event, error) {
	var e model.Event
	if len(r.Value) == 0 {
		return e, errEmptyRecord
	}
	if err := json.Unmarshal(r.Value, &e); err != nil {
		return e, err
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = now
	}
	return e, nil
}
