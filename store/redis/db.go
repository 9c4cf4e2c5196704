// SPDX-FileCopyrightText: 2026 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"emperror.dev/emperror"
	"github.com/redis/go-redis/v9"
	"github.com/xmidt-org/tablog/model"
	"github.com/xmidt-org/tablog/store"
	"github.com/xmidt-org/tablog/store/db/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	Redis = "redis"

	defaultPrefix       = "tablog"
	defaultPingInterval = 5 * time.Second
	defaultDialTimeout  = 5 * time.Second
)

// Config holds the Redis connection settings. Each destination bucket is
// stored as one hash named <Prefix>:<destination>:<bucket>.
type Config struct {
	Address      string `validate:"required"`
	Username     string
	Password     string
	DB           int `validate:"gte=0"`
	Prefix       string
	DialTimeout  time.Duration
	PingInterval time.Duration
}

type Client struct {
	client   *redis.Client
	prefix   string
	logger   *zap.Logger
	measures metric.Measures
	now      func() time.Time
}

// storedRecord is the hash value of a record. The record ID is the hash field
// and the bucket is part of the hash key.
type storedRecord struct {
	Timestamp time.Time         `json:"timestamp"`
	Fields    map[string]string `json:"fields,omitempty"`
}

func NewRedis(config Config, measures metric.Measures, lc fx.Lifecycle, logger *zap.Logger) (store.S, error) {
	validateConfig(&config)
	rc := redis.NewClient(&redis.Options{
		Addr:        config.Address,
		Username:    config.Username,
		Password:    config.Password,
		DB:          config.DB,
		DialTimeout: config.DialTimeout,
	})

	c := newClient(rc, config, measures, logger)
	ctx, cancel := context.WithTimeout(context.Background(), config.DialTimeout)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		rc.Close()
		return nil, emperror.WrapWith(err, "Connecting to redis failed", "address", config.Address)
	}

	stop := pingEvery(config.PingInterval, func() {
		if err := c.Ping(context.Background()); err != nil {
			logger.Error("ping failed", zap.Error(err))
		}
	})
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			stop()
			return rc.Close()
		},
	})
	return c, nil
}

// pingEvery calls ping on every tick until the returned stop function is
// called. stop returns once the pinging goroutine has exited.
func pingEvery(d time.Duration, ping func()) (stop func()) {
	var (
		ticker = time.NewTicker(d)
		quit   = make(chan struct{})
		exited = make(chan struct{})
		once   sync.Once
	)
	go func() {
		defer close(exited)
		for {
			select {
			case <-ticker.C:
				ping()
			case <-quit:
				return
			}
		}
	}()
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(quit)
		})
		<-exited
	}
}

func newClient(rc *redis.Client, config Config, measures metric.Measures, logger *zap.Logger) *Client {
	prefix := config.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Client{
		client:   rc,
		prefix:   prefix,
		logger:   logger,
		measures: measures,
		now:      time.Now,
	}
}

// Ping checks the connection and reports the connections in use.
func (c *Client) Ping(ctx context.Context) error {
	err := c.client.Ping(ctx).Err()
	c.measures.Query(store.PingType, err)
	if stats := c.client.PoolStats(); stats != nil && c.measures.PoolInUseConnections != nil {
		c.measures.PoolInUseConnections.Set(float64(stats.TotalConns - stats.IdleConns))
	}
	return err
}

func (c *Client) GetDestination(name string, setting model.Setting) (store.Destination, error) {
	if name == "" {
		return nil, store.BadRequestErr{Message: "destination name is required"}
	}
	return &destination{client: c, name: name, setting: setting}, nil
}

func (c *Client) key(destination, bucket string) string {
	return fmt.Sprintf("%s:%s:%s", c.prefix, destination, bucket)
}

type destination struct {
	client  *Client
	name    string
	setting model.Setting
}

// hashes groups the encoded records by the hash they belong to, keeping the
// hashes in first seen order.
func (d *destination) hashes(records []model.Record) ([]string, map[string][]interface{}, error) {
	var (
		keys   []string
		values = map[string][]interface{}{}
	)
	for _, r := range records {
		data, err := json.Marshal(storedRecord{Timestamp: r.Timestamp, Fields: r.Fields})
		if err != nil {
			return nil, nil, err
		}
		k := d.client.key(d.name, r.Bucket)
		if _, ok := values[k]; !ok {
			keys = append(keys, k)
		}
		values[k] = append(values[k], r.ID, data)
	}
	return keys, values, nil
}

func (d *destination) BulkWrite(ctx context.Context, records []model.Record, upsert bool) error {
	if len(records) == 0 {
		return nil
	}
	c := d.client
	keys, values, err := d.hashes(records)
	if err != nil {
		return store.Sanitize(err)
	}
	expires := d.setting.Expiry(c.now())

	write := func(p redis.Pipeliner) error {
		for _, k := range keys {
			if upsert {
				p.HSet(ctx, k, values[k]...)
			} else {
				v := values[k]
				for i := 0; i < len(v); i += 2 {
					p.HSetNX(ctx, k, v[i].(string), v[i+1])
				}
			}
			if expires != nil {
				p.ExpireAt(ctx, k, *expires)
			}
		}
		return nil
	}

	if upsert {
		_, err = c.client.TxPipelined(ctx, write)
	} else {
		err = c.client.Watch(ctx, func(tx *redis.Tx) error {
			for _, r := range records {
				exists, err := tx.HExists(ctx, c.key(d.name, r.Bucket), r.ID).Result()
				if err != nil {
					return err
				}
				if exists {
					return fmt.Errorf("%w: %s/%s", store.ErrRecordExists, r.Bucket, r.ID)
				}
			}
			_, err := tx.TxPipelined(ctx, write)
			return err
		}, keys...)
	}

	c.measures.Query(store.InsertType, err)
	if err != nil {
		return store.Sanitize(err)
	}
	c.measures.Records(store.InsertType, Redis, len(records))
	return nil
}

func (d *destination) Write(ctx context.Context, r model.Record, upsert bool) error {
	return d.BulkWrite(ctx, []model.Record{r}, upsert)
}

// GetAll returns the records of the bucket ordered by ID.
func (d *destination) GetAll(ctx context.Context, bucket string) ([]model.Record, error) {
	c := d.client
	hash, err := c.client.HGetAll(ctx, c.key(d.name, bucket)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		c.measures.Query(store.ReadType, err)
		return []model.Record{}, store.Sanitize(err)
	}
	c.measures.Query(store.ReadType, nil)

	ids := make([]string, 0, len(hash))
	for id := range hash {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	records := make([]model.Record, 0, len(ids))
	for _, id := range ids {
		var sr storedRecord
		if err := json.Unmarshal([]byte(hash[id]), &sr); err != nil {
			c.logger.Error("failed to unmarshal record", zap.String("destination", d.name), zap.String("bucket", bucket), zap.String("id", id), zap.Error(err))
			continue
		}
		records = append(records, model.Record{
			Key:       model.Key{Bucket: bucket, ID: id},
			Timestamp: sr.Timestamp,
			Fields:    sr.Fields,
		})
	}
	c.measures.Records(store.ReadType, Redis, len(records))
	return records, nil
}

func validateConfig(config *Config) {
	if config.Prefix == "" {
		config.Prefix = defaultPrefix
	}
	if config.DialTimeout <= 0 {
		config.DialTimeout = defaultDialTimeout
	}
	if config.PingInterval <= 0 {
		config.PingInterval = defaultPingInterval
	}
}
