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

package cassandra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/hailocab/go-hostpool"
	"github.com/xmidt-org/tablog/model"
	"github.com/xmidt-org/tablog/store"
	"go.uber.org/zap"
)

type dbStore interface {
	Push(ctx context.Context, destination string, records []model.Record, ttl int, upsert bool) error
	GetAll(ctx context.Context, destination, bucket string) ([]model.Record, error)
	Close()
	Ping() error
}

var serverClosed = errors.New("server is closed")

const (
	insertStatement = "INSERT INTO records (destination, bucket, id, ts, fields) VALUES (?,?,?,?,?) USING TTL ?"
	createStatement = "INSERT INTO records (destination, bucket, id, ts, fields) VALUES (?,?,?,?,?) IF NOT EXISTS USING TTL ?"
	selectStatement = "SELECT id, ts, fields FROM records WHERE destination = ? AND bucket = ?"
)

type cassandraExecutor struct {
	session *gocql.Session
	logger  *zap.Logger
}

func connect(clusterConfig *gocql.ClusterConfig, logger *zap.Logger) (dbStore, error) {
	clusterConfig.PoolConfig.HostSelectionPolicy = gocql.HostPoolHostPolicy(hostpool.New(nil))
	session, err := clusterConfig.CreateSession()
	if err != nil {
		return nil, err
	}

	return &cassandraExecutor{session: session, logger: logger}, nil
}

func (s *cassandraExecutor) Push(ctx context.Context, destination string, records []model.Record, ttl int, upsert bool) error {
	if !upsert {
		for _, r := range records {
			applied, err := s.session.Query(createStatement, destination, r.Bucket, r.ID, r.Timestamp, r.Fields, ttl).
				WithContext(ctx).
				MapScanCAS(map[string]interface{}{})
			if err != nil {
				return err
			}
			if !applied {
				return fmt.Errorf("%w: %s/%s", store.ErrRecordExists, r.Bucket, r.ID)
			}
		}
		return nil
	}

	batch := s.session.NewBatch(gocql.UnloggedBatch).WithContext(ctx)
	for _, r := range records {
		batch.Query(insertStatement, destination, r.Bucket, r.ID, r.Timestamp, r.Fields, ttl)
	}
	return s.session.ExecuteBatch(batch)
}

func (s *cassandraExecutor) GetAll(ctx context.Context, destination, bucket string) ([]model.Record, error) {
	var (
		result = []model.Record{}
		id     string
		ts     time.Time
		fields map[string]string
	)
	iter := s.session.Query(selectStatement, destination, bucket).WithContext(ctx).Iter()
	for iter.Scan(&id, &ts, &fields) {
		result = append(result, model.Record{
			Key:       model.Key{Bucket: bucket, ID: id},
			Timestamp: ts,
			Fields:    fields,
		})
		fields = nil
	}
	if err := iter.Close(); err != nil {
		s.logger.Error("failed to close iter", zap.String("destination", destination), zap.String("bucket", bucket), zap.Error(err))
		return []model.Record{}, err
	}
	return result, nil
}

func (s *cassandraExecutor) Close() {
	s.session.Close()
}

func (s *cassandraExecutor) Ping() error {
	if s.session.Closed() {
		return serverClosed
	}
	return nil
}
