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

	"github.com/stretchr/testify/mock"
	"github.com/xmidt-org/tablog/model"
)

type mockDB struct {
	mock.Mock
}

func (s *mockDB) Push(ctx context.Context, destination string, records []model.Record, ttl int, upsert bool) error {
	args := s.Called(destination, records, ttl, upsert)
	return args.Error(0)
}

func (s *mockDB) GetAll(ctx context.Context, destination, bucket string) ([]model.Record, error) {
	args := s.Called(destination, bucket)
	records, _ := args.Get(0).([]model.Record)
	return records, args.Error(1)
}

func (s *mockDB) Close() {
	s.Called()
}

func (s *mockDB) Ping() error {
	args := s.Called()
	return args.Error(0)
}
