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

package dynamodb

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/mock"
	"github.com/xmidt-org/tablog/model"
)

type mockService struct {
	mock.Mock
}

func (s *mockService) Push(ctx context.Context, destination string, records []model.Record, expires *time.Time, upsert bool) (*types.ConsumedCapacity, error) {
	args := s.Called(destination, records, expires, upsert)
	cc, _ := args.Get(0).(*types.ConsumedCapacity)
	return cc, args.Error(1)
}

func (s *mockService) GetAll(ctx context.Context, destination, bucket string) ([]model.Record, *types.ConsumedCapacity, error) {
	args := s.Called(destination, bucket)
	records, _ := args.Get(0).([]model.Record)
	cc, _ := args.Get(1).(*types.ConsumedCapacity)
	return records, cc, args.Error(2)
}

type mockClient struct {
	mock.Mock
}

func (c *mockClient) PutItem(ctx context.Context, input *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	args := c.Called(input)
	out, _ := args.Get(0).(*dynamodb.PutItemOutput)
	return out, args.Error(1)
}

func (c *mockClient) BatchWriteItem(ctx context.Context, input *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	args := c.Called(input)
	if f, ok := args.Get(0).(func(*dynamodb.BatchWriteItemInput) *dynamodb.BatchWriteItemOutput); ok {
		return f(input), args.Error(1)
	}
	out, _ := args.Get(0).(*dynamodb.BatchWriteItemOutput)
	return out, args.Error(1)
}

func (c *mockClient) Query(ctx context.Context, input *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	args := c.Called(input)
	out, _ := args.Get(0).(*dynamodb.QueryOutput)
	return out, args.Error(1)
}
