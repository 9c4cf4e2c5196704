// SPDX-FileCopyrightText: 2026 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package router

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/xmidt-org/tablog/model"
	"github.com/xmidt-org/tablog/store"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetDestination(name string, s model.Setting) (store.Destination, error) {
	args := m.Called(name, s)
	d, _ := args.Get(0).(store.Destination)
	return d, args.Error(1)
}

type mockDestination struct {
	mock.Mock
}

func (m *mockDestination) BulkWrite(ctx context.Context, records []model.Record, upsert bool) error {
	args := m.Called(records, upsert)
	return args.Error(0)
}

func (m *mockDestination) Write(ctx context.Context, r model.Record, upsert bool) error {
	args := m.Called(r, upsert)
	return args.Error(0)
}

func (m *mockDestination) GetAll(ctx context.Context, bucket string) ([]model.Record, error) {
	args := m.Called(bucket)
	rs, _ := args.Get(0).([]model.Record)
	return rs, args.Error(1)
}

type panicDestination struct {
	store.Destination
}

func (panicDestination) BulkWrite(context.Context, []model.Record, bool) error {
	panic("table is on fire")
}

func (panicDestination) Write(context.Context, model.Record, bool) error {
	panic("table is on fire")
}
