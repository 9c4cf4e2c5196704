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

package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xmidt-org/tablog/model"
	"github.com/xmidt-org/tablog/store"
)

// GenericSetting is the destination every StoreTest write goes to.
var GenericSetting = model.Setting{Name: "World", Period: model.Day, RemoveAfter: 1}

// GenericRecords are stored out of sequence key order on purpose.
var GenericRecords = []model.Record{
	{
		Key:       model.Key{Bucket: "19670101", ID: "0002"},
		Timestamp: time.Date(1967, 1, 1, 10, 0, 0, 0, time.UTC),
		Fields:    map[string]string{"Singer": "Louis Armstrong", "Song": "What a Wonderful World"},
	},
	{
		Key:       model.Key{Bucket: "19670101", ID: "0001"},
		Timestamp: time.Date(1967, 1, 1, 9, 0, 0, 0, time.UTC),
		Fields:    map[string]string{"Singer": "Louis Armstrong"},
	},
	{
		Key:       model.Key{Bucket: "19670102", ID: "0003"},
		Timestamp: time.Date(1967, 1, 2, 9, 0, 0, 0, time.UTC),
	},
}

// StoreTest checks the behavior every backend shares: buckets read back in
// sequence key order, destinations are isolated, and inserts reject existing
// keys while upserts replace them.
func StoreTest(s store.S, t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	t.Log("Basic Test")
	d, err := s.GetDestination(GenericSetting.Name, GenericSetting)
	require.NoError(err)
	require.NoError(d.BulkWrite(ctx, GenericRecords, true))

	records, err := d.GetAll(ctx, "19670101")
	require.NoError(err)
	require.Len(records, 2)
	assert.Equal("0001", records[0].ID)
	assert.Equal("0002", records[1].ID)
	assert.Equal(GenericRecords[0].Fields, records[1].Fields)
	assert.True(GenericRecords[0].Timestamp.Equal(records[1].Timestamp))

	records, err = d.GetAll(ctx, "19670103")
	require.NoError(err)
	assert.Empty(records)

	t.Log("Isolation Test")
	other, err := s.GetDestination("Mars", model.Setting{Name: "Mars"})
	require.NoError(err)
	records, err = other.GetAll(ctx, "19670101")
	require.NoError(err)
	assert.Empty(records)

	t.Log("Insert Test")
	replacement := GenericRecords[1]
	replacement.Fields = map[string]string{"Singer": "Satchmo"}
	err = d.Write(ctx, replacement, false)
	require.Error(err)
	assert.True(errors.Is(err, store.ErrRecordExists))
	var coder interface{ StatusCode() int }
	if assert.ErrorAs(err, &coder) {
		assert.Equal(409, coder.StatusCode())
	}

	fresh := model.Record{Key: model.Key{Bucket: "19670101", ID: "0004"}, Timestamp: GenericRecords[0].Timestamp}
	require.NoError(d.Write(ctx, fresh, false))

	t.Log("Upsert Test")
	require.NoError(d.Write(ctx, replacement, true))
	records, err = d.GetAll(ctx, "19670101")
	require.NoError(err)
	require.Len(records, 3)
	assert.Equal(replacement.Fields, records[0].Fields)
	assert.Equal("0004", records[2].ID)
}
