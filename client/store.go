/**
 * Copyright 2021 Comcast Cable Communications Management, LLC
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

package client

import (
	"context"

	"github.com/xmidt-org/tablog/model"
)

type PushReader interface {
	Pusher
	Reader
}

type Pusher interface {
	// PushBatch stores events and reports the outcome of each one.
	PushBatch(ctx context.Context, events []model.Event) (BatchResult, error)

	// PushEvent stores a single event.
	PushEvent(ctx context.Context, e model.Event) (model.Key, error)
}

type Listener interface {
	// Update is called with the records of the watched bucket that were not
	// seen on a previous poll.
	Update(records []model.Record)
}

type ListenerFunc func(records []model.Record)

func (l ListenerFunc) Update(records []model.Record) {
	l(records)
}

type Reader interface {
	// GetRecords returns all the records of a bucket of a destination.
	GetRecords(ctx context.Context, destination, bucket string) ([]model.Record, error)
}
