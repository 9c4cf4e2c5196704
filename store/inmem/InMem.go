// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package inmem

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/xmidt-org/tablog/model"
	"github.com/xmidt-org/tablog/store"
)

type expireableRecord struct {
	model.Record
	expiration *time.Time
}

// bucket maps record IDs to records.
type bucket map[string]expireableRecord

type InMem struct {
	// data is keyed by destination, then bucket.
	data map[string]map[string]bucket
	lock sync.Mutex
	now  func() time.Time
}

// Option configures an InMem store.
type Option func(*InMem)

// WithClock sets the clock used to stamp and check expirations.
func WithClock(now func() time.Time) Option {
	return func(i *InMem) {
		if now != nil {
			i.now = now
		}
	}
}

func NewInMem(opts ...Option) *InMem {
	i := &InMem{
		data: map[string]map[string]bucket{},
		now:  time.Now,
	}
	for _, o := range opts {
		o(i)
	}
	return i
}

func (i *InMem) GetDestination(name string, setting model.Setting) (store.Destination, error) {
	if name == "" {
		return nil, store.BadRequestErr{Message: "destination name is required"}
	}
	return &destination{mem: i, name: name, setting: setting}, nil
}

type destination struct {
	mem     *InMem
	name    string
	setting model.Setting
}

func (d *destination) Write(ctx context.Context, r model.Record, upsert bool) error {
	return d.BulkWrite(ctx, []model.Record{r}, upsert)
}

func (d *destination) BulkWrite(_ context.Context, records []model.Record, upsert bool) error {
	i := d.mem
	i.lock.Lock()
	defer i.lock.Unlock()

	now := i.now()
	tables := i.data[d.name]
	if !upsert {
		for _, r := range records {
			if b, ok := tables[r.Bucket]; ok {
				if existing, ok := b[r.ID]; ok && !i.hasExpired(existing, now) {
					return store.Sanitize(fmt.Errorf("%w: %s/%s", store.ErrRecordExists, r.Bucket, r.ID))
				}
			}
		}
	}

	if tables == nil {
		tables = map[string]bucket{}
		i.data[d.name] = tables
	}
	expiration := d.setting.Expiry(now)
	for _, r := range records {
		b := tables[r.Bucket]
		if b == nil {
			b = bucket{}
			tables[r.Bucket] = b
		}
		b[r.ID] = expireableRecord{Record: r, expiration: expiration}
	}
	return nil
}

// GetAll returns the unexpired records of the bucket ordered by ID.
// Note: expired records are removed from the internal map.
func (d *destination) GetAll(_ context.Context, bucketKey string) ([]model.Record, error) {
	i := d.mem
	i.lock.Lock()
	defer i.lock.Unlock()

	now := i.now()
	b := i.data[d.name][bucketKey]
	result := make([]model.Record, 0, len(b))
	for id, r := range b {
		if i.hasExpired(r, now) {
			delete(b, id)
			continue
		}
		result = append(result, r.Record)
	}
	if b != nil && len(b) == 0 {
		delete(i.data[d.name], bucketKey)
	}
	sort.Slice(result, func(a, b int) bool {
		return result[a].ID < result[b].ID
	})
	return result, nil
}

// hasExpired returns true if the given record has an expiration at or before now.
func (i *InMem) hasExpired(r expireableRecord, now time.Time) bool {
	return r.expiration != nil && !r.expiration.After(now)
}
