// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"

	"github.com/xmidt-org/tablog/model"
)

const (
	// TypeLabel is for labeling metrics; if there is a single metric for
	// successful queries, the typeLabel and corresponding type can be used
	// when incrementing the metric.
	TypeLabel  = "type"
	InsertType = "insert"
	ReadType   = "read"
	PingType   = "ping"
)

// S opens destinations on a storage backend.
type S interface {
	// GetDestination returns a handle to the named destination. Backends that
	// expire records use the setting's retention to stamp writes.
	GetDestination(name string, setting model.Setting) (Destination, error)
}

// Destination is a single logical table of records.
type Destination interface {
	// BulkWrite stores all records. With upsert false, a record whose key
	// already exists fails the call with ErrRecordExists.
	BulkWrite(ctx context.Context, records []model.Record, upsert bool) error

	// Write stores one record with the same semantics as BulkWrite.
	Write(ctx context.Context, record model.Record, upsert bool) error

	// GetAll returns every record in bucket ordered by ID.
	GetAll(ctx context.Context, bucket string) ([]model.Record, error)
}
