// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"context"
	"errors"

	"github.com/go-kit/kit/endpoint"
	"github.com/xmidt-org/tablog/model"
	"github.com/xmidt-org/tablog/router"
	"github.com/xmidt-org/tablog/store"
)

// Writer routes events to storage. *router.Router implements it.
type Writer interface {
	WriteBatch(ctx context.Context, entries []router.Entry)
	Write(ctx context.Context, e model.Event) (model.Key, error)
}

func newBatchEndpoint(w Writer) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		batchRequest := request.(*batchRequest)
		entries := make([]router.Entry, len(batchRequest.events))
		for i, e := range batchRequest.events {
			entries[i] = router.Entry{Event: e, Completion: router.NewCompletion()}
		}

		w.WriteBatch(ctx, entries)

		response := &batchResponse{Results: make([]eventResult, len(entries))}
		for i, e := range entries {
			response.Results[i].Index = i
			if err := e.Completion.Wait(ctx); err != nil {
				response.Results[i].Error = clientMessage(sanitizeEventError(err))
				response.Failed++
			}
		}
		return response, nil
	}
}

// sanitizeEventError keeps bad request messages and hides everything else.
func sanitizeEventError(err error) error {
	var bre store.BadRequestErr
	if errors.As(err, &bre) {
		return err
	}
	return store.Sanitize(err)
}

func newEventEndpoint(w Writer) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		eventRequest := request.(*eventRequest)
		key, err := w.Write(ctx, eventRequest.event)
		if err != nil {
			return nil, store.Sanitize(err)
		}
		return &key, nil
	}
}

func newRecordsEndpoint(s store.S) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		recordsRequest := request.(*recordsRequest)
		d, err := s.GetDestination(recordsRequest.destination, model.Setting{Name: recordsRequest.destination})
		if err != nil {
			return nil, err
		}
		records, err := d.GetAll(ctx, recordsRequest.bucket)
		if err != nil {
			return nil, store.Sanitize(err)
		}
		return records, nil
	}
}
