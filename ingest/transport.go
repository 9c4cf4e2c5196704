// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/gorilla/mux"
	"github.com/xmidt-org/sallust"
	"github.com/xmidt-org/tablog/model"
	"github.com/xmidt-org/tablog/store"
	"go.uber.org/zap"
)

// request URL path keys
const (
	destinationVarKey = "destination"
	bucketVarKey      = "bucket"
)

const (
	destinationVarMissingMsg = "{destination} URL path parameter missing"
	bucketVarMissingMsg      = "{bucket} URL path parameter missing"
)

// Response Headers
const (
	ErrorHeaderKey = "X-Tablog-Error"
)

const defaultMaxBatchSize = 1000

// ErrCasting indicates there was a middleware wiring mistake with the go-kit style
// encoders.
var ErrCasting = errors.New("casting error due to middleware wiring mistake")

type transportConfig struct {
	MaxBatchSize int
	now          func() time.Time
}

type batchRequest struct {
	events []model.Event
}

type batchBody struct {
	Events []model.Event `json:"events"`
}

type eventResult struct {
	Index int    `json:"index"`
	Error string `json:"error,omitempty"`
}

type batchResponse struct {
	Results []eventResult `json:"results"`
	Failed  int           `json:"failed"`
}

type eventRequest struct {
	event model.Event
}

type recordsRequest struct {
	destination string
	bucket      string
}

// stamp gives events without a timestamp the time they were received.
func stamp(events []model.Event, now time.Time) {
	for i := range events {
		if events[i].Timestamp.IsZero() {
			events[i].Timestamp = now
		}
	}
}

func batchRequestDecoder(config *transportConfig) kithttp.DecodeRequestFunc {
	return func(ctx context.Context, r *http.Request) (interface{}, error) {
		var body batchBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			sallust.Get(ctx).Debug("failed to decode batch", zap.Error(err))
			return nil, &store.BadRequestErr{Message: "failed to unmarshal json"}
		}
		if len(body.Events) == 0 {
			return nil, &store.BadRequestErr{Message: "batch must contain at least one event"}
		}
		if len(body.Events) > config.MaxBatchSize {
			return nil, &store.BadRequestErr{Message: "batch exceeds the maximum number of events"}
		}
		stamp(body.Events, config.now())
		return &batchRequest{events: body.Events}, nil
	}
}

func eventRequestDecoder(config *transportConfig) kithttp.DecodeRequestFunc {
	return func(ctx context.Context, r *http.Request) (interface{}, error) {
		var e model.Event
		if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
			sallust.Get(ctx).Debug("failed to decode event", zap.Error(err))
			return nil, &store.BadRequestErr{Message: "failed to unmarshal json"}
		}
		events := []model.Event{e}
		stamp(events, config.now())
		return &eventRequest{event: events[0]}, nil
	}
}

func decodeRecordsRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	vars := mux.Vars(r)
	destination, ok := vars[destinationVarKey]
	if !ok {
		return nil, &store.BadRequestErr{Message: destinationVarMissingMsg}
	}
	bucket, ok := vars[bucketVarKey]
	if !ok {
		return nil, &store.BadRequestErr{Message: bucketVarMissingMsg}
	}
	return &recordsRequest{destination: destination, bucket: bucket}, nil
}

func encodeJSON(rw http.ResponseWriter, code int, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(code)
	_, err = rw.Write(data)
	return err
}

func encodeBatchResponse(ctx context.Context, rw http.ResponseWriter, response interface{}) error {
	r, ok := response.(*batchResponse)
	if !ok {
		return ErrCasting
	}
	code := http.StatusOK
	if r.Failed > 0 {
		code = http.StatusMultiStatus
	}
	return encodeJSON(rw, code, r)
}

func encodeEventResponse(ctx context.Context, rw http.ResponseWriter, response interface{}) error {
	key, ok := response.(*model.Key)
	if !ok {
		return ErrCasting
	}
	return encodeJSON(rw, http.StatusCreated, key)
}

func encodeRecordsResponse(ctx context.Context, rw http.ResponseWriter, response interface{}) error {
	records, ok := response.([]model.Record)
	if !ok {
		return ErrCasting
	}
	return encodeJSON(rw, http.StatusOK, records)
}

// clientMessage hides backend details behind the sanitized error.
func clientMessage(err error) string {
	var s store.SanitizedError
	if errors.As(err, &s) && s.ErrHTTP != nil {
		return s.ErrHTTP.Error()
	}
	return err.Error()
}

func encodeError(ctx context.Context, err error, w http.ResponseWriter) {
	w.Header().Set(ErrorHeaderKey, clientMessage(err))
	if headerer, ok := err.(kithttp.Headerer); ok {
		for k, values := range headerer.Headers() {
			for _, v := range values {
				w.Header().Add(k, v)
			}
		}
	}
	code := http.StatusInternalServerError
	var sc kithttp.StatusCoder
	if errors.As(err, &sc) {
		code = sc.StatusCode()
	}
	w.WriteHeader(code)
}
