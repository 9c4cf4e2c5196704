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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/xmidt-org/sallust"
	"github.com/xmidt-org/tablog/model"
	"go.uber.org/zap"
)

var (
	ErrNilMeasures       = errors.New("measures cannot be nil")
	ErrAddressEmpty      = errors.New("tablog address is required")
	ErrEventsEmpty       = errors.New("at least one event is required")
	ErrDestinationEmpty  = errors.New("destination name is required")
	ErrBucketEmpty       = errors.New("bucket key is required")
	ErrBadRequest        = errors.New("tablog rejected the request as invalid")
	ErrRecordExists      = errors.New("tablog already has a record with that key")
	ErrUnexpectedPayload = errors.New("tablog response payload is incomplete")
)

var (
	errNonSuccessResponse = errors.New("tablog responded with a non-success status code")
	errNewRequestFailure  = errors.New("failed creating an HTTP request")
	errDoRequestFailure   = errors.New("http client failed while sending request")
	errReadingBodyFailure = errors.New("failed while reading http response body")
	errJSONUnmarshal      = errors.New("failed unmarshaling JSON response payload")
	errJSONMarshal        = errors.New("failed marshaling JSON request payload")
)

// BasicClientConfig contains config data for the client that will be used to
// make requests to a tablog server.
type BasicClientConfig struct {
	// Address is the tablog URL (i.e. https://example-tablog.io:6600)
	Address string

	// HTTPClient refers to the client that will be used to send requests.
	// (Optional) Defaults to http.DefaultClient.
	HTTPClient *http.Client

	// Logger to be used by the client.
	// (Optional). By default a no op logger will be used.
	Logger *zap.Logger
}

// BasicClient is the client used to make requests to tablog.
type BasicClient struct {
	client    *http.Client
	baseURL   string
	logger    *zap.Logger
	getLogger func(context.Context) *zap.Logger
}

// EventResult is the outcome of one event of a pushed batch.
type EventResult struct {
	Index int    `json:"index"`
	Error string `json:"error,omitempty"`
}

// BatchResult is the per event outcome of a pushed batch. Failed counts the
// results carrying an error.
type BatchResult struct {
	Results []EventResult `json:"results"`
	Failed  int           `json:"failed"`
}

type batchBody struct {
	Events []model.Event `json:"events"`
}

type response struct {
	Body        []byte
	ErrorHeader string
	Code        int
}

const (
	apiPath          = "/api/v1"
	errWrappedFmt    = "%w: %s"
	errStatusCodeFmt = "%w: received status %v"
	errorHeaderKey   = "errorHeader"

	// must match the header the server sets on failed requests
	tablogErrorHeader = "X-Tablog-Error"
)

// NewBasicClient creates a new BasicClient that can be used to
// make requests to tablog.
func NewBasicClient(config BasicClientConfig, getLogger func(context.Context) *zap.Logger) (*BasicClient, error) {
	err := validateBasicConfig(&config)
	if err != nil {
		return nil, err
	}
	if getLogger == nil {
		getLogger = sallust.Get
	}

	return &BasicClient{
		client:    config.HTTPClient,
		logger:    config.Logger,
		baseURL:   config.Address + apiPath,
		getLogger: getLogger,
	}, nil
}

// PushBatch sends events to be stored. A batch where only some events failed
// is not an error; check BatchResult.Failed.
func (c *BasicClient) PushBatch(ctx context.Context, events []model.Event) (BatchResult, error) {
	if len(events) == 0 {
		return BatchResult{}, ErrEventsEmpty
	}
	data, err := json.Marshal(batchBody{Events: events})
	if err != nil {
		return BatchResult{}, fmt.Errorf(errWrappedFmt, errJSONMarshal, err.Error())
	}

	resp, err := c.sendRequest(ctx, http.MethodPost, c.baseURL+"/batches", bytes.NewReader(data))
	if err != nil {
		return BatchResult{}, err
	}

	if resp.Code != http.StatusOK && resp.Code != http.StatusMultiStatus {
		c.loggerFor(ctx).Error("tablog responded with a non-successful status code for a PushBatch request",
			zap.Int("code", resp.Code), zap.String(errorHeaderKey, resp.ErrorHeader))
		return BatchResult{}, fmt.Errorf(errStatusCodeFmt, translateNonSuccessStatusCode(resp.Code), resp.Code)
	}

	var result BatchResult
	if err = json.Unmarshal(resp.Body, &result); err != nil {
		return BatchResult{}, fmt.Errorf("PushBatch: %w: %s", errJSONUnmarshal, err.Error())
	}
	if len(result.Results) != len(events) {
		return result, fmt.Errorf("%w: %d results for %d events", ErrUnexpectedPayload, len(result.Results), len(events))
	}
	return result, nil
}

// PushEvent stores a single event and returns the key it was stored under.
func (c *BasicClient) PushEvent(ctx context.Context, e model.Event) (model.Key, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return model.Key{}, fmt.Errorf(errWrappedFmt, errJSONMarshal, err.Error())
	}

	resp, err := c.sendRequest(ctx, http.MethodPost, c.baseURL+"/events", bytes.NewReader(data))
	if err != nil {
		return model.Key{}, err
	}

	if resp.Code != http.StatusCreated {
		c.loggerFor(ctx).Error("tablog responded with a non-successful status code for a PushEvent request",
			zap.Int("code", resp.Code), zap.String(errorHeaderKey, resp.ErrorHeader))
		return model.Key{}, fmt.Errorf(errStatusCodeFmt, translateNonSuccessStatusCode(resp.Code), resp.Code)
	}

	var key model.Key
	if err = json.Unmarshal(resp.Body, &key); err != nil {
		return model.Key{}, fmt.Errorf("PushEvent: %w: %s", errJSONUnmarshal, err.Error())
	}
	return key, nil
}

// GetRecords fetches the records of one bucket of a destination, in sequence
// key order.
func (c *BasicClient) GetRecords(ctx context.Context, destination, bucket string) ([]model.Record, error) {
	if destination == "" {
		return nil, ErrDestinationEmpty
	}
	if bucket == "" {
		return nil, ErrBucketEmpty
	}

	u := fmt.Sprintf("%s/records/%s/%s", c.baseURL, url.PathEscape(destination), url.PathEscape(bucket))
	resp, err := c.sendRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	if resp.Code != http.StatusOK {
		c.loggerFor(ctx).Error("tablog responded with non-200 response for GetRecords request",
			zap.Int("code", resp.Code), zap.String(errorHeaderKey, resp.ErrorHeader))
		return nil, fmt.Errorf(errStatusCodeFmt, translateNonSuccessStatusCode(resp.Code), resp.Code)
	}

	var records []model.Record
	if err = json.Unmarshal(resp.Body, &records); err != nil {
		return nil, fmt.Errorf("GetRecords: %w: %s", errJSONUnmarshal, err.Error())
	}
	return records, nil
}

func (c *BasicClient) loggerFor(ctx context.Context) *zap.Logger {
	l := c.getLogger(ctx)
	if l == nil {
		l = c.logger
	}
	return l
}

func (c *BasicClient) sendRequest(ctx context.Context, method, target string, body io.Reader) (response, error) {
	r, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return response{}, fmt.Errorf(errWrappedFmt, errNewRequestFailure, err.Error())
	}
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(r)
	if err != nil {
		return response{}, fmt.Errorf(errWrappedFmt, errDoRequestFailure, err.Error())
	}
	defer resp.Body.Close()
	var sqResp = response{
		Code:        resp.StatusCode,
		ErrorHeader: resp.Header.Get(tablogErrorHeader),
	}
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return sqResp, fmt.Errorf(errWrappedFmt, errReadingBodyFailure, err.Error())
	}
	sqResp.Body = bodyBytes
	return sqResp, nil
}

// translateNonSuccessStatusCode returns as specific error
// for known tablog status codes.
func translateNonSuccessStatusCode(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusConflict:
		return ErrRecordExists
	default:
		return errNonSuccessResponse
	}
}

func validateBasicConfig(config *BasicClientConfig) error {
	if config.Address == "" {
		return ErrAddressEmpty
	}

	if config.HTTPClient == nil {
		config.HTTPClient = http.DefaultClient
	}

	if config.Logger == nil {
		config.Logger = sallust.Default()
	}
	return nil
}
