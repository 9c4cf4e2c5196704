// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xmidt-org/tablog/ingest"
	"github.com/xmidt-org/tablog/model"
	"github.com/xmidt-org/tablog/record"
	"github.com/xmidt-org/tablog/router"
	"github.com/xmidt-org/tablog/store/inmem"
	"go.uber.org/zap"
)

func TestValidateBasicConfig(t *testing.T) {
	tcs := []struct {
		Description string
		Input       BasicClientConfig
		ExpectedErr error
	}{
		{
			Description: "No address",
			ExpectedErr: ErrAddressEmpty,
		},
		{
			Description: "Defaults",
			Input:       BasicClientConfig{Address: "http://tablog.example.io"},
		},
	}

	for _, tc := range tcs {
		t.Run(tc.Description, func(t *testing.T) {
			assert := assert.New(t)
			c := tc.Input
			err := validateBasicConfig(&c)
			assert.ErrorIs(err, tc.ExpectedErr)
			if tc.ExpectedErr == nil {
				assert.Equal(http.DefaultClient, c.HTTPClient)
				assert.NotNil(c.Logger)
			}
		})
	}
}

func TestNonSuccessStatusCodes(t *testing.T) {
	tcs := []struct {
		Description string
		Code        int
		ExpectedErr error
	}{
		{
			Description: "Bad request",
			Code:        http.StatusBadRequest,
			ExpectedErr: ErrBadRequest,
		},
		{
			Description: "Conflict",
			Code:        http.StatusConflict,
			ExpectedErr: ErrRecordExists,
		},
		{
			Description: "Internal error",
			Code:        http.StatusInternalServerError,
			ExpectedErr: errNonSuccessResponse,
		},
	}

	for _, tc := range tcs {
		t.Run(tc.Description, func(t *testing.T) {
			assert := assert.New(t)
			server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
				rw.Header().Set(tablogErrorHeader, "nope")
				rw.WriteHeader(tc.Code)
			}))
			defer server.Close()

			c, err := NewBasicClient(BasicClientConfig{Address: server.URL}, nil)
			require.NoError(t, err)
			ctx := context.Background()

			_, err = c.PushBatch(ctx, []model.Event{{Message: "a"}})
			assert.ErrorIs(err, tc.ExpectedErr)
			_, err = c.PushEvent(ctx, model.Event{Message: "a"})
			assert.ErrorIs(err, tc.ExpectedErr)
			_, err = c.GetRecords(ctx, "Logs", "20261019")
			assert.ErrorIs(err, tc.ExpectedErr)
		})
	}
}

func TestInputValidation(t *testing.T) {
	assert := assert.New(t)
	c, err := NewBasicClient(BasicClientConfig{Address: "http://localhost:1"}, nil)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.PushBatch(ctx, nil)
	assert.ErrorIs(err, ErrEventsEmpty)
	_, err = c.GetRecords(ctx, "", "20261019")
	assert.ErrorIs(err, ErrDestinationEmpty)
	_, err = c.GetRecords(ctx, "Logs", "")
	assert.ErrorIs(err, ErrBucketEmpty)
}

func TestBadPayloads(t *testing.T) {
	assert := assert.New(t)
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/batches":
			rw.Write([]byte(`{"results": [], "failed": 0}`))
		case "/api/v1/events":
			rw.WriteHeader(http.StatusCreated)
			rw.Write([]byte(`{`))
		default:
			rw.Write([]byte(`not json`))
		}
	}))
	defer server.Close()

	c, err := NewBasicClient(BasicClientConfig{Address: server.URL}, nil)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.PushBatch(ctx, []model.Event{{Message: "a"}})
	assert.ErrorIs(err, ErrUnexpectedPayload)
	_, err = c.PushEvent(ctx, model.Event{Message: "a"})
	assert.ErrorIs(err, errJSONUnmarshal)
	_, err = c.GetRecords(ctx, "Logs", "20261019")
	assert.ErrorIs(err, errJSONUnmarshal)
}

func TestDoRequestFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	c, err := NewBasicClient(BasicClientConfig{Address: server.URL}, nil)
	require.NoError(t, err)
	_, err = c.PushEvent(context.Background(), model.Event{Message: "a"})
	assert.True(t, errors.Is(err, errDoRequestFailure))
}

// newServer serves the tablog API backed by an in memory store.
func newServer(t *testing.T, cfg router.Config) *httptest.Server {
	t.Helper()
	s := inmem.NewInMem()
	r, err := router.New(cfg, s,
		router.WithClock(func() time.Time { return time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC) }))
	require.NoError(t, err)

	h := ingest.NewHandlers(ingest.Config{}, r, s, zap.NewNop())
	m := mux.NewRouter()
	m.Handle("/api/v1/batches", h.Batch).Methods(http.MethodPost)
	m.Handle("/api/v1/events", h.Event).Methods(http.MethodPost)
	m.Handle("/api/v1/records/{destination}/{bucket}", h.Records).Methods(http.MethodGet)

	server := httptest.NewServer(m)
	t.Cleanup(server.Close)
	return server
}

func TestRoundTrip(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	server := newServer(t, router.Config{
		Name:          "Logs",
		SortAscending: true,
		GroupBy:       "logger",
		Properties:    []record.PropertyConfig{{Name: "Level"}, {Name: "Message"}},
	})

	c, err := NewBasicClient(BasicClientConfig{Address: server.URL}, nil)
	require.NoError(err)
	ctx := context.Background()
	ts := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)

	result, err := c.PushBatch(ctx, []model.Event{
		{Timestamp: ts, Level: "Info", Logger: "Api", Message: "first"},
		{Timestamp: ts.Add(time.Second), Level: "Warn", Logger: "Api", Message: "second"},
		{Timestamp: ts, Level: "Info", Logger: "Jobs", Message: "job"},
	})
	require.NoError(err)
	assert.Zero(result.Failed)
	assert.Len(result.Results, 3)

	key, err := c.PushEvent(ctx, model.Event{Timestamp: ts.Add(time.Minute), Level: "Error", Message: "single"})
	require.NoError(err)
	assert.Equal("20261019", key.Bucket)

	records, err := c.GetRecords(ctx, "LogsApi", "20261019")
	require.NoError(err)
	require.Len(records, 2)
	assert.Equal("first", records[0].Fields["Message"])
	assert.Equal("second", records[1].Fields["Message"])

	records, err = c.GetRecords(ctx, "LogsJobs", "20261019")
	require.NoError(err)
	require.Len(records, 1)
	assert.Equal("Info", records[0].Fields["Level"])

	records, err = c.GetRecords(ctx, "Logs", "20261019")
	require.NoError(err)
	require.Len(records, 1)
	assert.Equal(key, records[0].Key)
}
