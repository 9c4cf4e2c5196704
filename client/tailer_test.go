// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xmidt-org/tablog/model"
)

type mockReader struct {
	mock.Mock
}

func (m *mockReader) GetRecords(_ context.Context, destination, bucket string) ([]model.Record, error) {
	args := m.Called(destination, bucket)
	records, _ := args.Get(0).([]model.Record)
	return records, args.Error(1)
}

func newMeasures() *Measures {
	return &Measures{
		Polls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "testPollsCounter",
				Help: "testPollsCounter",
			},
			[]string{OutcomeLabel},
		)}
}

func records(bucket string, ids ...string) []model.Record {
	rs := make([]model.Record, 0, len(ids))
	for _, id := range ids {
		rs = append(rs, model.Record{Key: model.Key{Bucket: bucket, ID: id}})
	}
	return rs
}

func TestTailerPoll(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	var updates [][]model.Record
	r := new(mockReader)
	measures := newMeasures()
	tailer, err := NewTailer(TailerConfig{
		Destination: "Logs",
		Listener:    ListenerFunc(func(rs []model.Record) { updates = append(updates, rs) }),
	}, measures, r)
	require.NoError(err)

	now := time.Date(2026, 10, 19, 23, 59, 0, 0, time.UTC)
	tailer.now = func() time.Time { return now }

	r.On("GetRecords", "Logs", "20261019").Return(records("20261019", "a", "b"), nil).Once()
	tailer.poll(context.Background())

	r.On("GetRecords", "Logs", "20261019").Return(records("20261019", "a", "b", "c"), nil).Once()
	tailer.poll(context.Background())

	r.On("GetRecords", "Logs", "20261019").Return(records("20261019", "a", "b", "c"), nil).Once()
	tailer.poll(context.Background())

	r.On("GetRecords", "Logs", "20261019").Return(nil, errors.New("unreachable")).Once()
	tailer.poll(context.Background())

	// the bucket rolls over; IDs seen yesterday do not hide today's records
	now = now.Add(2 * time.Minute)
	r.On("GetRecords", "Logs", "20261020").Return(records("20261020", "a"), nil).Once()
	tailer.poll(context.Background())

	r.AssertExpectations(t)
	require.Len(updates, 3)
	assert.Equal(records("20261019", "a", "b"), updates[0])
	assert.Equal(records("20261019", "c"), updates[1])
	assert.Equal(records("20261020", "a"), updates[2])
	assert.Equal(float64(4), testutil.ToFloat64(measures.Polls.WithLabelValues(SuccessOutcome)))
	assert.Equal(float64(1), testutil.ToFloat64(measures.Polls.WithLabelValues(FailureOutcome)))
}

func TestTailerDelivers(t *testing.T) {
	r := new(mockReader)
	r.On("GetRecords", "Logs", mock.Anything).Return(records("b", "a"), nil)

	delivered := make(chan []model.Record, 10)
	tailer, err := NewTailer(TailerConfig{
		Destination:  "Logs",
		Listener:     ListenerFunc(func(rs []model.Record) { delivered <- rs }),
		PullInterval: 10 * time.Millisecond,
	}, newMeasures(), r)
	require.NoError(t, err)

	require.NoError(t, tailer.Start(context.Background()))
	select {
	case rs := <-delivered:
		assert.Len(t, rs, 1)
	case <-time.After(time.Second):
		t.Fatal("expected records to be delivered")
	}
	require.NoError(t, tailer.Stop(context.Background()))
}

func TestTailerStartStopPairsParallel(t *testing.T) {
	r := new(mockReader)
	r.On("GetRecords", "Logs", mock.Anything).Return(nil, nil)
	tailer, err := NewTailer(TailerConfig{
		Destination:  "Logs",
		Listener:     ListenerFunc(func([]model.Record) {}),
		PullInterval: 20 * time.Millisecond,
	}, newMeasures(), r)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if errStart := tailer.Start(context.Background()); errStart != nil {
				assert.Equal(t, ErrTailerNotStopped, errStart)
			}
			time.Sleep(40 * time.Millisecond)
			if errStop := tailer.Stop(context.Background()); errStop != nil {
				assert.Equal(t, ErrTailerNotRunning, errStop)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, stopped, tailer.observer.state)
}

func TestTailerStartStopPairsSerial(t *testing.T) {
	r := new(mockReader)
	r.On("GetRecords", "Logs", mock.Anything).Return(nil, nil)
	tailer, err := NewTailer(TailerConfig{
		Destination: "Logs",
		Listener:    ListenerFunc(func([]model.Record) {}),
	}, newMeasures(), r)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			assert := assert.New(t)
			assert.Nil(tailer.Start(context.Background()))
			assert.Nil(tailer.Stop(context.Background()))
		})
	}
	assert.Equal(t, stopped, tailer.observer.state)
}

func TestNewTailer(t *testing.T) {
	happy := TailerConfig{Destination: "Logs", Listener: ListenerFunc(func([]model.Record) {})}
	tcs := []struct {
		Description string
		Config      TailerConfig
		Measures    *Measures
		Reader      Reader
		ExpectedErr error
	}{
		{
			Description: "No destination",
			Config:      TailerConfig{Listener: happy.Listener},
			ExpectedErr: ErrDestinationEmpty,
		},
		{
			Description: "No listener",
			Config:      TailerConfig{Destination: "Logs"},
			ExpectedErr: ErrNoListenerProvided,
		},
		{
			Description: "No measures",
			Config:      happy,
			ExpectedErr: ErrNilMeasures,
		},
		{
			Description: "No reader",
			Config:      happy,
			Measures:    newMeasures(),
			ExpectedErr: ErrNoReaderProvided,
		},
		{
			Description: "Success",
			Config:      happy,
			Measures:    newMeasures(),
			Reader:      new(mockReader),
		},
	}

	for _, tc := range tcs {
		t.Run(tc.Description, func(t *testing.T) {
			_, err := NewTailer(tc.Config, tc.Measures, tc.Reader)
			assert.True(t, errors.Is(err, tc.ExpectedErr),
				fmt.Errorf("error [%v] doesn't contain error [%v] in its err chain", err, tc.ExpectedErr))
		})
	}
}

func TestTailerNilTicker(t *testing.T) {
	tailer, err := NewTailer(TailerConfig{
		Destination: "Logs",
		Listener:    ListenerFunc(func([]model.Record) {}),
	}, newMeasures(), new(mockReader))
	require.NoError(t, err)
	tailer.observer.ticker = nil
	assert.Equal(t, ErrUndefinedIntervalTicker, tailer.Start(context.Background()))
}
