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
	"errors"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/xmidt-org/tablog/model"
	"github.com/xmidt-org/tablog/timeid"
	"go.uber.org/zap"
)

// Errors that can be returned by this package. Since some of these errors are returned wrapped, it
// is safest to use errors.Is() to check for them.
var (
	ErrTailerNotStopped        = errors.New("tailer is either running or starting")
	ErrTailerNotRunning        = errors.New("tailer is either stopped or stopping")
	ErrNoListenerProvided      = errors.New("no listener provided")
	ErrNoReaderProvided        = errors.New("no reader provided")
	ErrUndefinedIntervalTicker = errors.New("interval ticker is nil. Can't poll for records")
)

// tailing states
const (
	stopped int32 = iota
	running
	transitioning
)

const (
	defaultPullInterval = time.Second * 5
)

// TailerConfig contains config data to follow a destination.
type TailerConfig struct {
	// Destination is the name of the destination to follow.
	Destination string

	// Listener receives the records not seen on a previous poll.
	Listener Listener

	// PullInterval is how often the bucket is polled.
	// (Optional). Defaults to 5 seconds.
	PullInterval time.Duration

	// Logger to be used by the tailer.
	// (Optional). By default a no op logger will be used.
	Logger *zap.Logger
}

// Tailer follows the current bucket of a destination, handing each new
// record to its listener once. When the bucket key rolls over at midnight
// UTC the tailer moves on to the new bucket.
type Tailer struct {
	observer    *observerConfig
	destination string
	logger      *zap.Logger
	reader      Reader
	now         func() time.Time

	bucket string
	seen   map[string]struct{}
}

type observerConfig struct {
	listener     Listener
	ticker       *time.Ticker
	pullInterval time.Duration
	measures     *Measures
	shutdown     chan struct{}
	state        int32
}

func NewTailer(config TailerConfig, measures *Measures, r Reader) (*Tailer, error) {
	err := validateTailerConfig(&config)
	if err != nil {
		return nil, err
	}
	if measures == nil {
		return nil, ErrNilMeasures
	}
	if r == nil {
		return nil, ErrNoReaderProvided
	}
	return &Tailer{
		observer: &observerConfig{
			listener:     config.Listener,
			ticker:       time.NewTicker(config.PullInterval),
			pullInterval: config.PullInterval,
			measures:     measures,
			shutdown:     make(chan struct{}),
		},
		destination: config.Destination,
		logger:      config.Logger,
		reader:      r,
		now:         time.Now,
		seen:        map[string]struct{}{},
	}, nil
}

// Start begins polling on an interval. If a tailer process is already in
// progress, Start returns ErrTailerNotStopped. If you want to restart the
// current process, call Stop() first.
func (t *Tailer) Start(_ context.Context) error {
	if t.observer.ticker == nil {
		t.logger.Error("Observer ticker is nil")
		return ErrUndefinedIntervalTicker
	}

	if !atomic.CompareAndSwapInt32(&t.observer.state, stopped, transitioning) {
		t.logger.Error("Start called when a tailer was not in stopped state", zap.Error(ErrTailerNotStopped))
		return ErrTailerNotStopped
	}

	t.observer.ticker.Reset(t.observer.pullInterval)
	go func() {
		for {
			select {
			case <-t.observer.shutdown:
				return
			case <-t.observer.ticker.C:
				t.poll(context.Background())
			}
		}
	}()

	atomic.SwapInt32(&t.observer.state, running)
	return nil
}

// Stop requests the current tailer process to stop and waits for its goroutine to complete.
// Calling Stop() when a tailer is not running (or while one is getting stopped) returns an
// error.
func (t *Tailer) Stop(_ context.Context) error {
	if t.observer.ticker == nil {
		return nil
	}

	if !atomic.CompareAndSwapInt32(&t.observer.state, running, transitioning) {
		t.logger.Error("Stop called when a tailer was not in running state", zap.Error(ErrTailerNotRunning))
		return ErrTailerNotRunning
	}

	t.observer.ticker.Stop()
	t.observer.shutdown <- struct{}{}
	atomic.SwapInt32(&t.observer.state, stopped)
	return nil
}

// poll is only called from the tailer goroutine.
func (t *Tailer) poll(ctx context.Context) {
	bucket := timeid.BucketKey(t.now())
	if bucket != t.bucket {
		t.bucket = bucket
		t.seen = map[string]struct{}{}
	}

	outcome := SuccessOutcome
	records, err := t.reader.GetRecords(ctx, t.destination, bucket)
	if err != nil {
		outcome = FailureOutcome
		t.logger.Error("Failed to get records for listener", zap.String("bucket", bucket), zap.Error(err))
	} else if fresh := t.unseen(records); len(fresh) > 0 {
		t.observer.listener.Update(fresh)
	}
	t.observer.measures.Polls.With(prometheus.Labels{
		OutcomeLabel: outcome}).Add(1)
}

func (t *Tailer) unseen(records []model.Record) []model.Record {
	var fresh []model.Record
	for _, r := range records {
		if _, ok := t.seen[r.ID]; ok {
			continue
		}
		t.seen[r.ID] = struct{}{}
		fresh = append(fresh, r)
	}
	return fresh
}

func validateTailerConfig(config *TailerConfig) error {
	if config.Destination == "" {
		return ErrDestinationEmpty
	}
	if config.Listener == nil {
		return ErrNoListenerProvided
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.PullInterval == 0 {
		config.PullInterval = defaultPullInterval
	}
	return nil
}
