// SPDX-FileCopyrightText: 2026 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xmidt-org/tablog/model"
	"github.com/xmidt-org/tablog/timeid"
)

var testEvent = model.Event{
	Timestamp: time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC),
	Level:     "Warn",
	Logger:    "billing",
	Message:   "card declined",
	Properties: map[string]interface{}{
		"attempt": 3,
		"user":    "bob",
		"nothing": nil,
	},
}

func TestBuild(t *testing.T) {
	assert := assert.New(t)
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "failures"}, []string{PropertyLabel})
	b := NewBuilder(timeid.Ascending, []Property{
		{Name: "Level", Extract: FieldExtractor("level")},
		{Name: "Attempt", Extract: FieldExtractor("attempt")},
		{Name: "Missing", Extract: FieldExtractor("nope")},
		{Name: "Broken", Extract: func(model.Event) (string, error) { return "", errors.New("boom") }},
		{Name: "Panics", Extract: func(model.Event) (string, error) { panic("bad layout") }},
		{Name: "Nil"},
	}, WithFailureCounter(failures))

	r := b.Build("20261019", testEvent)

	assert.Equal("20261019", r.Bucket)
	assert.NotEmpty(r.ID)
	assert.Equal(testEvent.Timestamp, r.Timestamp)
	assert.Equal(map[string]string{"Level": "Warn", "Attempt": "3"}, r.Fields)
	assert.Equal(float64(1), testutil.ToFloat64(failures.WithLabelValues("Missing")))
	assert.Equal(float64(1), testutil.ToFloat64(failures.WithLabelValues("Broken")))
	assert.Equal(float64(1), testutil.ToFloat64(failures.WithLabelValues("Panics")))
	assert.Equal(float64(1), testutil.ToFloat64(failures.WithLabelValues("Nil")))
}

func TestBuildLastWriteWins(t *testing.T) {
	b := NewBuilder(timeid.Descending, []Property{
		{Name: "Who", Extract: FieldExtractor("logger")},
		{Name: "Who", Extract: FieldExtractor("user")},
	})
	r := b.Build("b", testEvent)
	assert.Equal(t, "bob", r.Fields["Who"])
}

func TestBuildUsesEventTime(t *testing.T) {
	assert := assert.New(t)
	g := new(timeid.Generator)
	b := NewBuilder(timeid.Ascending, nil, WithGenerator(g))

	early := testEvent
	late := testEvent
	late.Timestamp = early.Timestamp.Add(time.Millisecond)

	// build the later event first; order must still follow event time
	rl := b.Build("b", late)
	re := b.Build("b", early)
	assert.Less(re.ID, rl.ID)
	assert.Equal(timeid.Ascending, b.Direction())
}

func TestNewProperties(t *testing.T) {
	tcs := []struct {
		Description string
		Configs     []PropertyConfig
		Expected    map[string]string
		ExpectedErr error
	}{
		{
			Description: "Field defaults to name",
			Configs:     []PropertyConfig{{Name: "message"}},
			Expected:    map[string]string{"message": "card declined"},
		},
		{
			Description: "Explicit field",
			Configs:     []PropertyConfig{{Name: "LoggerName", Field: "logger"}},
			Expected:    map[string]string{"LoggerName": "billing"},
		},
		{
			Description: "Expressions",
			Configs: []PropertyConfig{
				{Name: "Line", Expression: `event.level + ": " + event.message`},
				{Name: "User", Expression: `event.properties.user`},
				{Name: "Time", Expression: `event.timestamp`},
				{Name: "Retry", Expression: `event.properties.attempt > 2`},
			},
			Expected: map[string]string{
				"Line":  "Warn: card declined",
				"User":  "bob",
				"Time":  "2026-10-19T08:30:00Z",
				"Retry": "true",
			},
		},
		{
			Description: "Failing expressions are left out",
			Configs: []PropertyConfig{
				{Name: "Missing", Expression: `event.properties.nope`},
				{Name: "Null", Expression: `event.properties.nothing`},
				{Name: "Map", Expression: `event.properties`},
			},
			Expected: map[string]string{},
		},
		{
			Description: "Bad expression",
			Configs:     []PropertyConfig{{Name: "Bad", Expression: `event.level +`}},
			ExpectedErr: ErrInvalidExpression,
		},
	}

	for _, tc := range tcs {
		t.Run(tc.Description, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)
			properties, err := NewProperties(tc.Configs)
			if tc.ExpectedErr != nil {
				assert.ErrorIs(err, tc.ExpectedErr)
				return
			}
			require.NoError(err)
			require.Len(properties, len(tc.Configs))
			r := NewBuilder(timeid.Descending, properties).Build("b", testEvent)
			assert.Equal(tc.Expected, r.Fields)
		})
	}
}

func TestRender(t *testing.T) {
	assert := assert.New(t)
	s, err := Render(time.Date(2026, 10, 19, 8, 30, 0, 5, time.FixedZone("x", 3600)))
	assert.NoError(err)
	assert.Equal("2026-10-19T07:30:00.000000005Z", s)

	s, err = Render(2.5)
	assert.NoError(err)
	assert.Equal("2.5", s)

	_, err = Render(map[string]interface{}{"a": 1})
	assert.Error(err)
}
