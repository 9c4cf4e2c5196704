/**
 * Copyright 2020 Comcast Cable Communications Management, LLC
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

package model

import (
	"strings"
	"time"
)

// Key defines the field mapping to retrieve a record from storage.
type Key struct {
	// Bucket is the coarse partition a record belongs to.
	Bucket string `json:"bucket"`

	// ID orders the record inside its bucket and is unique within it.
	ID string `json:"id"`
}

// Event is a single structured log event as delivered by a logging pipeline.
type Event struct {
	Timestamp  time.Time              `json:"timestamp"`
	Level      string                 `json:"level,omitempty"`
	Logger     string                 `json:"logger,omitempty"`
	Message    string                 `json:"message,omitempty"`
	Exception  string                 `json:"exception,omitempty"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

// Well known event attribute names.
const (
	TimestampAttribute = "timestamp"
	LevelAttribute     = "level"
	LoggerAttribute    = "logger"
	MessageAttribute   = "message"
	ExceptionAttribute = "exception"
	PropertiesVariable = "properties"
)

// Attribute looks up one of the well known attributes, ignoring case, and
// falls back to the event properties.
func (e Event) Attribute(name string) (interface{}, bool) {
	switch strings.ToLower(name) {
	case TimestampAttribute:
		return e.Timestamp, !e.Timestamp.IsZero()
	case LevelAttribute:
		return e.Level, e.Level != ""
	case LoggerAttribute, "loggername":
		return e.Logger, e.Logger != ""
	case MessageAttribute:
		return e.Message, e.Message != ""
	case ExceptionAttribute:
		return e.Exception, e.Exception != ""
	}
	v, ok := e.Properties[name]
	return v, ok
}

// Map exposes the event as a flat map, with properties nested under "properties".
func (e Event) Map() map[string]interface{} {
	props := e.Properties
	if props == nil {
		props = map[string]interface{}{}
	}
	return map[string]interface{}{
		TimestampAttribute: e.Timestamp,
		LevelAttribute:     e.Level,
		LoggerAttribute:    e.Logger,
		MessageAttribute:   e.Message,
		ExceptionAttribute: e.Exception,
		PropertiesVariable: props,
	}
}

// Record is the flat, storable form of an Event.
type Record struct {
	Key

	// Timestamp is the instant the original event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Fields holds the rendered values of the configured properties.
	Fields map[string]string `json:"fields,omitempty"`
}

// Setting is the configuration of a single logical destination.
type Setting struct {
	// Name identifies the destination to the storage backend.
	Name string `json:"name"`

	// Period is the unit RemoveAfter counts in.
	Period Period `json:"period"`

	// RemoveAfter is the number of periods after which records may be expired.
	// Zero or less keeps records forever.
	RemoveAfter int `json:"removeAfter"`
}

// Expiry returns the instant after which a record written at now may be
// dropped by the backend, or nil when the setting never expires records.
func (s Setting) Expiry(now time.Time) *time.Time {
	if s.RemoveAfter <= 0 {
		return nil
	}
	var t time.Time
	switch s.Period {
	case Day:
		t = now.AddDate(0, 0, s.RemoveAfter)
	case Month:
		t = now.AddDate(0, s.RemoveAfter, 0)
	case Year:
		t = now.AddDate(s.RemoveAfter, 0, 0)
	default:
		return nil
	}
	return &t
}
