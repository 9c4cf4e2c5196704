// SPDX-FileCopyrightText: 2026 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package timeid

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// Direction controls how sequence keys sort relative to the instants they
// were generated from.
type Direction int

const (
	// Descending keys put the most recent instant first.
	Descending Direction = iota

	// Ascending keys put the oldest instant first.
	Ascending
)

const (
	bucketLayout = "20060102"

	// ticks are 100ns intervals since 0001-01-01T00:00:00Z.
	ticksPerSecond = int64(time.Second / 100)
	unixEpochTicks = int64(62135596800) * ticksPerSecond
)

var (
	minTime  = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)
	maxTime  = time.Date(9999, time.December, 31, 23, 59, 59, 999999900, time.UTC)
	maxTicks = ticks(maxTime)

	defaultGenerator = new(Generator)
)

func (d Direction) String() string {
	if d == Ascending {
		return "ascending"
	}
	return "descending"
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Direction) UnmarshalText(text []byte) error {
	v, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// ParseDirection accepts "ascending"/"asc" and "descending"/"desc", ignoring case.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ascending", "asc":
		return Ascending, nil
	case "descending", "desc", "":
		return Descending, nil
	}
	return Descending, fmt.Errorf("unknown sort direction %q", s)
}

// DirectionOf maps the sortAscending configuration switch to a Direction.
func DirectionOf(sortAscending bool) Direction {
	if sortAscending {
		return Ascending
	}
	return Descending
}

// BucketKey returns the coarse key for t: its UTC calendar day.
func BucketKey(t time.Time) string {
	return t.UTC().Format(bucketLayout)
}

// Generator produces sequence keys. Keys from one Generator never collide,
// so a process should share a single Generator across all of its callers.
// The zero value is ready to use.
type Generator struct {
	seq atomic.Uint64
}

// SequenceKey returns a fixed width key for t. Keys sort lexicographically
// in chronological order for Ascending and in reverse order for Descending.
// Keys for the same instant are disambiguated by a process wide counter which
// is complemented for Descending so later keys sort first there as well.
func (g *Generator) SequenceKey(t time.Time, d Direction) string {
	n := g.seq.Add(1)
	tk := ticks(t)
	if d == Descending {
		tk = maxTicks - tk
		n = ^n
	}
	return fmt.Sprintf("%019d-%016x", tk, n)
}

// SequenceKey uses the package level Generator.
func SequenceKey(t time.Time, d Direction) string {
	return defaultGenerator.SequenceKey(t, d)
}

func ticks(t time.Time) int64 {
	t = t.UTC()
	switch {
	case t.Before(minTime):
		t = minTime
	case t.After(maxTime):
		t = maxTime
	}
	return t.Unix()*ticksPerSecond + unixEpochTicks + int64(t.Nanosecond())/100
}
