// SPDX-FileCopyrightText: 2026 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"fmt"
	"strings"
)

// Period is the retention unit of a destination.
type Period int

// Supported periods.
const (
	None Period = iota
	Day
	Month
	Year
)

func (p Period) String() string {
	switch p {
	case Day:
		return "day"
	case Month:
		return "month"
	case Year:
		return "year"
	}
	return "none"
}

// MarshalText implements encoding.TextMarshaler.
func (p Period) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Period) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "", "none":
		*p = None
	case "day", "daily":
		*p = Day
	case "month", "monthly":
		*p = Month
	case "year", "yearly":
		*p = Year
	default:
		return fmt.Errorf("unknown period %q", text)
	}
	return nil
}
