// SPDX-FileCopyrightText: 2026 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package router

import (
	"context"
	"errors"
	"sync"
)

// ErrIncomplete is returned by Err before the outcome is known.
var ErrIncomplete = errors.New("write has not completed")

// Completion carries the outcome of writing one event. It is fulfilled exactly
// once; later calls to Complete are ignored.
type Completion struct {
	once sync.Once
	done chan struct{}
	err  error
}

// NewCompletion returns an unfulfilled Completion.
func NewCompletion() *Completion {
	return &Completion{done: make(chan struct{})}
}

// Complete records the outcome. It reports whether this call fulfilled the
// completion.
func (c *Completion) Complete(err error) bool {
	fulfilled := false
	c.once.Do(func() {
		c.err = err
		close(c.done)
		fulfilled = true
	})
	return fulfilled
}

// Done is closed once the outcome is known.
func (c *Completion) Done() <-chan struct{} {
	return c.done
}

// Err returns the outcome, or ErrIncomplete if there is none yet.
func (c *Completion) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return ErrIncomplete
	}
}

// Wait blocks until the outcome is known or ctx ends. A known outcome always
// wins over a canceled ctx.
func (c *Completion) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return c.err
	default:
	}
	select {
	case <-c.done:
		return c.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
