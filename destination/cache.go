// SPDX-FileCopyrightText: 2026 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package destination

import (
	"sync"

	"github.com/xmidt-org/tablog/model"
)

// Cache maps grouping keys to destination settings. A setting is created the
// first time its key is resolved and reused afterwards. The zero value is not
// usable; use New.
type Cache struct {
	base     model.Setting
	lock     sync.RWMutex
	settings map[string]model.Setting
	onCreate func(key string, s model.Setting)
}

// Option configures a Cache.
type Option func(*Cache)

// OnCreate registers a function called, outside of any lock, each time a new
// setting is inserted.
func OnCreate(f func(key string, s model.Setting)) Option {
	return func(c *Cache) {
		c.onCreate = f
	}
}

// New creates a Cache deriving every setting from base.
func New(base model.Setting, opts ...Option) *Cache {
	c := &Cache{
		base:     base,
		settings: map[string]model.Setting{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Default returns the setting used when grouping is disabled.
func (c *Cache) Default() model.Setting {
	return c.base
}

// Resolve returns the setting for key, creating it if necessary. Concurrent
// callers resolving the same missing key all observe the single inserted value.
func (c *Cache) Resolve(key string) model.Setting {
	c.lock.RLock()
	s, ok := c.settings[key]
	c.lock.RUnlock()
	if ok {
		return s
	}

	c.lock.Lock()
	if s, ok = c.settings[key]; ok {
		c.lock.Unlock()
		return s
	}
	s = c.derive(key)
	c.settings[key] = s
	c.lock.Unlock()

	if c.onCreate != nil {
		c.onCreate(key, s)
	}
	return s
}

// Len returns the number of cached settings.
func (c *Cache) Len() int {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return len(c.settings)
}

func (c *Cache) derive(key string) model.Setting {
	return model.Setting{
		Name:        c.base.Name + key,
		Period:      c.base.Period,
		RemoveAfter: c.base.RemoveAfter,
	}
}
