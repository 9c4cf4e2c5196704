// SPDX-FileCopyrightText: 2026 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package destination

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xmidt-org/tablog/model"
)

var base = model.Setting{Name: "Logs", Period: model.Month, RemoveAfter: 3}

func TestResolve(t *testing.T) {
	assert := assert.New(t)
	var created []string
	c := New(base, OnCreate(func(key string, _ model.Setting) {
		created = append(created, key)
	}))

	assert.Equal(base, c.Default())
	assert.Zero(c.Len())

	s := c.Resolve("Api")
	assert.Equal(model.Setting{Name: "LogsApi", Period: model.Month, RemoveAfter: 3}, s)
	assert.Equal(s, c.Resolve("Api"))
	assert.Equal("Logs", c.Resolve("").Name)
	assert.Equal(2, c.Len())
	assert.Equal([]string{"Api", ""}, created)
}

func TestResolveConcurrent(t *testing.T) {
	const (
		resolvers = 32
		keys      = 10
		rounds    = 50
	)
	var (
		creates atomic.Int32
		wg      sync.WaitGroup
		start   = make(chan struct{})
		results = make([][]model.Setting, resolvers)
	)
	c := New(base, OnCreate(func(string, model.Setting) {
		creates.Add(1)
	}))

	for r := 0; r < resolvers; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			<-start
			for i := 0; i < rounds; i++ {
				for k := 0; k < keys; k++ {
					results[r] = append(results[r], c.Resolve(fmt.Sprintf("k%d", (k+r)%keys)))
				}
			}
		}(r)
	}
	close(start)
	wg.Wait()

	require.Equal(t, keys, c.Len())
	assert.Equal(t, int32(keys), creates.Load(), "each key must be inserted exactly once")
	for _, rs := range results {
		for _, s := range rs {
			assert.Equal(t, c.Resolve(s.Name[len(base.Name):]), s)
		}
	}
}
