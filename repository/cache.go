/*
 * Copyright 2025 quarrydb.
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
 */

package repository

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/quarrydb/quarry/types"
)

// queryCache memoizes read results keyed by the rendered SQL of the query
// that produced them. Only raw rows and counts are cached; presentation
// re-runs on every hit so presenter toggles stay honest. Every mutation
// made through the owning repository flushes the whole cache.
type queryCache[T any] struct {
	store *gocache.Cache
}

func newQueryCache[T any](ttl, cleanup time.Duration) *queryCache[T] {
	return &queryCache[T]{store: gocache.New(ttl, cleanup)}
}

func (c *queryCache[T]) rows(key string) ([]*T, bool) {
	v, ok := c.store.Get("rows:" + key)
	if !ok {
		return nil, false
	}
	rows, ok := v.([]*T)
	return rows, ok
}

func (c *queryCache[T]) setRows(key string, rows []*T) {
	c.store.Set("rows:"+key, rows, gocache.DefaultExpiration)
}

func (c *queryCache[T]) count(key string) (int, bool) {
	v, ok := c.store.Get("count:" + key)
	if !ok {
		return 0, false
	}
	n, ok := v.(int)
	return n, ok
}

func (c *queryCache[T]) setCount(key string, n int) {
	c.store.Set("count:"+key, n, gocache.DefaultExpiration)
}

func (c *queryCache[T]) page(key string) (*types.Pagination[T], bool) {
	v, ok := c.store.Get("page:" + key)
	if !ok {
		return nil, false
	}
	p, ok := v.(*types.Pagination[T])
	if !ok {
		return nil, false
	}
	// hand out a copy so presentation on a hit never leaks into the store
	out := *p
	out.Presented = nil
	return &out, true
}

func (c *queryCache[T]) setPage(key string, p *types.Pagination[T]) {
	stored := *p
	stored.Presented = nil
	c.store.Set("page:"+key, &stored, gocache.DefaultExpiration)
}

func (c *queryCache[T]) flush() {
	c.store.Flush()
}
