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
	"context"
	"time"

	"github.com/uptrace/bun"

	"github.com/quarrydb/quarry/types"
)

// Criterion is a single query-shaping unit. Apply receives the live select
// handle and the owning repository and returns the (possibly replaced)
// handle. Criteria queued on a repository run in push order exactly once,
// on the next read.
type Criterion[T any] interface {
	Apply(q *bun.SelectQuery, r *Repository[T]) *bun.SelectQuery
}

// CriterionFunc adapts a plain function into a Criterion.
type CriterionFunc[T any] func(q *bun.SelectQuery, r *Repository[T]) *bun.SelectQuery

func (f CriterionFunc[T]) Apply(q *bun.SelectQuery, r *Repository[T]) *bun.SelectQuery {
	return f(q, r)
}

// Presenter transforms fetched entities into an outward-facing shape.
// PresentOne handles single-entity results and PresentMany collections;
// both receive raw entities after column projection.
type Presenter[T any] interface {
	PresentOne(entity *T) any
	PresentMany(entities []*T) any
}

// PresentFunc adapts a single-entity transform into a Presenter.
// Collections are presented element-wise.
type PresentFunc[T any] func(entity *T) any

func (f PresentFunc[T]) PresentOne(entity *T) any {
	if entity == nil {
		return nil
	}
	return f(entity)
}

func (f PresentFunc[T]) PresentMany(entities []*T) any {
	out := make([]any, 0, len(entities))
	for _, entity := range entities {
		out = append(out, f(entity))
	}
	return out
}

// Validator checks attribute maps before a mutation reaches storage. The
// scope selects the create or update rule set; id carries the mutation
// target under the update scope, so uniqueness checks can exclude the row
// itself, and is nil for creates. A failed check returns *ValidationError.
type Validator interface {
	Validate(ctx context.Context, attrs map[string]any, scope types.RuleScope, id any) error
}

// ScopeFunc is a persistent query scope. Unlike criteria it survives across
// operations until ResetScope, and it composes onto every query kind that
// carries a WHERE clause, deletes included.
type ScopeFunc func(bun.QueryBuilder) bun.QueryBuilder

// Events holds optional callbacks fired after successful mutations.
type Events[T any] struct {
	Created func(ctx context.Context, entity *T)
	Updated func(ctx context.Context, entity *T)
	Deleted func(ctx context.Context, count int)
}

// Config tunes a repository instance.
type Config struct {
	// PaginationLimit is the page size used when a page request does not
	// carry one.
	PaginationLimit int
	// CacheTTL and CacheCleanupInterval tune the read cache enabled by
	// WithCache.
	CacheTTL             time.Duration
	CacheCleanupInterval time.Duration
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		PaginationLimit:      15,
		CacheTTL:             5 * time.Minute,
		CacheCleanupInterval: 10 * time.Minute,
	}
}

// Option customizes a repository during construction.
type Option[T any] func(r *Repository[T])

// WithValidator binds a validator consulted before create and update.
func WithValidator[T any](v Validator) Option[T] {
	return func(r *Repository[T]) { r.validator = v }
}

// WithPresenter binds a presenter applied to results unless skipped.
func WithPresenter[T any](p Presenter[T]) Option[T] {
	return func(r *Repository[T]) { r.presenter = p }
}

// WithConfig replaces the default configuration.
func WithConfig[T any](conf Config) Option[T] {
	return func(r *Repository[T]) { r.conf = conf }
}

// WithDefaultOrder sets the ordering applied to reads that carry no
// explicit ORDER BY. Without this option such reads order by the primary
// key ascending.
func WithDefaultOrder[T any](field string, direction types.SortDirection) Option[T] {
	return func(r *Repository[T]) {
		r.orderField = field
		r.orderDirection = direction
	}
}

// WithCache enables the read cache, keyed by the rendered SQL of each query
// and flushed by every mutation made through the repository.
func WithCache[T any]() Option[T] {
	return func(r *Repository[T]) { r.cacheEnabled = true }
}

// WithEvents registers mutation callbacks.
func WithEvents[T any](events Events[T]) Option[T] {
	return func(r *Repository[T]) { r.events = events }
}
