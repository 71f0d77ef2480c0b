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
	"fmt"
	"reflect"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"

	"github.com/quarrydb/quarry/types"
)

// Repository is a criteria-driven repository bound to one Bun model type.
//
// Reads follow a single pipeline: drain queued criteria into the live
// select handle, apply the persistent scope, apply default ordering unless
// an explicit ORDER BY is present, project columns, execute, and present.
// Counting skips ordering and presentation. After every terminal operation
// the live handle is rebuilt, whether the operation succeeded or not.
//
// A Repository serves one logical unit of work at a time. The live handle,
// criteria queue, and skip flags are unguarded instance state, so share an
// instance across goroutines only behind your own synchronization, or give
// each goroutine its own instance over the same bun.IDB.
type Repository[T any] struct {
	db    bun.IDB
	table *schema.Table
	pk    *schema.Field
	conf  Config

	validator Validator
	presenter Presenter[T]
	events    Events[T]

	cacheEnabled bool
	cache        *queryCache[T]

	criteria criteriaQueue[T]
	scope    ScopeFunc

	query *bun.SelectQuery
	rows  *[]*T

	orderField     string
	orderDirection types.SortDirection

	skipCriteria  bool
	skipPresenter bool
	skipCache     bool
}

// New builds a repository over db for the model type T. T must be a struct
// registered with Bun and carrying a primary key; violations surface as a
// *ConstructionError here rather than on first use.
func New[T any](db bun.IDB, opts ...Option[T]) (*Repository[T], error) {
	if db == nil {
		return nil, newConstructionError("", "nil database handle")
	}
	typ := reflect.TypeOf((*T)(nil)).Elem()
	if typ.Kind() != reflect.Struct {
		return nil, newConstructionError(typ.String(), "model type must be a struct")
	}
	table := db.Dialect().Tables().Get(typ)
	if len(table.PKs) == 0 {
		return nil, newConstructionError(table.TypeName, "model has no primary key")
	}

	r := &Repository[T]{
		db:    db,
		table: table,
		pk:    table.PKs[0],
		conf:  DefaultConfig(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.conf.PaginationLimit < 0 {
		return nil, newConstructionError(table.TypeName, "negative pagination limit")
	}
	if r.conf.PaginationLimit == 0 {
		r.conf.PaginationLimit = DefaultConfig().PaginationLimit
	}
	if r.cacheEnabled {
		def := DefaultConfig()
		ttl := r.conf.CacheTTL
		if ttl <= 0 {
			ttl = def.CacheTTL
		}
		cleanup := r.conf.CacheCleanupInterval
		if cleanup <= 0 {
			cleanup = def.CacheCleanupInterval
		}
		r.cache = newQueryCache[T](ttl, cleanup)
	}
	r.resetQuery()
	return r, nil
}

// DB returns the Bun handle the repository executes against.
func (r *Repository[T]) DB() bun.IDB { return r.db }

// Table exposes the Bun schema of the bound model.
func (r *Repository[T]) Table() *schema.Table { return r.table }

// PrimaryKeyName returns the primary-key column of the bound model.
func (r *Repository[T]) PrimaryKeyName() string { return r.pk.Name }

// Query returns the live select handle for inspection or direct Bun use.
// The handle is replaced after every terminal operation.
func (r *Repository[T]) Query() *bun.SelectQuery { return r.query }

// resetQuery rebinds the live handle to a fresh select over an owned rows
// destination. Every terminal operation defers this, so the postcondition
// of any call, successful or not, is a clean builder.
func (r *Repository[T]) resetQuery() {
	rows := make([]*T, 0)
	r.rows = &rows
	r.query = r.db.NewSelect().Model(r.rows)
}

// PushCriteria queues criteria to run, in push order, on the next read.
func (r *Repository[T]) PushCriteria(cs ...Criterion[T]) *Repository[T] {
	r.criteria.push(cs...)
	return r
}

// GetCriteria returns a copy of the pending criteria queue.
func (r *Repository[T]) GetCriteria() []Criterion[T] { return r.criteria.list() }

// ResetCriteria discards all pending criteria.
func (r *Repository[T]) ResetCriteria() *Repository[T] {
	r.criteria.reset()
	return r
}

// SkipCriteria toggles whether reads consume the queue. While set, queued
// criteria stay pending and unapplied.
func (r *Repository[T]) SkipCriteria(skip bool) *Repository[T] {
	r.skipCriteria = skip
	return r
}

// SkipPresenter toggles presentation of results.
func (r *Repository[T]) SkipPresenter(skip bool) *Repository[T] {
	r.skipPresenter = skip
	return r
}

// SkipCache toggles the read cache without discarding its contents.
func (r *Repository[T]) SkipCache(skip bool) *Repository[T] {
	r.skipCache = skip
	return r
}

// Scope installs a persistent scope applied after criteria on every query
// until ResetScope.
func (r *Repository[T]) Scope(fn ScopeFunc) *Repository[T] {
	r.scope = fn
	return r
}

// ResetScope removes the persistent scope.
func (r *Repository[T]) ResetScope() *Repository[T] {
	r.scope = nil
	return r
}

// Take narrows the next read to at most n rows.
func (r *Repository[T]) Take(n int) *Repository[T] {
	r.query = r.query.Limit(n)
	return r
}

// OrderBy orders the next read explicitly. Explicit ordering always wins
// over the configured default.
func (r *Repository[T]) OrderBy(column string, direction types.SortDirection) *Repository[T] {
	r.query = r.query.OrderExpr("? ?", bun.Ident(column), bun.Safe(direction.String()))
	return r
}

// With eager-loads the named Bun relations on the next read.
func (r *Repository[T]) With(relations ...string) *Repository[T] {
	for _, rel := range relations {
		r.query = r.query.Relation(rel)
	}
	return r
}

// Hidden drops columns from the next raw fetch. This is column projection,
// independent of any presenter transform.
func (r *Repository[T]) Hidden(columns ...string) *Repository[T] {
	r.query = r.query.ExcludeColumn(columns...)
	return r
}

// Visible restricts the next raw fetch to the given columns.
func (r *Repository[T]) Visible(columns ...string) *Repository[T] {
	r.query = r.query.Column(columns...)
	return r
}

// All fetches every row matching the pending criteria and scope.
func (r *Repository[T]) All(ctx context.Context, columns ...string) (*types.Result[T], error) {
	defer r.resetQuery()
	q := r.drainCriteria(r.query)
	q = r.applyScope(q)
	q = r.applyOrder(q)
	q = selectColumns(q, columns)
	rows, err := r.fetchRows(ctx, q)
	if err != nil {
		return nil, err
	}
	return r.presentMany(rows), nil
}

// Count counts rows matching the pending criteria and scope. No ordering
// applies and no presenter runs.
func (r *Repository[T]) Count(ctx context.Context) (int, error) {
	defer r.resetQuery()
	q := r.drainCriteria(r.query)
	q = r.applyScope(q)
	return r.countRows(ctx, q)
}

// Paginate fetches one page of rows matching the pending criteria, scope,
// and any filter or ordering the request carries. A request without a page
// size falls back to the configured pagination limit.
func (r *Repository[T]) Paginate(ctx context.Context, req *types.PageRequest, columns ...string) (*types.Pagination[T], error) {
	defer r.resetQuery()
	if req == nil {
		req = types.NewDefaultPageRequest(1, 0)
	}
	q := r.drainCriteria(r.query)
	q = r.applyScope(q)
	if filter := req.GetFilter(); filter != nil {
		q = q.Where(filter.Schema, filter.Args...)
	}
	if orders := req.GetOrders(); len(orders) > 0 {
		q = q.Order(orders...)
	}
	q = r.applyOrder(q)
	q = selectColumns(q, columns)

	size := req.GetPageSizeOr(r.conf.PaginationLimit)
	q = q.Limit(size).Offset(req.GetOffset(size))

	key, cached := r.cacheKey(q)
	if cached {
		if page, ok := r.cache.page(key); ok {
			r.presentPage(page)
			return page, nil
		}
	}

	pagination := types.NewDefaultPagination[T](req.GetPage(), size)
	total, err := q.Count(ctx)
	if err != nil {
		return nil, err
	}
	pagination.Total = total
	if total > 0 {
		if err := q.Scan(ctx); err != nil {
			return nil, err
		}
		pagination.Items = *r.rows
	}
	if cached {
		r.cache.setPage(key, pagination)
	}
	r.presentPage(pagination)
	return pagination, nil
}

// Find fetches one entity by primary key. Absence is an error wrapping
// ErrNotFound.
func (r *Repository[T]) Find(ctx context.Context, id any, columns ...string) (*types.Result[T], error) {
	defer r.resetQuery()
	q := r.drainCriteria(r.query)
	q = r.applyScope(q)
	q = r.applyOrder(q)
	q = selectColumns(q, columns)
	q = q.Where("? = ?", bun.Ident(r.pk.Name), id).Limit(1)
	rows, err := r.fetchRows(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, r.notFound(id)
	}
	return r.presentOne(rows[0]), nil
}

// First fetches at most one row. An empty result is not an error; the
// returned Result carries no items and no presented value.
func (r *Repository[T]) First(ctx context.Context, columns ...string) (*types.Result[T], error) {
	defer r.resetQuery()
	q := r.drainCriteria(r.query)
	q = r.applyScope(q)
	q = r.applyOrder(q)
	q = selectColumns(q, columns)
	q = q.Limit(1)
	rows, err := r.fetchRows(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return &types.Result[T]{}, nil
	}
	return r.presentOne(rows[0]), nil
}

// FindBy fetches rows matching equality on one column.
func (r *Repository[T]) FindBy(ctx context.Context, field string, value any, columns ...string) (*types.Result[T], error) {
	defer r.resetQuery()
	q := r.drainCriteria(r.query)
	q = r.applyScope(q)
	q = r.applyOrder(q)
	q = selectColumns(q, columns)
	q = q.Where("? = ?", bun.Ident(field), value)
	rows, err := r.fetchRows(ctx, q)
	if err != nil {
		return nil, err
	}
	return r.presentMany(rows), nil
}

// CountBy counts rows matching equality on one column.
func (r *Repository[T]) CountBy(ctx context.Context, field string, value any) (int, error) {
	defer r.resetQuery()
	q := r.drainCriteria(r.query)
	q = r.applyScope(q)
	q = q.Where("? = ?", bun.Ident(field), value)
	return r.countRows(ctx, q)
}

// FindWhere fetches rows matching every condition, ANDed in slice order.
// A malformed condition fails the call before any query reaches storage;
// the criteria queue is still drained.
func (r *Repository[T]) FindWhere(ctx context.Context, conds []types.Condition, columns ...string) (*types.Result[T], error) {
	defer r.resetQuery()
	q := r.drainCriteria(r.query)
	q = r.applyScope(q)
	normalized, err := types.NormalizeConditions(conds)
	if err != nil {
		return nil, err
	}
	q = r.applyOrder(q)
	q = selectColumns(q, columns)
	q = applyConditions(q, normalized)
	rows, err := r.fetchRows(ctx, q)
	if err != nil {
		return nil, err
	}
	return r.presentMany(rows), nil
}

// CountWhere counts rows matching every condition.
func (r *Repository[T]) CountWhere(ctx context.Context, conds []types.Condition) (int, error) {
	defer r.resetQuery()
	q := r.drainCriteria(r.query)
	q = r.applyScope(q)
	normalized, err := types.NormalizeConditions(conds)
	if err != nil {
		return 0, err
	}
	q = applyConditions(q, normalized)
	return r.countRows(ctx, q)
}

// GetByCriteria is a one-off escape hatch: it applies a single criterion
// directly, leaving the queue, scope, and default ordering out of the
// picture, and always presents the result even when presentation is
// toggled off.
func (r *Repository[T]) GetByCriteria(ctx context.Context, criterion Criterion[T], columns ...string) (*types.Result[T], error) {
	defer r.resetQuery()
	q := r.query
	if criterion != nil {
		q = criterion.Apply(q, r)
	}
	q = selectColumns(q, columns)
	rows, err := r.fetchRows(ctx, q)
	if err != nil {
		return nil, err
	}
	res := &types.Result[T]{Items: rows}
	if r.presenter != nil {
		res.Presented = r.presenter.PresentMany(rows)
	}
	return res, nil
}

// Create validates attrs under the create scope, fills a fresh entity, and
// inserts it. Validation failure aborts with zero storage side effects.
func (r *Repository[T]) Create(ctx context.Context, attrs map[string]any) (*types.Result[T], error) {
	defer r.resetQuery()
	if r.validator != nil {
		if err := r.validator.Validate(ctx, attrs, types.RuleScopeCreate, nil); err != nil {
			return nil, err
		}
	}
	entity := new(T)
	if err := r.fill(entity, attrs); err != nil {
		return nil, err
	}
	if _, err := r.db.NewInsert().Model(entity).Exec(ctx); err != nil {
		return nil, err
	}
	r.flushCache()
	if r.events.Created != nil {
		r.events.Created(ctx, entity)
	}
	return r.presentOne(entity), nil
}

// FirstOrCreate returns the first row matching all attrs by equality, with
// pending criteria and scope applied to the lookup. On a miss the handle is
// rebuilt and Create runs with the same attrs. The hit path never invokes
// the validator.
func (r *Repository[T]) FirstOrCreate(ctx context.Context, attrs map[string]any) (*types.Result[T], error) {
	defer r.resetQuery()
	q := r.drainCriteria(r.query)
	q = r.applyScope(q)
	normalized, err := types.NormalizeConditions(types.ConditionsFromMap(attrs))
	if err != nil {
		return nil, err
	}
	q = applyConditions(q, normalized).Limit(1)
	rows, err := r.fetchRows(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 {
		return r.presentOne(rows[0]), nil
	}
	r.resetQuery()
	return r.Create(ctx, attrs)
}

// UpdateOrCreate merges values over attrs, then updates the row matching
// attrs or creates one when none exists. The persistent scope applies to
// the lookup; pending criteria do not, and stay queued.
func (r *Repository[T]) UpdateOrCreate(ctx context.Context, attrs, values map[string]any) (*types.Result[T], error) {
	defer r.resetQuery()
	merged := mergeAttrs(attrs, values)
	q := r.applyScope(r.query)
	normalized, err := types.NormalizeConditions(types.ConditionsFromMap(attrs))
	if err != nil {
		return nil, err
	}
	q = applyConditions(q, normalized).Limit(1)
	rows, err := r.fetchRows(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 {
		id := r.primaryKey(rows[0])
		r.resetQuery()
		return r.Update(ctx, merged, id)
	}
	r.resetQuery()
	return r.Create(ctx, merged)
}

// Update validates attrs under the update scope with the target id, so
// uniqueness checks can exclude the row itself, then fetches the current
// row, merges attrs over it, and persists the whole row. Presentation is
// forced off around the internal fetch and restored on every exit path.
func (r *Repository[T]) Update(ctx context.Context, attrs map[string]any, id any) (*types.Result[T], error) {
	defer r.resetQuery()
	if r.validator != nil {
		if err := r.validator.Validate(ctx, attrs, types.RuleScopeUpdate, id); err != nil {
			return nil, err
		}
	}

	prior := r.skipPresenter
	r.skipPresenter = true
	defer func() { r.skipPresenter = prior }()

	// the fetch bypasses the read cache so the merge always starts from
	// the current row
	q := r.applyScope(r.query)
	q = q.Where("? = ?", bun.Ident(r.pk.Name), id).Limit(1)
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	rows := *r.rows
	if len(rows) == 0 {
		return nil, r.notFound(id)
	}
	entity := rows[0]
	if err := r.fill(entity, attrs); err != nil {
		return nil, err
	}
	if _, err := r.db.NewUpdate().Model(entity).WherePK().Exec(ctx); err != nil {
		return nil, err
	}
	r.flushCache()
	if r.events.Updated != nil {
		r.events.Updated(ctx, entity)
	}

	r.skipPresenter = prior
	return r.presentOne(entity), nil
}

// Delete removes entities by primary key and reports how many rows went
// away. Deletion is criteria-blind: no queue, scope, or presenter
// participates.
func (r *Repository[T]) Delete(ctx context.Context, ids ...any) (int, error) {
	defer r.resetQuery()
	if len(ids) == 0 {
		return 0, nil
	}
	q := r.db.NewDelete().Model((*T)(nil))
	if len(ids) == 1 {
		q = q.Where("? = ?", bun.Ident(r.pk.Name), ids[0])
	} else {
		q = q.Where("? IN (?)", bun.Ident(r.pk.Name), bun.In(ids))
	}
	return r.execDelete(ctx, q)
}

// DeleteWhere removes every row matching the conditions, under the
// persistent scope. Pending criteria never apply to deletes. An empty
// condition set is rejected; wiping a table must be spelled out with an
// explicit Bun delete.
func (r *Repository[T]) DeleteWhere(ctx context.Context, conds []types.Condition) (int, error) {
	defer r.resetQuery()
	normalized, err := types.NormalizeConditions(conds)
	if err != nil {
		return 0, err
	}
	if len(normalized) == 0 {
		return 0, fmt.Errorf("%w: empty condition set", types.ErrMalformedCondition)
	}
	q := r.db.NewDelete().Model((*T)(nil))
	if r.scope != nil {
		q = q.ApplyQueryBuilder(r.scope)
	}
	q = q.ApplyQueryBuilder(func(qb bun.QueryBuilder) bun.QueryBuilder {
		return appendConditions(qb, normalized)
	})
	return r.execDelete(ctx, q)
}

func (r *Repository[T]) execDelete(ctx context.Context, q *bun.DeleteQuery) (int, error) {
	res, err := q.Exec(ctx)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	count := int(affected)
	r.flushCache()
	if r.events.Deleted != nil {
		r.events.Deleted(ctx, count)
	}
	return count, nil
}

// UniqueCheck builds a uniqueness probe over this repository's table for
// RulesValidator.Unique. It reports whether any row other than excludeID
// already holds value in field.
func (r *Repository[T]) UniqueCheck(field string) UniqueFunc {
	return func(ctx context.Context, value any, excludeID any) (bool, error) {
		q := r.db.NewSelect().Model((*T)(nil)).Where("? = ?", bun.Ident(field), value)
		if excludeID != nil {
			q = q.Where("? != ?", bun.Ident(r.pk.Name), excludeID)
		}
		return q.Exists(ctx)
	}
}

// WithTx returns a clone bound to tx: fresh handle, empty criteria queue,
// same bindings and flags, shared cache.
func (r *Repository[T]) WithTx(tx bun.Tx) *Repository[T] {
	clone := *r
	clone.db = tx
	clone.criteria = criteriaQueue[T]{}
	clone.resetQuery()
	return &clone
}

// RunInTx executes fn inside a transaction with a tx-bound clone. The
// transaction commits when fn returns nil and rolls back otherwise.
func (r *Repository[T]) RunInTx(ctx context.Context, fn func(ctx context.Context, repo *Repository[T]) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, r.WithTx(tx))
	})
}

func (r *Repository[T]) drainCriteria(q *bun.SelectQuery) *bun.SelectQuery {
	return r.criteria.drainInto(q, r, r.skipCriteria)
}

func (r *Repository[T]) applyScope(q *bun.SelectQuery) *bun.SelectQuery {
	if r.scope == nil {
		return q
	}
	return q.ApplyQueryBuilder(r.scope)
}

// applyOrder applies the default ordering unless the rendered query already
// carries an ORDER BY clause.
func (r *Repository[T]) applyOrder(q *bun.SelectQuery) *bun.SelectQuery {
	if strings.Contains(q.String(), "ORDER BY") {
		return q
	}
	field := r.orderField
	if field == "" {
		field = r.pk.Name
	}
	return q.OrderExpr("? ?", bun.Ident(field), bun.Safe(r.orderDirection.String()))
}

func selectColumns(q *bun.SelectQuery, columns []string) *bun.SelectQuery {
	if len(columns) == 0 || (len(columns) == 1 && columns[0] == "*") {
		return q
	}
	return q.Column(columns...)
}

// cacheKey reports whether caching applies to this call and the key to use.
func (r *Repository[T]) cacheKey(q *bun.SelectQuery) (string, bool) {
	if r.cache == nil || r.skipCache {
		return "", false
	}
	return q.String(), true
}

// fetchRows executes the select, consulting the cache when enabled. Rows
// come back raw; presentation happens afterwards, so cache hits honor the
// presenter flags in force at call time.
func (r *Repository[T]) fetchRows(ctx context.Context, q *bun.SelectQuery) ([]*T, error) {
	key, cached := r.cacheKey(q)
	if cached {
		if rows, ok := r.cache.rows(key); ok {
			return rows, nil
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	rows := *r.rows
	if cached {
		r.cache.setRows(key, rows)
	}
	return rows, nil
}

func (r *Repository[T]) countRows(ctx context.Context, q *bun.SelectQuery) (int, error) {
	key, cached := r.cacheKey(q)
	if cached {
		if n, ok := r.cache.count(key); ok {
			return n, nil
		}
	}
	n, err := q.Count(ctx)
	if err != nil {
		return 0, err
	}
	if cached {
		r.cache.setCount(key, n)
	}
	return n, nil
}

func (r *Repository[T]) flushCache() {
	if r.cache != nil {
		r.cache.flush()
	}
}

func (r *Repository[T]) presentOne(entity *T) *types.Result[T] {
	res := &types.Result[T]{}
	if entity == nil {
		return res
	}
	res.Items = []*T{entity}
	if r.presenter != nil && !r.skipPresenter {
		res.Presented = r.presenter.PresentOne(entity)
	}
	return res
}

func (r *Repository[T]) presentMany(items []*T) *types.Result[T] {
	res := &types.Result[T]{Items: items}
	if r.presenter != nil && !r.skipPresenter {
		res.Presented = r.presenter.PresentMany(items)
	}
	return res
}

func (r *Repository[T]) presentPage(p *types.Pagination[T]) {
	if r.presenter != nil && !r.skipPresenter {
		p.Presented = r.presenter.PresentMany(p.Items)
	}
}

func (r *Repository[T]) notFound(id any) error {
	return fmt.Errorf("%s with %s=%v: %w", r.table.TypeName, r.pk.Name, id, ErrNotFound)
}
