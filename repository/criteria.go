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
	"github.com/uptrace/bun"

	"github.com/quarrydb/quarry/types"
)

// criteriaQueue is the FIFO of pending criteria owned by a repository.
type criteriaQueue[T any] struct {
	items []Criterion[T]
}

func (cq *criteriaQueue[T]) push(cs ...Criterion[T]) {
	cq.items = append(cq.items, cs...)
}

func (cq *criteriaQueue[T]) list() []Criterion[T] {
	out := make([]Criterion[T], len(cq.items))
	copy(out, cq.items)
	return out
}

func (cq *criteriaQueue[T]) reset() {
	cq.items = nil
}

// drainInto applies the queued criteria to q in push order and clears the
// queue unconditionally, so queue state never survives past one drain. When
// skip is set the handle comes back untouched and the queue stays intact.
func (cq *criteriaQueue[T]) drainInto(q *bun.SelectQuery, r *Repository[T], skip bool) *bun.SelectQuery {
	if skip {
		return q
	}
	for _, c := range cq.items {
		q = c.Apply(q, r)
	}
	cq.items = nil
	return q
}

// ByField filters on a single column by equality.
func ByField[T any](field string, value any) Criterion[T] {
	return CriterionFunc[T](func(q *bun.SelectQuery, _ *Repository[T]) *bun.SelectQuery {
		return q.Where("? = ?", bun.Ident(field), value)
	})
}

// ByConditions filters on condition triples ANDed in order. A malformed
// condition is attached to the handle as a deferred error, so the operation
// that drains this criterion fails before its query reaches the database.
func ByConditions[T any](conds ...types.Condition) Criterion[T] {
	return CriterionFunc[T](func(q *bun.SelectQuery, _ *Repository[T]) *bun.SelectQuery {
		normalized, err := types.NormalizeConditions(conds)
		if err != nil {
			return q.Err(err)
		}
		return applyConditions(q, normalized)
	})
}

// OrderedBy orders results by a column.
func OrderedBy[T any](field string, direction types.SortDirection) Criterion[T] {
	return CriterionFunc[T](func(q *bun.SelectQuery, _ *Repository[T]) *bun.SelectQuery {
		return q.OrderExpr("? ?", bun.Ident(field), bun.Safe(direction.String()))
	})
}

// LimitOffset narrows results to a window. Non-positive values leave the
// corresponding clause unset.
func LimitOffset[T any](limit, offset int) Criterion[T] {
	return CriterionFunc[T](func(q *bun.SelectQuery, _ *Repository[T]) *bun.SelectQuery {
		if limit > 0 {
			q = q.Limit(limit)
		}
		if offset > 0 {
			q = q.Offset(offset)
		}
		return q
	})
}

// Related eager-loads the named Bun relations.
func Related[T any](relations ...string) Criterion[T] {
	return CriterionFunc[T](func(q *bun.SelectQuery, _ *Repository[T]) *bun.SelectQuery {
		for _, rel := range relations {
			q = q.Relation(rel)
		}
		return q
	})
}

// applyConditions renders pre-normalized conditions onto a select handle.
func applyConditions(q *bun.SelectQuery, conds []types.Condition) *bun.SelectQuery {
	return q.ApplyQueryBuilder(func(qb bun.QueryBuilder) bun.QueryBuilder {
		return appendConditions(qb, conds)
	})
}

// appendConditions renders pre-normalized conditions onto any query kind
// that carries a WHERE clause. Callers must normalize first; operators are
// trusted verbatim here.
func appendConditions(qb bun.QueryBuilder, conds []types.Condition) bun.QueryBuilder {
	for _, c := range conds {
		switch c.Operator {
		case types.OpIn:
			qb = qb.Where("? IN (?)", bun.Ident(c.Field), bun.In(c.Value))
		case types.OpNotIn:
			qb = qb.Where("? NOT IN (?)", bun.Ident(c.Field), bun.In(c.Value))
		case types.OpIsNull:
			qb = qb.Where("? IS NULL", bun.Ident(c.Field))
		case types.OpIsNotNull:
			qb = qb.Where("? IS NOT NULL", bun.Ident(c.Field))
		default:
			qb = qb.Where("? "+c.Operator+" ?", bun.Ident(c.Field), c.Value)
		}
	}
	return qb
}
