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

package types

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// ErrMalformedCondition reports a condition whose shape cannot be rendered
// into SQL, such as an unknown operator or a scalar value used with IN.
// Malformed conditions fail before any query reaches storage.
var ErrMalformedCondition = errors.New("malformed condition")

// Operators accepted by Condition.Normalize.
const (
	OpEq        = "="
	OpNotEq     = "!="
	OpGt        = ">"
	OpGte       = ">="
	OpLt        = "<"
	OpLte       = "<="
	OpLike      = "LIKE"
	OpNotLike   = "NOT LIKE"
	OpIn        = "IN"
	OpNotIn     = "NOT IN"
	OpIsNull    = "IS NULL"
	OpIsNotNull = "IS NOT NULL"
)

// Condition is a single WHERE predicate as a (field, operator, value) triple.
// A zero Operator means equality. Conditions in a slice are ANDed in order.
type Condition struct {
	Field    string
	Operator string
	Value    any
}

// Eq builds an equality condition. A nil value matches NULL.
func Eq(field string, value any) Condition {
	return Condition{Field: field, Operator: OpEq, Value: value}
}

// Cmp builds a condition with an explicit operator.
func Cmp(field, operator string, value any) Condition {
	return Condition{Field: field, Operator: operator, Value: value}
}

// In builds a membership condition over a slice of values.
func In(field string, values ...any) Condition {
	return Condition{Field: field, Operator: OpIn, Value: values}
}

// Normalize canonicalizes the operator and checks the condition shape.
// Unknown operators, non-slice IN/NOT IN values, and valued null checks all
// fail with ErrMalformedCondition. Equality against nil is rewritten into a
// null check, matching the usual map-driven lookup semantics.
func (c Condition) Normalize() (Condition, error) {
	if strings.TrimSpace(c.Field) == "" {
		return c, fmt.Errorf("%w: empty field", ErrMalformedCondition)
	}
	op := strings.ToUpper(strings.TrimSpace(c.Operator))
	switch op {
	case "":
		op = OpEq
	case "<>":
		op = OpNotEq
	case OpEq, OpNotEq, OpGt, OpGte, OpLt, OpLte, OpLike, OpNotLike:
	case OpIn, OpNotIn:
		if !isSliceValue(c.Value) {
			return c, fmt.Errorf("%w: %s %s requires a slice value, got %T",
				ErrMalformedCondition, c.Field, op, c.Value)
		}
	case OpIsNull, OpIsNotNull:
		if c.Value != nil {
			return c, fmt.Errorf("%w: %s %s does not take a value", ErrMalformedCondition, c.Field, op)
		}
	default:
		return c, fmt.Errorf("%w: unsupported operator %q on field %s", ErrMalformedCondition, c.Operator, c.Field)
	}
	out := c
	out.Operator = op
	if out.Value == nil {
		switch op {
		case OpEq:
			out.Operator = OpIsNull
		case OpNotEq:
			out.Operator = OpIsNotNull
		}
	}
	return out, nil
}

// NormalizeConditions normalizes every condition in order, failing on the
// first malformed entry.
func NormalizeConditions(conds []Condition) ([]Condition, error) {
	out := make([]Condition, len(conds))
	for i, c := range conds {
		nc, err := c.Normalize()
		if err != nil {
			return nil, err
		}
		out[i] = nc
	}
	return out, nil
}

// ConditionsFromMap converts an attribute map into equality conditions
// sorted by field name, so the generated SQL is deterministic regardless of
// map iteration order. Nil values become null checks via Normalize.
func ConditionsFromMap(attrs map[string]any) []Condition {
	fields := make([]string, 0, len(attrs))
	for f := range attrs {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	conds := make([]Condition, 0, len(fields))
	for _, f := range fields {
		conds = append(conds, Eq(f, attrs[f]))
	}
	return conds
}

func isSliceValue(v any) bool {
	if v == nil {
		return false
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Slice, reflect.Array:
		return true
	default:
		return false
	}
}
