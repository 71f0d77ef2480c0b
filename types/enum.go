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

import "strings"

// Common illegal/default values used by enums.
const (
	IllegalValue = -1
	IllegalName  = "unknown"
	IllegalDesc  = "unknown"
)

// BaseEnum represents a basic enum contract used by domain types.
type BaseEnum interface {
	IsValid() bool
	Number() int
	String() string
	Desc() string
	Name() string
}

// RuleScope selects which validation rule set applies to an operation.
type RuleScope int

const (
	RuleScopeCreate RuleScope = iota
	RuleScopeUpdate
)

func (s RuleScope) IsValid() bool { return s == RuleScopeCreate || s == RuleScopeUpdate }

func (s RuleScope) Number() int {
	if !s.IsValid() {
		return IllegalValue
	}
	return int(s)
}

func (s RuleScope) String() string { return s.Name() }

func (s RuleScope) Name() string {
	switch s {
	case RuleScopeCreate:
		return "create"
	case RuleScopeUpdate:
		return "update"
	default:
		return IllegalName
	}
}

func (s RuleScope) Desc() string {
	switch s {
	case RuleScopeCreate:
		return "rules checked before inserting a new entity"
	case RuleScopeUpdate:
		return "rules checked before updating an existing entity"
	default:
		return IllegalDesc
	}
}

// SortDirection is the ordering direction applied to a sortable column.
type SortDirection int

const (
	SortAsc SortDirection = iota
	SortDesc
)

// ParseSortDirection interprets user input as a direction. Anything that is
// not explicitly descending sorts ascending.
func ParseSortDirection(s string) SortDirection {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "desc", "descending":
		return SortDesc
	default:
		return SortAsc
	}
}

func (d SortDirection) IsValid() bool { return d == SortAsc || d == SortDesc }

func (d SortDirection) Number() int {
	if !d.IsValid() {
		return IllegalValue
	}
	return int(d)
}

// String returns the SQL keyword for the direction.
func (d SortDirection) String() string {
	if d == SortDesc {
		return "DESC"
	}
	return "ASC"
}

func (d SortDirection) Name() string {
	if d == SortDesc {
		return "desc"
	}
	return "asc"
}

func (d SortDirection) Desc() string {
	if d == SortDesc {
		return "sort from largest to smallest"
	}
	return "sort from smallest to largest"
}
