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
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNotFound reports that a primary-key lookup matched no row. Operation
// errors wrap it with the model name and key, so callers test it with
// errors.Is.
var ErrNotFound = errors.New("entity not found")

// ConstructionError reports that a repository could not be assembled: the
// bound type is not usable as a Bun model, or the configuration is invalid.
// New raises it eagerly instead of deferring the failure to the first
// operation.
type ConstructionError struct {
	Model  string
	Reason string
}

func (e *ConstructionError) Error() string {
	if e.Model == "" {
		return fmt.Sprintf("repository construction: %s", e.Reason)
	}
	return fmt.Sprintf("repository construction for %s: %s", e.Model, e.Reason)
}

func newConstructionError(model, reason string) *ConstructionError {
	return &ConstructionError{Model: model, Reason: reason}
}

// ValidationError carries per-field validation messages. It is raised before
// any mutation reaches storage, so a failed create or update has zero side
// effects.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return "validation failed on " + strings.Join(fields, ", ")
}

// Add appends a message for a field.
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], message)
}

// HasErrors reports whether any field message was recorded.
func (e *ValidationError) HasErrors() bool { return len(e.Fields) > 0 }
