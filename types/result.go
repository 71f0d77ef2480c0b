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

// Result carries the raw entities fetched by a repository operation together
// with the optional presenter output. Presented is nil when no presenter is
// bound or presentation was skipped for the call.
type Result[T any] struct {
	Items     []*T
	Presented any
}

// First returns the first raw item, or nil when the result is empty.
func (r *Result[T]) First() *T {
	if r == nil || len(r.Items) == 0 {
		return nil
	}
	return r.Items[0]
}

// Len reports how many raw items were fetched.
func (r *Result[T]) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Items)
}

// Output returns the presented representation when one was produced,
// otherwise the raw items.
func (r *Result[T]) Output() any {
	if r == nil {
		return nil
	}
	if r.Presented != nil {
		return r.Presented
	}
	return r.Items
}
