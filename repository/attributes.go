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
	"fmt"
	"reflect"
)

// fill assigns attrs onto entity through Bun's schema metadata. Keys are
// column names as declared in bun tags; unknown keys and inconvertible
// values are errors, so a typo surfaces instead of silently dropping a
// write.
func (r *Repository[T]) fill(entity *T, attrs map[string]any) error {
	strct := reflect.ValueOf(entity).Elem()
	for name, value := range attrs {
		field, ok := r.table.FieldMap[name]
		if !ok {
			return fmt.Errorf("unknown column %q for model %s", name, r.table.TypeName)
		}
		dst := field.Value(strct)
		if value == nil {
			dst.Set(reflect.Zero(dst.Type()))
			continue
		}
		v := reflect.ValueOf(value)
		switch {
		case v.Type().AssignableTo(dst.Type()):
			dst.Set(v)
		case v.Type().ConvertibleTo(dst.Type()) && !runeConversion(v.Type(), dst.Type()):
			dst.Set(v.Convert(dst.Type()))
		default:
			return fmt.Errorf("cannot assign %T to column %q (%s) of model %s",
				value, name, dst.Type(), r.table.TypeName)
		}
	}
	return nil
}

// runeConversion reports an integer-to-string conversion. Reflect renders
// those as a single rune rather than a formatted number, which is never
// what an attribute map means.
func runeConversion(src, dst reflect.Type) bool {
	if dst.Kind() != reflect.String {
		return false
	}
	switch src.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

// primaryKey extracts the primary-key value from an entity.
func (r *Repository[T]) primaryKey(entity *T) any {
	return r.pk.Value(reflect.ValueOf(entity).Elem()).Interface()
}

// mergeAttrs overlays values onto attrs without mutating either map.
func mergeAttrs(attrs, values map[string]any) map[string]any {
	merged := make(map[string]any, len(attrs)+len(values))
	for k, v := range attrs {
		merged[k] = v
	}
	for k, v := range values {
		merged[k] = v
	}
	return merged
}
